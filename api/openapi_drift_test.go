package api

import (
	"net/http"
	"slices"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type openAPIDoc struct {
	Paths map[string]map[string]any `yaml:"paths"`
}

var openAPIMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE"}

// TestOpenAPIDrift compares the routes registered by Router with the paths
// documented in openapi.yaml, in both directions.
func TestOpenAPIDrift(t *testing.T) {
	var doc openAPIDoc
	require.NoError(t, yaml.Unmarshal(openapiSpec, &doc))

	var documented []string
	for path, item := range doc.Paths {
		for key := range item {
			method := strings.ToUpper(key)
			if slices.Contains(openAPIMethods, method) {
				documented = append(documented, method+" "+path)
			}
		}
	}

	// Router only wires handlers, so a zero API is enough to walk it.
	a := &API{}
	var registered []string
	err := chi.Walk(a.Router(), func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		route = strings.TrimRight(route, "/")
		if route == "/openapi.yaml" || strings.HasPrefix(route, "/docs") || strings.HasPrefix(route, "/redoc") {
			return nil
		}
		registered = append(registered, method+" "+route)
		return nil
	})
	require.NoError(t, err)

	assert.ElementsMatch(t, documented, registered)
}

// TestOpenAPIGatedRoutesDocumentSecurity checks that only the login and
// pump pairing routes are documented without a bearer token.
func TestOpenAPIGatedRoutesDocumentSecurity(t *testing.T) {
	var doc struct {
		Paths map[string]map[string]yaml.Node `yaml:"paths"`
	}
	require.NoError(t, yaml.Unmarshal(openapiSpec, &doc))

	open := map[string]bool{"POST /auth/login": true, "POST /pump/authorize": true}
	for path, item := range doc.Paths {
		for key, node := range item {
			method := strings.ToUpper(key)
			if !slices.Contains(openAPIMethods, method) {
				continue
			}
			var op struct {
				Security []map[string][]string `yaml:"security"`
			}
			require.NoError(t, node.Decode(&op))
			route := method + " " + path
			if open[route] {
				assert.Empty(t, op.Security, route)
			} else {
				assert.NotEmpty(t, op.Security, route)
			}
		}
	}
}
