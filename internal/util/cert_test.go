package util

import (
	"crypto/x509"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSelfSignedCert(t *testing.T) {
	cert, err := GenerateSelfSignedCert()
	require.NoError(t, err)
	require.Len(t, cert.Certificate, 1)
	require.NotNil(t, cert.Leaf)

	assert.Equal(t, "localhost", cert.Leaf.Subject.CommonName)
	assert.NoError(t, cert.Leaf.VerifyHostname("localhost"))
	assert.NoError(t, cert.Leaf.VerifyHostname("127.0.0.1"))
	assert.Contains(t, cert.Leaf.ExtKeyUsage, x509.ExtKeyUsageServerAuth)
	assert.WithinDuration(t, time.Now().Add(SelfSignedValidity), cert.Leaf.NotAfter, time.Hour)
}

func TestGenerateSelfSignedCertUniqueSerials(t *testing.T) {
	a, err := GenerateSelfSignedCert()
	require.NoError(t, err)
	b, err := GenerateSelfSignedCert()
	require.NoError(t, err)
	assert.NotEqual(t, a.Leaf.SerialNumber, b.Leaf.SerialNumber)
}
