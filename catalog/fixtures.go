package catalog

import (
	"fmt"
	"io"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

// Fixtures is the YAML document accepted by Import.
//
//	stations:
//	  - {id: 1, name: "Station 1"}
//	tanks:
//	  - {id: 1, station_id: 1, number: 1, volume: 1000}
//	pumps:
//	  - {id: 1, station_id: 1, uid: "0d5c..."}
//	users:
//	  - {id: 1, uid: "u-1", email: "a@example.com", password: "secret", role: 3, allowance: 50}
type Fixtures struct {
	Stations []Station     `yaml:"stations"`
	Tanks    []Tank        `yaml:"tanks"`
	Pumps    []Pump        `yaml:"pumps"`
	Users    []FixtureUser `yaml:"users"`
}

// FixtureUser is a user whose password is given in clear text and hashed on
// import. A non-empty PasswordHash is kept as is.
type FixtureUser struct {
	User     `yaml:",inline"`
	Password string `yaml:"password"`
}

// ParseFixtures decodes a fixtures document, rejecting unknown fields.
func ParseFixtures(r io.Reader) (*Fixtures, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var f Fixtures
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("parsing fixtures: %w", err)
	}
	return &f, nil
}

// Import saves every entity of f in dependency order and returns how many
// entities were written.
func (c *Catalog) Import(f *Fixtures) (int, error) {
	n := 0
	for _, s := range f.Stations {
		if _, err := c.SaveStation(s); err != nil {
			return n, fmt.Errorf("station %q: %w", s.Name, err)
		}
		n++
	}
	for _, t := range f.Tanks {
		if _, err := c.SaveTank(t); err != nil {
			return n, fmt.Errorf("tank %d at station %d: %w", t.Number, t.StationID, err)
		}
		n++
	}
	for _, p := range f.Pumps {
		if _, err := c.SavePump(p); err != nil {
			return n, fmt.Errorf("pump %s: %w", p.UID, err)
		}
		n++
	}
	for _, fu := range f.Users {
		u := fu.User
		if u.PasswordHash == "" && fu.Password != "" {
			hash, err := bcrypt.GenerateFromPassword([]byte(fu.Password), bcrypt.DefaultCost)
			if err != nil {
				return n, fmt.Errorf("hashing password for %s: %w", u.Email, err)
			}
			u.PasswordHash = string(hash)
		}
		if _, err := c.SaveUser(u); err != nil {
			return n, fmt.Errorf("user %s: %w", u.Email, err)
		}
		n++
	}
	return n, nil
}
