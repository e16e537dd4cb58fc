package catalog

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/fuelflux/core/storage/memory"
)

func seeded(t *testing.T) *Catalog {
	t.Helper()
	f, err := os.Open("testdata/fixtures.yaml")
	require.NoError(t, err)
	defer f.Close()

	fixtures, err := ParseFixtures(f)
	require.NoError(t, err)
	c := New(memory.NewRepository())
	n, err := c.Import(fixtures)
	require.NoError(t, err)
	require.Equal(t, 12, n)
	return c
}

func TestImportHashesPasswords(t *testing.T) {
	c := seeded(t)
	u, err := c.UserByEmail("Customer@Example.com ")
	require.NoError(t, err)
	assert.Equal(t, int64(3), u.ID)
	assert.Equal(t, RoleCustomer, u.Role)
	require.NotNil(t, u.Allowance)
	assert.InDelta(t, 100, *u.Allowance, 1e-9)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("customer-pass")))
}

func TestParseFixturesRejectsUnknownFields(t *testing.T) {
	_, err := ParseFixtures(strings.NewReader("stations:\n  - {id: 1, name: x, colour: red}\n"))
	assert.Error(t, err)
}

func TestPumpWithTanks(t *testing.T) {
	c := seeded(t)
	pump, tanks, err := c.PumpWithTanks("4a0b1c9e-3f5d-4c8e-9a71-2d6f0e8b5c13")
	require.NoError(t, err)
	assert.Equal(t, int64(1), pump.StationID)
	require.Len(t, tanks, 2)
	assert.Equal(t, 1, tanks[0].Number)
	assert.Equal(t, 2, tanks[1].Number)

	_, _, err = c.PumpWithTanks("unknown")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserLookups(t *testing.T) {
	c := seeded(t)
	u, err := c.UserByUID("controller-0004")
	require.NoError(t, err)
	assert.True(t, u.IsController())

	_, err = c.UserByUID("nobody")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = c.User(999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSaveUserUniqueness(t *testing.T) {
	c := seeded(t)
	_, err := c.SaveUser(User{UID: "customer-0003", Email: "new@example.com", Role: RoleCustomer})
	assert.ErrorIs(t, err, ErrConflict)
	_, err = c.SaveUser(User{UID: "fresh", Email: "ADMIN@example.com", Role: RoleCustomer})
	assert.ErrorIs(t, err, ErrConflict)
	_, err = c.SaveUser(User{UID: "fresh", Email: "fresh@example.com", Role: Role(9)})
	assert.ErrorIs(t, err, ErrInvalid)

	id, err := c.SaveUser(User{UID: "fresh", Email: "fresh@example.com", Role: RoleOperator})
	require.NoError(t, err)
	assert.Equal(t, int64(6), id)
}

func TestSaveUserReindexes(t *testing.T) {
	c := seeded(t)
	u, err := c.User(2)
	require.NoError(t, err)
	u.UID = "operator-renamed"
	u.Email = "ops@example.com"
	_, err = c.SaveUser(*u)
	require.NoError(t, err)

	_, err = c.UserByUID("operator-0002")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = c.UserByEmail("operator@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
	got, err := c.UserByUID("operator-renamed")
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.ID)
}

func TestUsersWithRoles(t *testing.T) {
	c := seeded(t)
	roles := []Role{RoleCustomer, RoleOperator}

	all, err := c.UsersWithRoles(roles, 0, 10)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []int64{2, 3, 5}, []int64{all[0].ID, all[1].ID, all[2].ID})

	page, err := c.UsersWithRoles(roles, 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, int64(3), page[0].ID)

	empty, err := c.UsersWithRoles(roles, 5, 10)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestSaveTankValidation(t *testing.T) {
	c := seeded(t)
	_, err := c.SaveTank(Tank{StationID: 1, Number: 1})
	assert.ErrorIs(t, err, ErrConflict)
	_, err = c.SaveTank(Tank{StationID: 99, Number: 1})
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = c.SaveTank(Tank{StationID: 1, Number: 0})
	assert.ErrorIs(t, err, ErrInvalid)

	id, err := c.SaveTank(Tank{StationID: 1, Number: 3, Volume: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(4), id)
}

func TestSavePumpMovesIndex(t *testing.T) {
	c := seeded(t)
	p, err := c.Pump(1)
	require.NoError(t, err)
	p.UID = "replacement-uid"
	_, err = c.SavePump(*p)
	require.NoError(t, err)

	_, err = c.PumpByUID("4a0b1c9e-3f5d-4c8e-9a71-2d6f0e8b5c13")
	assert.ErrorIs(t, err, ErrNotFound)
	got, err := c.PumpByUID("replacement-uid")
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.ID)

	_, err = c.SavePump(Pump{UID: "7e2d9f40-81ab-4c57-b3e6-0a9c5d1f2e84", StationID: 1})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestDeleteStationCascades(t *testing.T) {
	c := seeded(t)
	require.NoError(t, c.DeleteStation(1))

	_, err := c.Station(1)
	assert.ErrorIs(t, err, ErrNotFound)
	tanks, err := c.TanksByStation(1)
	require.NoError(t, err)
	assert.Empty(t, tanks)
	_, err = c.PumpByUID("4a0b1c9e-3f5d-4c8e-9a71-2d6f0e8b5c13")
	assert.ErrorIs(t, err, ErrNotFound)

	// Other station untouched.
	tanks, err = c.TanksByStation(2)
	require.NoError(t, err)
	assert.Len(t, tanks, 1)

	assert.ErrorIs(t, c.DeleteStation(1), ErrNotFound)
}

func TestUpdateRequiresExisting(t *testing.T) {
	c := seeded(t)

	require.NoError(t, c.UpdateStation(Station{ID: 1, Name: "renamed"}))
	st, err := c.Station(1)
	require.NoError(t, err)
	assert.Equal(t, "renamed", st.Name)

	require.NoError(t, c.DeleteStation(2))

	assert.ErrorIs(t, c.UpdateStation(Station{ID: 2, Name: "back again"}), ErrNotFound)
	_, err = c.Station(2)
	assert.ErrorIs(t, err, ErrNotFound, "a deleted station stays deleted")

	assert.ErrorIs(t, c.UpdateTank(Tank{ID: 3, StationID: 1, Number: 7, Volume: 10}), ErrNotFound)
	_, err = c.Tank(3)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, c.UpdatePump(Pump{ID: 2, StationID: 1, UID: "resurrected"}), ErrNotFound)
	_, err = c.PumpByUID("resurrected")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, c.UpdateTank(Tank{ID: 1, StationID: 1, Number: 1, Volume: 42}))
	tank, err := c.Tank(1)
	require.NoError(t, err)
	assert.InDelta(t, 42, tank.Volume, 1e-9)
}

func TestFuelIntake(t *testing.T) {
	c := seeded(t)
	total, err := c.FuelIntake(1, 2, 250.5)
	require.NoError(t, err)
	assert.InDelta(t, 750.5, total, 1e-9)

	tank, err := c.StationTank(1, 2)
	require.NoError(t, err)
	assert.InDelta(t, 750.5, tank.Volume, 1e-9)

	_, err = c.FuelIntake(1, 7, 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRefuel(t *testing.T) {
	c := seeded(t)

	left, err := c.Refuel(1, 1, 3, 40)
	require.NoError(t, err)
	assert.InDelta(t, 960, left, 1e-9)
	u, err := c.User(3)
	require.NoError(t, err)
	require.NotNil(t, u.Allowance)
	assert.InDelta(t, 60, *u.Allowance, 1e-9)

	// Users without an allowance only draw from the tank.
	_, err = c.Refuel(1, 1, 5, 10)
	require.NoError(t, err)
	u, err = c.User(5)
	require.NoError(t, err)
	assert.Nil(t, u.Allowance)
	tank, err := c.StationTank(1, 1)
	require.NoError(t, err)
	assert.InDelta(t, 950, tank.Volume, 1e-9)
}

func TestRoleCanUsePump(t *testing.T) {
	assert.False(t, RoleAdministrator.CanUsePump())
	assert.True(t, RoleOperator.CanUsePump())
	assert.True(t, RoleCustomer.CanUsePump())
	assert.True(t, RoleController.CanUsePump())
	assert.Equal(t, "customer", RoleCustomer.String())
}
