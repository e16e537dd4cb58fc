// Package catalog stores the fuel domain (stations, tanks, pumps and users)
// on top of a storage.Repository and applies the fuel ledger updates.
package catalog

import (
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/fuelflux/core/storage"
)

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a unique attribute is already taken.
	ErrConflict = errors.New("already exists")
	// ErrInvalid is returned for entities that fail validation.
	ErrInvalid = errors.New("invalid entity")
)

const (
	typeStation   = "station"
	typeTank      = "tank"
	typePump      = "pump"
	typeUser      = "user"
	indexPumpUID  = "pump_uid"
	indexUserUID  = "user_uid"
	indexUserMail = "user_email"
)

// Catalog provides typed access to the fuel domain.
type Catalog struct {
	repo storage.Repository
	// mu serializes ID allocation and unique-index maintenance. Ledger
	// updates do not take it.
	mu sync.Mutex
}

// New returns a Catalog over repo.
func New(repo storage.Repository) *Catalog {
	return &Catalog{repo: repo}
}

func recordID(id int64) string {
	return strconv.FormatInt(id, 10)
}

// NormalizeEmail folds an email address for lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func load[T any](repo storage.Repository, recordType, id string) (*T, error) {
	data, err := repo.Get(recordType, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%s %s: %w", recordType, id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("decoding %s %s: %w", recordType, id, err)
	}
	return &v, nil
}

func loadAll[T any](repo storage.Repository, recordType string, id func(*T) int64) ([]T, error) {
	ids, err := repo.List(recordType)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(ids))
	for _, rid := range ids {
		v, err := load[T](repo, recordType, rid)
		if errors.Is(err, ErrNotFound) {
			// Deleted since List.
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	slices.SortFunc(out, func(a, b T) int {
		return cmp.Compare(id(&a), id(&b))
	})
	return out, nil
}

func putJSON(put func(recordType, recordID string, data []byte) error, recordType string, id int64, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s %d: %w", recordType, id, err)
	}
	return put(recordType, recordID(id), data)
}

// nextID returns one more than the largest ID stored under recordType.
// Callers hold c.mu.
func (c *Catalog) nextID(recordType string) (int64, error) {
	ids, err := c.repo.List(recordType)
	if err != nil {
		return 0, err
	}
	var maxID int64
	for _, rid := range ids {
		n, err := strconv.ParseInt(rid, 10, 64)
		if err != nil {
			continue
		}
		maxID = max(maxID, n)
	}
	return maxID + 1, nil
}

func (c *Catalog) lookupIndex(index, key string) (int64, error) {
	data, err := c.repo.Get(index, key)
	if errors.Is(err, storage.ErrNotFound) {
		return 0, fmt.Errorf("%s %q: %w", index, key, ErrNotFound)
	}
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(string(data), 10, 64)
}

// claimIndex fails with ErrConflict if key already points at another ID.
func (c *Catalog) claimIndex(index, key string, id int64) error {
	owner, err := c.lookupIndex(index, key)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if owner != id {
		return fmt.Errorf("%s %q: %w", index, key, ErrConflict)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Stations
// ---------------------------------------------------------------------------

// Station returns the station with the given ID.
func (c *Catalog) Station(id int64) (*Station, error) {
	return load[Station](c.repo, typeStation, recordID(id))
}

// Stations returns every station ordered by ID.
func (c *Catalog) Stations() ([]Station, error) {
	return loadAll(c.repo, typeStation, func(s *Station) int64 { return s.ID })
}

// SaveStation creates (ID zero) or replaces a station and returns its ID.
func (c *Catalog) SaveStation(s Station) (int64, error) {
	return c.saveStation(s, false)
}

// UpdateStation replaces an existing station. It returns ErrNotFound when
// the station is gone, so a concurrent delete is never undone.
func (c *Catalog) UpdateStation(s Station) error {
	_, err := c.saveStation(s, true)
	return err
}

func (c *Catalog) saveStation(s Station, update bool) (int64, error) {
	if strings.TrimSpace(s.Name) == "" {
		return 0, fmt.Errorf("station name is required: %w", ErrInvalid)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if update {
		if _, err := c.Station(s.ID); err != nil {
			return 0, err
		}
	}
	if s.ID == 0 {
		id, err := c.nextID(typeStation)
		if err != nil {
			return 0, err
		}
		s.ID = id
	}
	return s.ID, putJSON(c.repo.Put, typeStation, s.ID, s)
}

// DeleteStation removes a station together with its tanks and pumps.
func (c *Catalog) DeleteStation(id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.Station(id); err != nil {
		return err
	}
	tanks, err := c.TanksByStation(id)
	if err != nil {
		return err
	}
	pumps, err := c.PumpsByStation(id)
	if err != nil {
		return err
	}
	return c.repo.Batch(func(tx storage.BatchTx) error {
		for _, t := range tanks {
			if err := tx.Delete(typeTank, recordID(t.ID)); err != nil {
				return err
			}
		}
		for _, p := range pumps {
			if err := tx.Delete(typePump, recordID(p.ID)); err != nil {
				return err
			}
			if err := tx.Delete(indexPumpUID, p.UID); err != nil && !errors.Is(err, storage.ErrNotFound) {
				return err
			}
		}
		return tx.Delete(typeStation, recordID(id))
	})
}

// ---------------------------------------------------------------------------
// Tanks
// ---------------------------------------------------------------------------

// Tank returns the tank with the given ID.
func (c *Catalog) Tank(id int64) (*Tank, error) {
	return load[Tank](c.repo, typeTank, recordID(id))
}

// Tanks returns every tank ordered by ID.
func (c *Catalog) Tanks() ([]Tank, error) {
	return loadAll(c.repo, typeTank, func(t *Tank) int64 { return t.ID })
}

// TanksByStation returns the tanks of a station ordered by number.
func (c *Catalog) TanksByStation(stationID int64) ([]Tank, error) {
	all, err := c.Tanks()
	if err != nil {
		return nil, err
	}
	var out []Tank
	for _, t := range all {
		if t.StationID == stationID {
			out = append(out, t)
		}
	}
	slices.SortFunc(out, func(a, b Tank) int { return a.Number - b.Number })
	return out, nil
}

// StationTank returns the tank with the given number at a station.
func (c *Catalog) StationTank(stationID int64, number int) (*Tank, error) {
	tanks, err := c.TanksByStation(stationID)
	if err != nil {
		return nil, err
	}
	for i := range tanks {
		if tanks[i].Number == number {
			return &tanks[i], nil
		}
	}
	return nil, fmt.Errorf("tank %d at station %d: %w", number, stationID, ErrNotFound)
}

// SaveTank creates (ID zero) or replaces a tank and returns its ID. The
// station must exist and the tank number must be free within it.
func (c *Catalog) SaveTank(t Tank) (int64, error) {
	return c.saveTank(t, false)
}

// UpdateTank replaces an existing tank, returning ErrNotFound when it is gone.
func (c *Catalog) UpdateTank(t Tank) error {
	_, err := c.saveTank(t, true)
	return err
}

func (c *Catalog) saveTank(t Tank, update bool) (int64, error) {
	if t.Number < 1 {
		return 0, fmt.Errorf("tank number must be positive: %w", ErrInvalid)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if update {
		if _, err := c.Tank(t.ID); err != nil {
			return 0, err
		}
	}
	if _, err := c.Station(t.StationID); err != nil {
		return 0, err
	}
	existing, err := c.StationTank(t.StationID, t.Number)
	switch {
	case err == nil && existing.ID != t.ID:
		return 0, fmt.Errorf("tank %d at station %d: %w", t.Number, t.StationID, ErrConflict)
	case err != nil && !errors.Is(err, ErrNotFound):
		return 0, err
	}
	if t.ID == 0 {
		id, err := c.nextID(typeTank)
		if err != nil {
			return 0, err
		}
		t.ID = id
	}
	return t.ID, putJSON(c.repo.Put, typeTank, t.ID, t)
}

// DeleteTank removes a tank.
func (c *Catalog) DeleteTank(id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	err := c.repo.Delete(typeTank, recordID(id))
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("tank %d: %w", id, ErrNotFound)
	}
	return err
}

// ---------------------------------------------------------------------------
// Pumps
// ---------------------------------------------------------------------------

// Pump returns the pump with the given ID.
func (c *Catalog) Pump(id int64) (*Pump, error) {
	return load[Pump](c.repo, typePump, recordID(id))
}

// Pumps returns every pump ordered by ID.
func (c *Catalog) Pumps() ([]Pump, error) {
	return loadAll(c.repo, typePump, func(p *Pump) int64 { return p.ID })
}

// PumpsByStation returns the pumps installed at a station.
func (c *Catalog) PumpsByStation(stationID int64) ([]Pump, error) {
	all, err := c.Pumps()
	if err != nil {
		return nil, err
	}
	var out []Pump
	for _, p := range all {
		if p.StationID == stationID {
			out = append(out, p)
		}
	}
	return out, nil
}

// PumpByUID returns the pump with the given UID.
func (c *Catalog) PumpByUID(uid string) (*Pump, error) {
	id, err := c.lookupIndex(indexPumpUID, uid)
	if err != nil {
		return nil, err
	}
	return c.Pump(id)
}

// PumpWithTanks returns the pump with the given UID and the tanks of the
// station it is installed at.
func (c *Catalog) PumpWithTanks(uid string) (*Pump, []Tank, error) {
	pump, err := c.PumpByUID(uid)
	if err != nil {
		return nil, nil, err
	}
	tanks, err := c.TanksByStation(pump.StationID)
	if err != nil {
		return nil, nil, err
	}
	return pump, tanks, nil
}

// SavePump creates (ID zero) or replaces a pump and returns its ID.
func (c *Catalog) SavePump(p Pump) (int64, error) {
	return c.savePump(p, false)
}

// UpdatePump replaces an existing pump, returning ErrNotFound when it is gone.
func (c *Catalog) UpdatePump(p Pump) error {
	_, err := c.savePump(p, true)
	return err
}

func (c *Catalog) savePump(p Pump, update bool) (int64, error) {
	if p.UID == "" {
		return 0, fmt.Errorf("pump uid is required: %w", ErrInvalid)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if update {
		if _, err := c.Pump(p.ID); err != nil {
			return 0, err
		}
	}
	if _, err := c.Station(p.StationID); err != nil {
		return 0, err
	}
	if err := c.claimIndex(indexPumpUID, p.UID, p.ID); err != nil {
		return 0, err
	}
	var previous *Pump
	if p.ID == 0 {
		id, err := c.nextID(typePump)
		if err != nil {
			return 0, err
		}
		p.ID = id
	} else if prev, err := c.Pump(p.ID); err == nil {
		previous = prev
	} else if !errors.Is(err, ErrNotFound) {
		return 0, err
	}
	return p.ID, c.repo.Batch(func(tx storage.BatchTx) error {
		if previous != nil && previous.UID != p.UID {
			if err := tx.Delete(indexPumpUID, previous.UID); err != nil && !errors.Is(err, storage.ErrNotFound) {
				return err
			}
		}
		if err := tx.Put(indexPumpUID, p.UID, []byte(recordID(p.ID))); err != nil {
			return err
		}
		return putJSON(tx.Put, typePump, p.ID, p)
	})
}

// DeletePump removes a pump.
func (c *Catalog) DeletePump(id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, err := c.Pump(id)
	if err != nil {
		return err
	}
	return c.repo.Batch(func(tx storage.BatchTx) error {
		if err := tx.Delete(indexPumpUID, p.UID); err != nil && !errors.Is(err, storage.ErrNotFound) {
			return err
		}
		return tx.Delete(typePump, recordID(id))
	})
}

// ---------------------------------------------------------------------------
// Users
// ---------------------------------------------------------------------------

// User returns the user with the given ID.
func (c *Catalog) User(id int64) (*User, error) {
	return load[User](c.repo, typeUser, recordID(id))
}

// Users returns every user ordered by ID.
func (c *Catalog) Users() ([]User, error) {
	return loadAll(c.repo, typeUser, func(u *User) int64 { return u.ID })
}

// UserByUID returns the user with the given public UID.
func (c *Catalog) UserByUID(uid string) (*User, error) {
	id, err := c.lookupIndex(indexUserUID, uid)
	if err != nil {
		return nil, err
	}
	return c.User(id)
}

// UserByEmail returns the user registered under email.
func (c *Catalog) UserByEmail(email string) (*User, error) {
	id, err := c.lookupIndex(indexUserMail, NormalizeEmail(email))
	if err != nil {
		return nil, err
	}
	return c.User(id)
}

// UsersWithRoles returns users holding any of roles ordered by ID, skipping
// the first `first` matches and returning at most number of them.
func (c *Catalog) UsersWithRoles(roles []Role, first, number int) ([]User, error) {
	all, err := c.Users()
	if err != nil {
		return nil, err
	}
	var matched []User
	for _, u := range all {
		if slices.Contains(roles, u.Role) {
			matched = append(matched, u)
		}
	}
	if first >= len(matched) {
		return nil, nil
	}
	matched = matched[first:]
	if number < len(matched) {
		matched = matched[:number]
	}
	return matched, nil
}

// SaveUser creates (ID zero) or replaces a user and returns its ID. UID and
// email must be unique.
func (c *Catalog) SaveUser(u User) (int64, error) {
	u.Email = NormalizeEmail(u.Email)
	if u.UID == "" || u.Email == "" {
		return 0, fmt.Errorf("user uid and email are required: %w", ErrInvalid)
	}
	if u.Role < RoleAdministrator || u.Role > RoleController {
		return 0, fmt.Errorf("unknown role %d: %w", u.Role, ErrInvalid)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.claimIndex(indexUserUID, u.UID, u.ID); err != nil {
		return 0, err
	}
	if err := c.claimIndex(indexUserMail, u.Email, u.ID); err != nil {
		return 0, err
	}
	var previous *User
	if u.ID == 0 {
		id, err := c.nextID(typeUser)
		if err != nil {
			return 0, err
		}
		u.ID = id
	} else if prev, err := c.User(u.ID); err == nil {
		previous = prev
	} else if !errors.Is(err, ErrNotFound) {
		return 0, err
	}
	return u.ID, c.repo.Batch(func(tx storage.BatchTx) error {
		if previous != nil {
			if previous.UID != u.UID {
				if err := tx.Delete(indexUserUID, previous.UID); err != nil && !errors.Is(err, storage.ErrNotFound) {
					return err
				}
			}
			if previous.Email != u.Email {
				if err := tx.Delete(indexUserMail, previous.Email); err != nil && !errors.Is(err, storage.ErrNotFound) {
					return err
				}
			}
		}
		if err := tx.Put(indexUserUID, u.UID, []byte(recordID(u.ID))); err != nil {
			return err
		}
		if err := tx.Put(indexUserMail, u.Email, []byte(recordID(u.ID))); err != nil {
			return err
		}
		return putJSON(tx.Put, typeUser, u.ID, u)
	})
}

// ---------------------------------------------------------------------------
// Ledger
// ---------------------------------------------------------------------------

// FuelIntake adds volume to the tank with the given number at a station and
// returns the new tank volume.
//
// The update is a plain read-modify-write: concurrent intakes or refuels on
// the same tank can lose updates.
func (c *Catalog) FuelIntake(stationID int64, tankNumber int, volume float64) (float64, error) {
	tank, err := c.StationTank(stationID, tankNumber)
	if err != nil {
		return 0, err
	}
	tank.Volume += volume
	return tank.Volume, putJSON(c.repo.Put, typeTank, tank.ID, tank)
}

// Refuel draws volume from the tank with the given number at a station and,
// if the user has an allowance, from that allowance too. It returns the
// remaining tank volume. Neither balance is checked against going negative.
//
// Like FuelIntake this is an unlocked read-modify-write.
func (c *Catalog) Refuel(stationID int64, tankNumber int, userID int64, volume float64) (float64, error) {
	tank, err := c.StationTank(stationID, tankNumber)
	if err != nil {
		return 0, err
	}
	user, err := c.User(userID)
	if err != nil {
		return 0, err
	}
	tank.Volume -= volume
	err = c.repo.Batch(func(tx storage.BatchTx) error {
		if err := putJSON(tx.Put, typeTank, tank.ID, tank); err != nil {
			return err
		}
		if user.Allowance == nil {
			return nil
		}
		left := *user.Allowance - volume
		user.Allowance = &left
		return putJSON(tx.Put, typeUser, user.ID, user)
	})
	return tank.Volume, err
}
