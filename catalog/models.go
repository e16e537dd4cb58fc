package catalog

// Role is a user's role. The numeric values are part of the wire format.
type Role int

const (
	RoleAdministrator Role = 1
	RoleOperator      Role = 2
	RoleCustomer      Role = 3
	RoleController    Role = 4
)

// String returns the role name used in logs and fixtures.
func (r Role) String() string {
	switch r {
	case RoleAdministrator:
		return "administrator"
	case RoleOperator:
		return "operator"
	case RoleCustomer:
		return "customer"
	case RoleController:
		return "controller"
	default:
		return "unknown"
	}
}

// CanUsePump reports whether users with this role may pair with a pump.
func (r Role) CanUsePump() bool {
	return r == RoleOperator || r == RoleCustomer || r == RoleController
}

// Station is a fuel station.
type Station struct {
	ID   int64  `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// Tank is a fuel tank at a station. Number is unique within the station.
// Volume is the fuel currently available in the tank.
type Tank struct {
	ID        int64   `json:"id" yaml:"id"`
	Number    int     `json:"number" yaml:"number"`
	Volume    float64 `json:"volume" yaml:"volume"`
	StationID int64   `json:"fuelStationId" yaml:"station_id"`
}

// Pump is a pump controller installed at a station and identified in the
// field by its UID.
type Pump struct {
	ID        int64  `json:"id" yaml:"id"`
	UID       string `json:"uid" yaml:"uid"`
	StationID int64  `json:"fuelStationId" yaml:"station_id"`
}

// User is an account. UID is the public identifier presented at pumps.
// Allowance, when set, caps how much fuel a customer may still draw.
type User struct {
	ID           int64    `json:"id" yaml:"id"`
	UID          string   `json:"uid" yaml:"uid"`
	Email        string   `json:"email" yaml:"email"`
	FirstName    string   `json:"firstName,omitempty" yaml:"first_name"`
	LastName     string   `json:"lastName,omitempty" yaml:"last_name"`
	PasswordHash string   `json:"passwordHash" yaml:"password_hash"`
	Role         Role     `json:"roleId" yaml:"role"`
	Allowance    *float64 `json:"allowance,omitempty" yaml:"allowance"`
}

// IsAdministrator reports whether the user administers stations.
func (u *User) IsAdministrator() bool { return u.Role == RoleAdministrator }

// IsOperator reports whether the user is a station operator.
func (u *User) IsOperator() bool { return u.Role == RoleOperator }

// IsCustomer reports whether the user is a customer.
func (u *User) IsCustomer() bool { return u.Role == RoleCustomer }

// IsController reports whether the user is a controller.
func (u *User) IsController() bool { return u.Role == RoleController }
