package api

import "github.com/fuelflux/core/catalog"

// ErrorResponse is returned for all error cases.
type ErrorResponse struct {
	Msg string `json:"Msg"`
}

// LoginRequest is the JSON body for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is returned from POST /auth/login.
type LoginResponse struct {
	ID     int64        `json:"id"`
	Token  string       `json:"token"`
	RoleID catalog.Role `json:"roleId"`
}

// UserView is the public projection of a user.
type UserView struct {
	ID        int64        `json:"id"`
	UID       string       `json:"uid"`
	Email     string       `json:"email"`
	FirstName string       `json:"firstName,omitempty"`
	LastName  string       `json:"lastName,omitempty"`
	RoleID    catalog.Role `json:"roleId"`
	Allowance *float64     `json:"allowance,omitempty"`
}

func newUserView(u *catalog.User) UserView {
	return UserView{
		ID:        u.ID,
		UID:       u.UID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		RoleID:    u.Role,
		Allowance: u.Allowance,
	}
}

// DeviceAuthorizeRequest is the JSON body for POST /pump/authorize.
type DeviceAuthorizeRequest struct {
	PumpControllerUID string `json:"pumpControllerUid"`
	UserUID           string `json:"userUid"`
}

// FuelTankItem describes one tank of the pump's station.
type FuelTankItem struct {
	Number int     `json:"number"`
	Volume float64 `json:"volume"`
}

// DeviceAuthorizeResponse is returned from POST /pump/authorize. Allowance
// and Price are only reported to customers.
type DeviceAuthorizeResponse struct {
	Token     string         `json:"token"`
	RoleID    catalog.Role   `json:"roleId"`
	FuelTanks []FuelTankItem `json:"fuelTanks"`
	Allowance *float64       `json:"allowance,omitempty"`
	Price     *float64       `json:"price,omitempty"`
}

// FuelIntakeRequest is the JSON body for POST /pump/fuelintake.
type FuelIntakeRequest struct {
	TankNumber   int     `json:"tankNumber"`
	IntakeVolume float64 `json:"intakeVolume"`
}

// RefuelRequest is the JSON body for POST /pump/refuel.
type RefuelRequest struct {
	TankNumber   int     `json:"tankNumber"`
	RefuelVolume float64 `json:"refuelVolume"`
}

// PumpUserItem is one entry of GET /pump/users.
type PumpUserItem struct {
	UID       string   `json:"uid"`
	Allowance *float64 `json:"allowance,omitempty"`
}

// IDResponse is returned when an entity is created.
type IDResponse struct {
	ID int64 `json:"id"`
}
