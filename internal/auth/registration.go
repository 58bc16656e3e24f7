package auth

import (
	"errors"
	"regexp"
	"strings"

	"github.com/example/scrap-bidding/internal/models"
)

var (
	ErrNameRequired         = errors.New("please enter your name")
	ErrBusinessNameRequired = errors.New("please enter your business name")
	ErrAddressRequired      = errors.New("please enter your address")
	ErrCityRequired         = errors.New("please enter your city")
	ErrInvalidPincode       = errors.New("please enter a valid 6-digit pincode")
	ErrVehicleTypeRequired  = errors.New("please select your vehicle type")
	ErrServiceAreaRequired  = errors.New("please enter your service area")
)

var pincodeRx = regexp.MustCompile(`^\d{6}$`)

var VehicleTypes = []string{"Bicycle", "Motorcycle", "Auto Rickshaw", "Pickup Truck", "Mini Truck", "Truck", "Other"}

// Form holds both customer and collector sign-up fields; collector-only ones stay empty for customers.
type Form struct {
	Phone    string        `json:"phone"`
	Name     string        `json:"name"`
	Email    string        `json:"email,omitempty"`
	Address  string        `json:"address"`
	City     string        `json:"city"`
	Pincode  string        `json:"pincode"`
	Location *models.Coord `json:"location,omitempty"`

	BusinessName  string `json:"businessName,omitempty"`
	VehicleType   string `json:"vehicleType,omitempty"`
	VehicleNumber string `json:"vehicleNumber,omitempty"`
	Experience    string `json:"experience,omitempty"`
	ServiceArea   string `json:"serviceArea,omitempty"`
}

type RegistrationStep int

const (
	StepBasicInfo RegistrationStep = iota
	StepDetails
	StepComplete
)

func (s RegistrationStep) String() string {
	switch s {
	case StepBasicInfo:
		return "basic_info"
	case StepDetails:
		return "details"
	case StepComplete:
		return "complete"
	}
	return "unknown"
}

type Registration struct {
	role Role
	step RegistrationStep
	Form Form
}

func NewRegistration(role Role) (*Registration, error) {
	if role != RoleCustomer && role != RoleCollector {
		return nil, ErrInvalidRole
	}
	return &Registration{role: role}, nil
}

func (r *Registration) Role() Role             { return r.role }
func (r *Registration) Step() RegistrationStep { return r.step }

// Next validates the current step and moves forward. Complete is terminal.
func (r *Registration) Next() error {
	switch r.step {
	case StepBasicInfo:
		if err := r.validateBasicInfo(); err != nil {
			return err
		}
		r.step = StepDetails
	case StepDetails:
		if err := r.validateDetails(); err != nil {
			return err
		}
		r.step = StepComplete
	default:
		return ErrWrongStep
	}
	return nil
}

func (r *Registration) Back() error {
	if r.step != StepDetails {
		return ErrWrongStep
	}
	r.step = StepBasicInfo
	return nil
}

// Run drives the form from its current step to Complete, stopping at the first failing guard.
func (r *Registration) Run() error {
	for r.step != StepComplete {
		if err := r.Next(); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registration) validateBasicInfo() error {
	f := r.Form
	if err := ValidatePhone(f.Phone); err != nil {
		return err
	}
	if blank(f.Name) {
		return ErrNameRequired
	}
	if r.role == RoleCollector && blank(f.BusinessName) {
		return ErrBusinessNameRequired
	}
	return nil
}

func (r *Registration) validateDetails() error {
	f := r.Form
	if blank(f.Address) {
		return ErrAddressRequired
	}
	if blank(f.City) {
		return ErrCityRequired
	}
	if !pincodeRx.MatchString(f.Pincode) {
		return ErrInvalidPincode
	}
	if r.role != RoleCollector {
		return nil
	}
	if !validVehicle(f.VehicleType) {
		return ErrVehicleTypeRequired
	}
	if blank(f.ServiceArea) {
		return ErrServiceAreaRequired
	}
	return nil
}

func validVehicle(v string) bool {
	for _, t := range VehicleTypes {
		if v == t {
			return true
		}
	}
	return false
}

func blank(s string) bool { return strings.TrimSpace(s) == "" }
