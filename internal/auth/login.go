package auth

import (
	"errors"
	"regexp"
	"strings"
)

type Role string

const (
	RoleCustomer  Role = "customer"
	RoleCollector Role = "collector"
	RoleAdmin     Role = "admin"
)

var (
	ErrInvalidPhone = errors.New("please enter a valid 10-digit mobile number")
	ErrInvalidOTP   = errors.New("please enter 6-digit OTP")
	ErrInvalidRole  = errors.New("role must be customer or collector")
	ErrWrongStep    = errors.New("action not allowed at this step")
)

var (
	phoneRx = regexp.MustCompile(`^[6-9]\d{9}$`)
	otpRx   = regexp.MustCompile(`^\d{6}$`)
)

func ValidatePhone(phone string) error {
	if !phoneRx.MatchString(strings.TrimSpace(phone)) {
		return ErrInvalidPhone
	}
	return nil
}

func ValidateOTP(otp string) error {
	if !otpRx.MatchString(otp) {
		return ErrInvalidOTP
	}
	return nil
}

// ParseRole accepts only the roles that can sign up or log in themselves.
func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleCustomer, RoleCollector:
		return r, nil
	}
	return "", ErrInvalidRole
}

type LoginStep int

const (
	StepPhone LoginStep = iota
	StepOTP
	StepDone
)

func (s LoginStep) String() string {
	switch s {
	case StepPhone:
		return "phone"
	case StepOTP:
		return "otp"
	case StepDone:
		return "done"
	}
	return "unknown"
}

// LoginFlow is the two-step OTP login: phone number first, then the code sent to it.
type LoginFlow struct {
	step  LoginStep
	Phone string
	Role  Role
}

func NewLoginFlow() *LoginFlow { return &LoginFlow{} }

// ResumeLoginFlow rebuilds a flow that already sent an OTP to phone.
func ResumeLoginFlow(phone string) (*LoginFlow, error) {
	if err := ValidatePhone(phone); err != nil {
		return nil, err
	}
	return &LoginFlow{step: StepOTP, Phone: strings.TrimSpace(phone)}, nil
}

func (f *LoginFlow) Step() LoginStep { return f.step }

func (f *LoginFlow) RequestOTP(phone, role string) error {
	if f.step != StepPhone {
		return ErrWrongStep
	}
	if err := ValidatePhone(phone); err != nil {
		return err
	}
	r, err := ParseRole(role)
	if err != nil {
		return err
	}
	f.Phone, f.Role, f.step = strings.TrimSpace(phone), r, StepOTP
	return nil
}

func (f *LoginFlow) Verify(otp string) error {
	if f.step != StepOTP {
		return ErrWrongStep
	}
	if err := ValidateOTP(otp); err != nil {
		return err
	}
	f.step = StepDone
	return nil
}

// ChangeNumber goes back to the phone step.
func (f *LoginFlow) ChangeNumber() {
	if f.step == StepOTP {
		f.step = StepPhone
	}
}
