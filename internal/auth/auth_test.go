package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signed(t *testing.T, c Claims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte("test-key"))
	require.NoError(t, err)
	return tok
}

func TestParseSession(t *testing.T) {
	exp := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	tok := signed(t, Claims{Role: "collector", RegisteredClaims: jwt.RegisteredClaims{Subject: "col-1", ExpiresAt: jwt.NewNumericDate(exp)}})

	s, err := FromAuthorization("Bearer " + tok)
	require.NoError(t, err)
	assert.Equal(t, "col-1", s.Subject)
	assert.Equal(t, RoleCollector, s.Role)
	assert.True(t, s.ExpiresAt.Equal(exp))
	assert.False(t, s.Expired(exp.Add(-time.Second)))
	assert.True(t, s.Expired(exp))
}

func TestParseSessionUserIDFallback(t *testing.T) {
	s, err := ParseSession(signed(t, Claims{UserID: "u-9", Role: "customer"}))
	require.NoError(t, err)
	assert.Equal(t, "u-9", s.Subject)
	assert.False(t, s.Expired(time.Now()))
}

func TestParseSessionErrors(t *testing.T) {
	_, err := FromAuthorization("")
	assert.ErrorIs(t, err, ErrNoSession)
	_, err = FromAuthorization("Basic abc")
	assert.ErrorIs(t, err, ErrNoSession)
	_, err = ParseSession("not-a-jwt")
	assert.Error(t, err)
	var nilSession *Session
	assert.True(t, nilSession.Expired(time.Now()))
}

func TestValidators(t *testing.T) {
	assert.NoError(t, ValidatePhone("9876543210"))
	assert.ErrorIs(t, ValidatePhone("5876543210"), ErrInvalidPhone)
	assert.ErrorIs(t, ValidatePhone("98765"), ErrInvalidPhone)
	assert.NoError(t, ValidateOTP("012345"))
	assert.ErrorIs(t, ValidateOTP("12345"), ErrInvalidOTP)
	assert.ErrorIs(t, ValidateOTP("12345a"), ErrInvalidOTP)

	r, err := ParseRole(" Collector ")
	require.NoError(t, err)
	assert.Equal(t, RoleCollector, r)
	_, err = ParseRole("admin")
	assert.ErrorIs(t, err, ErrInvalidRole)
}

func TestLoginFlow(t *testing.T) {
	f := NewLoginFlow()
	assert.Equal(t, StepPhone, f.Step())
	assert.ErrorIs(t, f.Verify("123456"), ErrWrongStep)
	assert.ErrorIs(t, f.RequestOTP("123", "customer"), ErrInvalidPhone)
	assert.ErrorIs(t, f.RequestOTP("9876543210", "driver"), ErrInvalidRole)
	assert.Equal(t, StepPhone, f.Step())

	require.NoError(t, f.RequestOTP("9876543210", "customer"))
	assert.Equal(t, StepOTP, f.Step())
	assert.ErrorIs(t, f.Verify("12"), ErrInvalidOTP)

	f.ChangeNumber()
	assert.Equal(t, StepPhone, f.Step())
	require.NoError(t, f.RequestOTP("7000000000", "collector"))
	require.NoError(t, f.Verify("654321"))
	assert.Equal(t, StepDone, f.Step())
	assert.Equal(t, "done", f.Step().String())
}

func TestResumeLoginFlow(t *testing.T) {
	_, err := ResumeLoginFlow("12")
	assert.ErrorIs(t, err, ErrInvalidPhone)
	f, err := ResumeLoginFlow("9876543210")
	require.NoError(t, err)
	require.NoError(t, f.Verify("111111"))
}

func TestRegistrationCustomer(t *testing.T) {
	r, err := NewRegistration(RoleCustomer)
	require.NoError(t, err)
	assert.ErrorIs(t, r.Next(), ErrInvalidPhone)

	r.Form.Phone = "9876543210"
	assert.ErrorIs(t, r.Next(), ErrNameRequired)
	r.Form.Name = "Asha"
	require.NoError(t, r.Next())
	assert.Equal(t, StepDetails, r.Step())

	r.Form.Address, r.Form.City, r.Form.Pincode = "12 MG Road", "Bengaluru", "5600"
	assert.ErrorIs(t, r.Next(), ErrInvalidPincode)
	r.Form.Pincode = "560001"
	require.NoError(t, r.Next())
	assert.Equal(t, StepComplete, r.Step())
	assert.ErrorIs(t, r.Next(), ErrWrongStep)
	assert.ErrorIs(t, r.Back(), ErrWrongStep)
}

func TestRegistrationCollectorGuards(t *testing.T) {
	r, err := NewRegistration(RoleCollector)
	require.NoError(t, err)
	r.Form = Form{Phone: "9876543210", Name: "Ravi"}
	assert.ErrorIs(t, r.Run(), ErrBusinessNameRequired)

	r.Form.BusinessName = "Ravi Scrap"
	r.Form.Address, r.Form.City, r.Form.Pincode = "Shop 4", "Chennai", "600001"
	assert.ErrorIs(t, r.Run(), ErrVehicleTypeRequired)
	assert.Equal(t, StepDetails, r.Step())

	require.NoError(t, r.Back())
	assert.Equal(t, StepBasicInfo, r.Step())

	r.Form.VehicleType = "Spaceship"
	assert.ErrorIs(t, r.Run(), ErrVehicleTypeRequired)
	r.Form.VehicleType = "Mini Truck"
	assert.ErrorIs(t, r.Run(), ErrServiceAreaRequired)
	r.Form.ServiceArea = "T Nagar"
	require.NoError(t, r.Run())
	assert.Equal(t, StepComplete, r.Step())
}

func TestNewRegistrationRejectsAdmin(t *testing.T) {
	_, err := NewRegistration(RoleAdmin)
	assert.ErrorIs(t, err, ErrInvalidRole)
}

func TestVerifier(t *testing.T) {
	v := NewVerifier("test-key")
	require.NotNil(t, v)
	past := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

	s, err := v.Verify(signed(t, Claims{Role: "collector", RegisteredClaims: jwt.RegisteredClaims{Subject: "col-1", ExpiresAt: jwt.NewNumericDate(past)}}))
	require.NoError(t, err)
	assert.Equal(t, "col-1", s.Subject)
	assert.True(t, s.Expired(time.Now()), "expiry is reported, not enforced by Verify")

	other, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "col-1"}}).SignedString([]byte("other-key"))
	require.NoError(t, err)
	_, err = v.Verify(other)
	assert.ErrorIs(t, err, ErrInvalidToken)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "attacker"}}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = v.Verify(unsigned)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = v.Verify(" ")
	assert.ErrorIs(t, err, ErrNoSession)

	assert.Nil(t, NewVerifier(""))
}
