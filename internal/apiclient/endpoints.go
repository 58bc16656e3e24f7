package apiclient

import (
	"context"
	"net/http"

	"github.com/example/scrap-bidding/internal/auth"
	"github.com/example/scrap-bidding/internal/models"
	"github.com/example/scrap-bidding/internal/pricing"
)

type User struct {
	ID    string    `json:"id"`
	Name  string    `json:"name"`
	Phone string    `json:"phone"`
	Email string    `json:"email,omitempty"`
	Role  auth.Role `json:"role"`
}

type OTPDetails struct {
	Message   string `json:"message"`
	ExpiresIn int    `json:"expires_in,omitempty"`
}

type AuthResult struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

type PlaceBidRequest struct {
	ID        string  `json:"id"`
	RequestID string  `json:"request_id"`
	Amount    float64 `json:"amount"`
}

// Login asks the API to send an OTP to phone.
func (c *Client) Login(ctx context.Context, phone string, role auth.Role) (*OTPDetails, error) {
	var out OTPDetails
	err := c.do(ctx, nil, http.MethodPost, "/auth/login", map[string]string{"phone": phone, "role": string(role)}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) VerifyOTP(ctx context.Context, phone, otp string) (*AuthResult, error) {
	var out AuthResult
	if err := c.do(ctx, nil, http.MethodPost, "/auth/verify-otp", map[string]string{"phone": phone, "otp": otp}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Register(ctx context.Context, role auth.Role, form auth.Form) (*AuthResult, error) {
	var out AuthResult
	if err := c.do(ctx, nil, http.MethodPost, "/auth/register/"+pathEscape(string(role)), form, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Categories(ctx context.Context) ([]pricing.Category, error) {
	var out []pricing.Category
	if err := c.do(ctx, nil, http.MethodGet, "/scrap/categories", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateScrapRequest(ctx context.Context, s *auth.Session, req models.ScrapRequest) (*models.ScrapRequest, error) {
	var out models.ScrapRequest
	if err := c.do(ctx, s, http.MethodPost, "/scrap/request", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ScrapRequests(ctx context.Context, s *auth.Session) ([]models.ScrapRequest, error) {
	var out []models.ScrapRequest
	if err := c.do(ctx, s, http.MethodGet, "/scrap/requests", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) NearbyCollectors(ctx context.Context, s *auth.Session, at models.Coord) ([]models.NearbyCollector, error) {
	var out []models.NearbyCollector
	if err := c.do(ctx, s, http.MethodPost, "/scrap/nearby-collectors", at, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) PlaceBid(ctx context.Context, s *auth.Session, req PlaceBidRequest) (*models.Bid, error) {
	var out models.Bid
	if err := c.do(ctx, s, http.MethodPost, "/bids", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) BidsForRequest(ctx context.Context, s *auth.Session, requestID string) ([]models.Bid, error) {
	var out []models.Bid
	if err := c.do(ctx, s, http.MethodGet, "/bids/"+pathEscape(requestID), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) AcceptBid(ctx context.Context, s *auth.Session, bidID string) (*models.Bid, error) {
	var out models.Bid
	if err := c.do(ctx, s, http.MethodPut, "/bids/"+pathEscape(bidID)+"/accept", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AvailableJobs is the collector's feed of open scrap requests.
func (c *Client) AvailableJobs(ctx context.Context, s *auth.Session) ([]models.Job, error) {
	var out []models.Job
	if err := c.do(ctx, s, http.MethodGet, "/jobs", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) MyBids(ctx context.Context, s *auth.Session) ([]models.Bid, error) {
	var out []models.Bid
	if err := c.do(ctx, s, http.MethodGet, "/bids/mine", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Pickups(ctx context.Context, s *auth.Session) ([]models.Pickup, error) {
	var out []models.Pickup
	if err := c.do(ctx, s, http.MethodGet, "/pickups", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
