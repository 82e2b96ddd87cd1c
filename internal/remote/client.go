package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mcoot/tapearn/internal/api/apierr"
	"github.com/mcoot/tapearn/internal/api/request"
	"github.com/mcoot/tapearn/internal/api/response"
	"github.com/mcoot/tapearn/internal/model"
)

// Client talks to the authoritative player store over HTTP/JSON
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new player store client. baseURL includes the /api prefix.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// APIError is a request the store understood and rejected
type APIError struct {
	Status     int
	Code       string
	Message    string
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("HTTP %d", e.Status)
	}
	return e.Message
}

// Unwrap returns the model error matching the payload code
func (e *APIError) Unwrap() error {
	if err := apierr.FromCode(e.Code); err != nil {
		return err
	}
	if e.Status == http.StatusNotFound {
		return model.ErrPlayerNotFound
	}
	return nil
}

// Fetch returns the full state of a player
func (c *Client) Fetch(ctx context.Context, id model.PlayerID) (model.PlayerState, error) {
	var state model.PlayerState
	err := c.do(ctx, "fetch", http.MethodGet, "/users/"+url.PathEscape(string(id)), nil, &state)
	return state, err
}

// Login creates the player on first contact, or returns the existing one
func (c *Client) Login(ctx context.Context, req request.LoginRequest) (response.LoginResponse, error) {
	var resp response.LoginResponse
	err := c.do(ctx, "login", http.MethodPost, "/users/login", req, &resp)
	return resp, err
}

// Update pushes a partial state
func (c *Client) Update(ctx context.Context, req request.UpdateRequest) (model.PlayerState, error) {
	var state model.PlayerState
	err := c.do(ctx, "update", http.MethodPost, "/users/update", req, &state)
	return state, err
}

// BuyTapBot buys the auto-tapper
func (c *Client) BuyTapBot(ctx context.Context, id model.PlayerID) (model.PlayerState, error) {
	return c.feature(ctx, "buy-tap-bot", id)
}

// ToggleTapBot flips the auto-tapper on or off
func (c *Client) ToggleTapBot(ctx context.Context, id model.PlayerID) (model.PlayerState, error) {
	return c.feature(ctx, "toggle-tap-bot", id)
}

// RefillStamina refills stamina to the cap
func (c *Client) RefillStamina(ctx context.Context, id model.PlayerID) (model.PlayerState, error) {
	return c.feature(ctx, "refill-stamina", id)
}

// ClaimReferral records the referrer of a player
func (c *Client) ClaimReferral(ctx context.Context, id model.PlayerID, referrer string) (model.PlayerState, error) {
	var state model.PlayerState
	req := request.ClaimReferralRequest{TelegramID: id, ReferrerUsername: referrer}
	err := c.do(ctx, "claim-referral", http.MethodPost, "/users/claim-referral", req, &state)
	return state, err
}

// ReferralLeaderboard returns the players with the most referrals
func (c *Client) ReferralLeaderboard(ctx context.Context, limit int) ([]response.LeaderboardEntry, error) {
	path := "/users/referral-leaderboard"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var resp response.LeaderboardResponse
	err := c.do(ctx, "leaderboard", http.MethodGet, path, nil, &resp)
	return resp.Entries, err
}

// Health checks the store is reachable
func (c *Client) Health(ctx context.Context) (response.HealthResponse, error) {
	var resp response.HealthResponse
	err := c.do(ctx, "health", http.MethodGet, "/health", nil, &resp)
	return resp, err
}

func (c *Client) feature(ctx context.Context, name string, id model.PlayerID) (model.PlayerState, error) {
	var state model.PlayerState
	err := c.do(ctx, name, http.MethodPost, "/users/"+name, request.PlayerRequest{TelegramID: id}, &state)
	return state, err
}

// do performs a request. Transport failures and server errors come back as
// *model.SyncError; rejections the store explains come back as *APIError.
func (c *Client) do(ctx context.Context, op, method, path string, body, result any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &model.SyncError{Op: op, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &model.SyncError{Op: op, Err: err}
	}

	if resp.StatusCode >= 500 {
		return &model.SyncError{Op: op, Err: decodeError(resp.StatusCode, respBody)}
	}
	if resp.StatusCode >= 400 {
		return decodeError(resp.StatusCode, respBody)
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return &model.SyncError{Op: op, Err: fmt.Errorf("failed to parse response: %w", err)}
		}
	}
	return nil
}

func decodeError(status int, body []byte) *APIError {
	apiErr := &APIError{Status: status}
	var payload response.ErrorBody
	if err := json.Unmarshal(body, &payload); err == nil {
		apiErr.Code = payload.Code
		apiErr.Message = payload.Message
		apiErr.RetryAfter = time.Duration(payload.RetryAfterSeconds) * time.Second
	}
	if apiErr.Message == "" {
		apiErr.Message = fmt.Sprintf("HTTP %d: %s", status, strings.TrimSpace(string(body)))
	}
	return apiErr
}
