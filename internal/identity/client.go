// Package identity wraps the external identity provider that owns the
// authentication accounts paired 1:1 with teacher and student records.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/schoolhub-io/schoolhub-api/internal/models"
	"github.com/schoolhub-io/schoolhub-api/pkg/config"
	appErrors "github.com/schoolhub-io/schoolhub-api/pkg/errors"
)

// User is the provider-side account record.
type User struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
}

// CreateUserInput is the provisioning payload for a new account.
type CreateUserInput struct {
	Username  string
	Password  string
	FirstName string
	LastName  string
	Role      models.UserRole
}

// UpdateUserInput mirrors profile changes to the provider. Password is
// only sent when a non-empty value is supplied.
type UpdateUserInput struct {
	Username  string
	Password  string
	FirstName string
	LastName  string
}

// Provider is the account lifecycle surface the services depend on.
type Provider interface {
	CreateUser(ctx context.Context, input CreateUserInput) (*User, error)
	UpdateUser(ctx context.Context, id string, input UpdateUserInput) error
	DeleteUser(ctx context.Context, id string) error
}

// Client talks to the provider's management REST API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient builds a provider client with a request-level timeout.
func NewClient(cfg config.IdentityConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

type createUserPayload struct {
	Username       string            `json:"username"`
	Password       string            `json:"password"`
	FirstName      string            `json:"first_name"`
	LastName       string            `json:"last_name"`
	PublicMetadata map[string]string `json:"public_metadata"`
}

type updateUserPayload struct {
	Username  string  `json:"username,omitempty"`
	Password  *string `json:"password,omitempty"`
	FirstName string  `json:"first_name,omitempty"`
	LastName  string  `json:"last_name,omitempty"`
}

// providerError is the error envelope returned by the provider API.
type providerError struct {
	Errors []struct {
		Code        string `json:"code"`
		Message     string `json:"message"`
		LongMessage string `json:"long_message"`
	} `json:"errors"`
}

// CreateUser provisions a new account carrying the role claim. The
// returned provider id becomes the local record id.
func (c *Client) CreateUser(ctx context.Context, input CreateUserInput) (*User, error) {
	payload := createUserPayload{
		Username:       input.Username,
		Password:       input.Password,
		FirstName:      input.FirstName,
		LastName:       input.LastName,
		PublicMetadata: map[string]string{"role": string(input.Role)},
	}

	var user User
	if err := c.do(ctx, http.MethodPost, "/users", payload, &user); err != nil {
		return nil, err
	}
	user.Role = string(input.Role)
	return &user, nil
}

// UpdateUser mirrors profile fields to an existing account.
func (c *Client) UpdateUser(ctx context.Context, id string, input UpdateUserInput) error {
	payload := updateUserPayload{
		Username:  input.Username,
		FirstName: input.FirstName,
		LastName:  input.LastName,
	}
	if input.Password != "" {
		payload.Password = &input.Password
	}

	return c.do(ctx, http.MethodPatch, "/users/"+id, payload, nil)
}

// DeleteUser removes the account. A missing account is not an error so
// delete flows stay idempotent.
func (c *Client) DeleteUser(ctx context.Context, id string) error {
	err := c.do(ctx, http.MethodDelete, "/users/"+id, nil, nil)
	var appErr *appErrors.Error
	if errors.As(err, &appErr) && appErr.Status == http.StatusNotFound {
		return nil
	}
	return err
}

func (c *Client) do(ctx context.Context, method, path string, payload, dest interface{}) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "encode identity request")
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "build identity request")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return appErrors.Wrap(err, appErrors.ErrUpstreamTimeout.Code, appErrors.ErrUpstreamTimeout.Status, appErrors.ErrUpstreamTimeout.Message)
		}
		return appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, appErrors.ErrUpstream.Message)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		return c.decodeError(resp)
	}

	if dest != nil {
		if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
			return appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "decode identity response")
		}
	}
	return nil
}

// decodeError extracts the provider's own message when present so the
// user sees the specific reason (duplicate username, breached password)
// rather than a generic upstream failure.
func (c *Client) decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))

	message := appErrors.ErrUpstream.Message
	var payload providerError
	if err := json.Unmarshal(raw, &payload); err == nil && len(payload.Errors) > 0 {
		first := payload.Errors[0]
		if first.LongMessage != "" {
			message = first.LongMessage
		} else if first.Message != "" {
			message = first.Message
		}
	}

	status := appErrors.ErrUpstream.Status
	switch resp.StatusCode {
	case http.StatusNotFound:
		status = http.StatusNotFound
	case http.StatusConflict, http.StatusUnprocessableEntity, http.StatusBadRequest:
		status = http.StatusUnprocessableEntity
	}

	c.logger.Warn("identity provider rejected request",
		zap.Int("status", resp.StatusCode),
		zap.String("message", message),
	)
	return &appErrors.Error{Code: appErrors.ErrUpstream.Code, Status: status, Message: message}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return strings.Contains(err.Error(), "Client.Timeout")
}

var _ Provider = (*Client)(nil)

// String implements fmt.Stringer without leaking the API key.
func (c *Client) String() string {
	return fmt.Sprintf("identity.Client(%s)", c.baseURL)
}
