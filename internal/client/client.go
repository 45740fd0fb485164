// Package client calls the bag procedures over HTTP.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/appdotbuilder/bag-factory-manager-3e44/internal/api"
	"github.com/appdotbuilder/bag-factory-manager-3e44/internal/model"
)

// Error is a non-validation failure reported by the server.
type Error struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Code, e.StatusCode, e.Message)
}

// IsUnauthorized reports whether err is a 401 from the server.
func IsUnauthorized(err error) bool {
	var ce *Error
	return errors.As(err, &ce) && ce.StatusCode == http.StatusUnauthorized
}

// Health is the healthcheck answer.
type Health struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// Client is a typed client for the bag procedures.
type Client struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

// New creates a client for the server at baseURL.
func New(baseURL, token string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		Token:      token,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// CreateBag creates a bag and returns the stored record.
func (c *Client) CreateBag(ctx context.Context, in model.CreateBagInput) (*model.Bag, error) {
	var bag *model.Bag
	if err := c.mutate(ctx, api.ProcCreateBag, in, &bag); err != nil {
		return nil, err
	}
	return bag, nil
}

// GetBags lists all bags in ascending id order.
func (c *Client) GetBags(ctx context.Context) ([]model.Bag, error) {
	bags := []model.Bag{}
	if err := c.query(ctx, api.ProcGetBags, nil, &bags); err != nil {
		return nil, err
	}
	return bags, nil
}

// GetBag returns the bag with the given id, or nil if there is none.
func (c *Client) GetBag(ctx context.Context, id int64) (*model.Bag, error) {
	var bag *model.Bag
	if err := c.query(ctx, api.ProcGetBag, model.GetBagInput{ID: &id}, &bag); err != nil {
		return nil, err
	}
	return bag, nil
}

// UpdateBag applies a partial update. It returns nil if the bag does not
// exist.
func (c *Client) UpdateBag(ctx context.Context, in model.UpdateBagInput) (*model.Bag, error) {
	var bag *model.Bag
	if err := c.mutate(ctx, api.ProcUpdateBag, in, &bag); err != nil {
		return nil, err
	}
	return bag, nil
}

// DeleteBag deletes a bag and reports whether it existed.
func (c *Client) DeleteBag(ctx context.Context, id int64) (bool, error) {
	var deleted bool
	if err := c.mutate(ctx, api.ProcDeleteBag, model.DeleteBagInput{ID: &id}, &deleted); err != nil {
		return false, err
	}
	return deleted, nil
}

// Health calls the healthcheck query.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	var h Health
	if err := c.query(ctx, api.ProcHealthcheck, nil, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

// Login exchanges the operator password for a token. The token is also
// stored on the client for subsequent mutations.
func (c *Client) Login(ctx context.Context, password string) (string, error) {
	body, err := json.Marshal(api.LoginRequest{Password: password})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/auth/login", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("logging in: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading login response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", decodeError(resp.StatusCode, data)
	}

	var out api.LoginResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("decoding login response: %w", err)
	}
	c.Token = out.Token
	return out.Token, nil
}

func (c *Client) query(ctx context.Context, name string, input, out any) error {
	u := c.BaseURL + api.Prefix + name
	if input != nil {
		data, err := json.Marshal(input)
		if err != nil {
			return fmt.Errorf("encoding %s input: %w", name, err)
		}
		u += "?input=" + url.QueryEscape(string(data))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	return c.do(req, name, out)
}

func (c *Client) mutate(ctx context.Context, name string, input, out any) error {
	data, err := json.Marshal(input)
	if err != nil {
		return fmt.Errorf("encoding %s input: %w", name, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+api.Prefix+name, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, name, out)
}

func (c *Client) do(req *http.Request, name string, out any) error {
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("calling %s: %w", name, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading %s response: %w", name, err)
	}
	if resp.StatusCode != http.StatusOK {
		return decodeError(resp.StatusCode, data)
	}

	var env api.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("decoding %s response: %w", name, err)
	}
	if err := json.Unmarshal(env.Result, out); err != nil {
		return fmt.Errorf("decoding %s result: %w", name, err)
	}
	return nil
}

// decodeError turns an error body into a *model.ValidationError for 400s
// and a *Error otherwise.
func decodeError(status int, data []byte) error {
	var env api.Envelope
	if err := json.Unmarshal(data, &env); err != nil || env.Error == nil {
		return &Error{StatusCode: status, Code: http.StatusText(status), Message: strings.TrimSpace(string(data))}
	}
	if env.Error.Code == api.CodeValidation {
		return &model.ValidationError{Field: env.Error.Field, Message: validationMessage(env.Error)}
	}
	return &Error{StatusCode: status, Code: env.Error.Code, Message: env.Error.Message}
}

// validationMessage strips the prefix the server adds when formatting a
// ValidationError, so the error reads the same on both sides.
func validationMessage(body *api.ErrorBody) string {
	msg := body.Message
	if body.Field != "" {
		msg = strings.TrimPrefix(msg, "validation error on "+body.Field+": ")
	}
	return strings.TrimPrefix(msg, "validation error: ")
}
