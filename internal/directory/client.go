package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/gsmwallet/server/internal/model"
)

// Client calls the customer service's internal directory endpoints.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a new directory client.
func NewClient(baseURL string, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	if c.baseURL == "" {
		return nil, fmt.Errorf("customer service base url is empty")
	}

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if key := strings.TrimSpace(c.apiKey); key != "" {
		req.Header.Set("X-Internal-API-Key", key)
	}
	return req, nil
}

// LookupByPhone resolves the customer currently holding phone.
func (c *Client) LookupByPhone(ctx context.Context, phone string) (model.Customer, error) {
	if strings.TrimSpace(phone) == "" {
		return model.Customer{}, ErrNotFound
	}
	return c.getCustomer(ctx, "/internal/customers/by-gsm/"+url.PathEscape(phone))
}

// Get fetches a customer by id.
func (c *Client) Get(ctx context.Context, customerID uuid.UUID) (model.Customer, error) {
	return c.getCustomer(ctx, "/internal/customers/"+customerID.String())
}

func (c *Client) getCustomer(ctx context.Context, path string) (model.Customer, error) {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return model.Customer{}, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return model.Customer{}, fmt.Errorf("failed to execute request to customer service: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return model.Customer{}, ErrNotFound
	case resp.StatusCode >= 400:
		return model.Customer{}, fmt.Errorf("customer service returned error status %d", resp.StatusCode)
	}

	var customer model.Customer
	if err := json.NewDecoder(resp.Body).Decode(&customer); err != nil {
		return model.Customer{}, fmt.Errorf("failed to decode response: %w", err)
	}
	return customer, nil
}

// UpdateBalance pushes a new balance guarded by the expected prior value.
func (c *Client) UpdateBalance(ctx context.Context, customerID uuid.UUID, expected, balance decimal.Decimal) error {
	req, err := c.newRequest(ctx, http.MethodPut,
		"/internal/customers/"+customerID.String()+"/balance",
		BalanceUpdate{ExpectedBalance: expected, Balance: balance})
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request to customer service: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode == http.StatusConflict:
		return ErrConflict
	case resp.StatusCode >= 400:
		return fmt.Errorf("customer service returned error status %d", resp.StatusCode)
	}
	return nil
}
