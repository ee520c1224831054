package reverb

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"
	"listing-sync-service/internal/clients"
)

const defaultBaseURL = "https://api.reverb.com/api"

// Reverb allows roughly 50 requests per two minutes per token, so the
// limiter paces requests at one per 2.4 seconds with no burst headroom.
const (
	requestsPerWindow = 50
	windowSeconds     = 120
)

// ErrListingNotFound is returned when no listing matches the SKU
var ErrListingNotFound = errors.New("listing not found")

// ErrUnauthorized is returned on a 401, meaning the store token is bad
var ErrUnauthorized = errors.New("authentication failed, check the store API token")

// Client talks to the Reverb marketplace API on behalf of a single store
type Client struct {
	httpClient  *http.Client
	baseURL     string
	token       string
	rateLimiter *rate.Limiter
	retrier     *clients.Retrier
}

// Option customizes a Client
type Option func(*Client)

// WithBaseURL overrides the API base URL, used by tests
func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = baseURL }
}

// WithRateLimit overrides the request pacing
func WithRateLimit(limit rate.Limit, burst int) Option {
	return func(c *Client) { c.rateLimiter = rate.NewLimiter(limit, burst) }
}

// NewClient creates a Reverb client authenticated with a store API token
func NewClient(token string, opts ...Option) *Client {
	c := &Client{
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		baseURL:     defaultBaseURL,
		token:       token,
		rateLimiter: rate.NewLimiter(rate.Limit(float64(requestsPerWindow)/windowSeconds), 1),
		retrier:     clients.NewRetrier(clients.DefaultRetryConfig()),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Price is a Reverb money amount
type Price struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency,omitempty"`
}

// AmountFloat parses the amount string, returning 0 for empty or garbage
func (p Price) AmountFloat() float64 {
	v, err := strconv.ParseFloat(p.Amount, 64)
	if err != nil {
		return 0
	}
	return v
}

// Listing is a Reverb listing as returned by the listings endpoints.
// Inventory arrives either as a bare number or as an object with a
// quantity field depending on API version, so it gets custom decoding.
type Listing struct {
	ID        json.Number      `json:"id"`
	SKU       string           `json:"sku"`
	Title     string           `json:"title,omitempty"`
	State     json.RawMessage  `json:"state,omitempty"`
	Price     Price            `json:"price"`
	Inventory inventoryField   `json:"inventory"`
}

// Quantity returns the listing's current inventory count
func (l *Listing) Quantity() int {
	return l.Inventory.Quantity
}

type inventoryField struct {
	Quantity int
}

func (f *inventoryField) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		f.Quantity = n
		return nil
	}
	var obj struct {
		Quantity int `json:"quantity"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	f.Quantity = obj.Quantity
	return nil
}

// ListingUpdate is the mutable subset of a listing
type ListingUpdate struct {
	Inventory *int   `json:"inventory,omitempty"`
	Price     *Price `json:"price,omitempty"`
}

// GetListingBySKU looks up the store's listing for a SKU across all listing
// states. Returns ErrListingNotFound when the store has no such listing.
func (c *Client) GetListingBySKU(ctx context.Context, sku string) (*Listing, error) {
	params := url.Values{}
	params.Set("sku", sku)
	params.Set("state", "all")
	params.Set("per_page", "1")

	body, err := c.doRequest(ctx, http.MethodGet, "/my/listings", params, nil)
	if err != nil {
		return nil, err
	}

	// The API has shipped both HAL-embedded and flat response shapes
	var response struct {
		Embedded struct {
			Listings []Listing `json:"listings"`
		} `json:"_embedded"`
		Listings []Listing `json:"listings"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to parse listings response: %w", err)
	}

	listings := response.Embedded.Listings
	if len(listings) == 0 {
		listings = response.Listings
	}
	if len(listings) == 0 {
		return nil, ErrListingNotFound
	}
	return &listings[0], nil
}

// UpdateListing applies an inventory and/or price update to a listing
func (c *Client) UpdateListing(ctx context.Context, listingID string, update ListingUpdate) error {
	_, err := c.doRequest(ctx, http.MethodPut, "/listings/"+listingID, nil, update)
	return err
}

// TestConnection verifies the store token by fetching the account profile
func (c *Client) TestConnection(ctx context.Context) error {
	_, err := c.doRequest(ctx, http.MethodGet, "/my/account", nil, nil)
	return err
}

// doRequest performs an authenticated, rate-limited request with retries
func (c *Client) doRequest(ctx context.Context, method, path string, params url.Values, body interface{}) ([]byte, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	fullURL := c.baseURL + path
	if params != nil {
		fullURL += "?" + params.Encode()
	}

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, err
		}
	}

	resp, err := c.retrier.DoHTTP(ctx, method+" "+path, func(ctx context.Context) (*http.Response, error) {
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, fullURL, reader)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+c.token)
		req.Header.Set("Content-Type", "application/hal+json")
		req.Header.Set("Accept", "application/hal+json")
		req.Header.Set("Accept-Version", "3.0")
		return c.httpClient.Do(req)
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, ErrUnauthorized
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("reverb API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	return respBody, nil
}
