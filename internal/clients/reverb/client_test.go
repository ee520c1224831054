package reverb

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client := NewClient("test-token",
		WithBaseURL(server.URL),
		WithRateLimit(rate.Inf, 1),
	)
	return client, server
}

func TestGetListingBySKU_EmbeddedShape(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/my/listings", r.URL.Path)
		assert.Equal(t, "MZM-4KTCXB0CYZ-New", r.URL.Query().Get("sku"))
		assert.Equal(t, "all", r.URL.Query().Get("state"))
		assert.Equal(t, "1", r.URL.Query().Get("per_page"))
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "3.0", r.Header.Get("Accept-Version"))

		w.Header().Set("Content-Type", "application/hal+json")
		w.Write([]byte(`{
			"_embedded": {
				"listings": [
					{
						"id": 12345678,
						"sku": "MZM-4KTCXB0CYZ-New",
						"title": "Test Pedal",
						"price": {"amount": "299.99", "currency": "USD"},
						"inventory": 3
					}
				]
			}
		}`))
	})

	listing, err := client.GetListingBySKU(context.Background(), "MZM-4KTCXB0CYZ-New")
	require.NoError(t, err)
	assert.Equal(t, "12345678", listing.ID.String())
	assert.Equal(t, 3, listing.Quantity())
	assert.InDelta(t, 299.99, listing.Price.AmountFloat(), 0.001)
}

func TestGetListingBySKU_FlatShape(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"listings": [
				{
					"id": 555,
					"sku": "MMS-197190135509-New",
					"price": {"amount": "1200.00", "currency": "USD"},
					"inventory": {"quantity": 1}
				}
			]
		}`))
	})

	listing, err := client.GetListingBySKU(context.Background(), "MMS-197190135509-New")
	require.NoError(t, err)
	assert.Equal(t, "555", listing.ID.String())
	assert.Equal(t, 1, listing.Quantity())
}

func TestGetListingBySKU_NotFound(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"_embedded": {"listings": []}, "listings": []}`))
	})

	_, err := client.GetListingBySKU(context.Background(), "MZM-MISSING-New")
	assert.ErrorIs(t, err, ErrListingNotFound)
}

func TestGetListingBySKU_Unauthorized(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message": "invalid token"}`))
	})

	_, err := client.GetListingBySKU(context.Background(), "MZM-4KTCXB0CYZ-New")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestUpdateListing_InventoryPayload(t *testing.T) {
	var captured map[string]interface{}
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/listings/12345678", r.URL.Path)
		assert.Equal(t, "application/hal+json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Write([]byte(`{}`))
	})

	qty := 5
	err := client.UpdateListing(context.Background(), "12345678", ListingUpdate{Inventory: &qty})
	require.NoError(t, err)
	assert.Equal(t, float64(5), captured["inventory"])
	_, hasPrice := captured["price"]
	assert.False(t, hasPrice)
}

func TestUpdateListing_PricePayload(t *testing.T) {
	var captured map[string]interface{}
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Write([]byte(`{}`))
	})

	err := client.UpdateListing(context.Background(), "555", ListingUpdate{
		Price: &Price{Amount: "349.00", Currency: "USD"},
	})
	require.NoError(t, err)

	price, ok := captured["price"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "349.00", price["amount"])
	assert.Equal(t, "USD", price["currency"])
}

func TestTestConnection(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/my/account", r.URL.Path)
		w.Write([]byte(`{"email": "shop@example.com"}`))
	})

	assert.NoError(t, client.TestConnection(context.Background()))
}

func TestDoRequest_RetriesServerError(t *testing.T) {
	attempts := 0
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"listings": [{"id": 9, "price": {"amount": "10.00", "currency": "USD"}, "inventory": 2}]}`))
	})

	listing, err := client.GetListingBySKU(context.Background(), "GG-4KTCXB0CYZ-New")
	require.NoError(t, err)
	assert.Equal(t, "9", listing.ID.String())
	assert.Equal(t, 2, attempts)
}
