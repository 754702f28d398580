package orders

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pratofino/catering-cart/internal/domain/checkout"
)

func testRequest() checkout.OrderRequest {
	return checkout.OrderRequest{
		UserID:         12,
		EventID:        7,
		Status:         checkout.StatusPending,
		Date:           time.Date(2026, 9, 12, 18, 30, 0, 0, time.UTC),
		GuestCount:     40,
		MenuSelection:  "Menu Premium",
		Location:       "Espaço Verde, São Paulo",
		TotalAmount:    decimal.RequireFromString("4540"),
		WaiterFee:      decimal.RequireFromString("1040"),
		AdditionalInfo: `{"quantity":1,"imageUrl":"","selectedItems":{"Entradas":["Bruschetta"]}}`,
		IdempotencyKey: "f1f86d10-0000-0000-0000-000000000001",
	}
}

func TestCreate_Success(t *testing.T) {
	var gotBody map[string]any
	var gotHeader http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/orders", r.URL.Path)
		gotHeader = r.Header.Clone()
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &gotBody))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id": 4711, "status": "pending"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	id, err := client.Create(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, int64(4711), id)

	assert.Equal(t, "application/json", gotHeader.Get("Content-Type"))
	assert.Equal(t, "f1f86d10-0000-0000-0000-000000000001", gotHeader.Get("Idempotency-Key"))

	assert.Equal(t, float64(12), gotBody["userId"])
	assert.Equal(t, float64(7), gotBody["eventId"])
	assert.Equal(t, "pending", gotBody["status"])
	assert.Equal(t, "2026-09-12T18:30:00Z", gotBody["date"])
	assert.Equal(t, float64(40), gotBody["guestCount"])
	assert.Equal(t, "Menu Premium", gotBody["menuSelection"])
	assert.Equal(t, float64(4540), gotBody["totalAmount"])
	assert.Equal(t, float64(1040), gotBody["waiterFee"])
	assert.Contains(t, gotBody["additionalInfo"], "Bruschetta")
}

func TestCreate_NullableFields(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &gotBody))
		_, _ = w.Write([]byte(`{"id": 1}`))
	}))
	defer srv.Close()

	req := testRequest()
	req.MenuSelection = ""
	req.Location = ""

	_, err := NewClient(srv.URL).Create(context.Background(), req)
	require.NoError(t, err)

	menuSelection, ok := gotBody["menuSelection"]
	require.True(t, ok)
	assert.Nil(t, menuSelection)
	location, ok := gotBody["location"]
	require.True(t, ok)
	assert.Nil(t, location)
}

func TestCreate_ErrorPrefersDetails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message":"Validation failed","details":{"guestCount":"must be positive"}}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Create(context.Background(), testRequest())
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
	assert.Contains(t, apiErr.Error(), "guestCount")
	assert.NotContains(t, apiErr.Error(), "Validation failed", "details win over message")
}

func TestCreate_ErrorFallsBackToMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"evento não encontrado"}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Create(context.Background(), testRequest())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "evento não encontrado", apiErr.Error())
}

func TestCreate_ErrorUnparseableBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream exploded"))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Create(context.Background(), testRequest())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "upstream exploded", apiErr.Error())
}

func TestCreate_SuccessWithoutID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"pending"}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Create(context.Background(), testRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no order id")
}
