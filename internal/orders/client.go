// Package orders implements the HTTP client for the order backend
// collaborator: one POST /orders call per cart line.
package orders

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/pratofino/catering-cart/internal/domain/checkout"
)

var _ checkout.OrderAPI = (*Client)(nil)

// APIError is a non-2xx response from the order backend. Details holds
// the backend's structured field-level validation errors verbatim when
// present; Message holds its plain message. Details wins when both are
// present.
type APIError struct {
	StatusCode int
	Message    string
	Details    string
}

func (e *APIError) Error() string {
	switch {
	case e.Details != "":
		return fmt.Sprintf("erro de validação: %s", e.Details)
	case e.Message != "":
		return e.Message
	default:
		return fmt.Sprintf("erro ao criar pedido (status %d)", e.StatusCode)
	}
}

// Client talks to the order backend over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. Timeouts are
// whatever the supplied client enforces; the order flow adds none of
// its own.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// NewClient creates a Client for the backend at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Create submits one order-creation request and returns the created
// order's identifier.
func (c *Client) Create(ctx context.Context, req checkout.OrderRequest) (int64, error) {
	body := encodeOrderRequest(req)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/orders", bytes.NewReader(body))
	if err != nil {
		return 0, errors.Wrap(err, "build order request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if req.IdempotencyKey != "" {
		httpReq.Header.Set("Idempotency-Key", req.IdempotencyKey)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return 0, errors.Wrap(err, "post order")
	}
	defer func() { _ = resp.Body.Close() }()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, errors.Wrap(err, "read order response")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, decodeAPIError(resp.StatusCode, payload)
	}

	id, err := decodeOrderID(payload)
	if err != nil {
		return 0, errors.Wrap(err, "decode order response")
	}
	return id, nil
}

// encodeOrderRequest builds the POST /orders JSON body. menuSelection
// and location are null when empty, matching the wire contract.
func encodeOrderRequest(req checkout.OrderRequest) []byte {
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("userId", func(e *jx.Encoder) { e.Int64(req.UserID) })
		e.Field("eventId", func(e *jx.Encoder) { e.Int64(req.EventID) })
		e.Field("status", func(e *jx.Encoder) { e.Str(req.Status) })
		e.Field("date", func(e *jx.Encoder) { e.Str(req.Date.UTC().Format(time.RFC3339)) })
		e.Field("guestCount", func(e *jx.Encoder) { e.Int(req.GuestCount) })
		e.Field("menuSelection", func(e *jx.Encoder) {
			if req.MenuSelection == "" {
				e.Null()
				return
			}
			e.Str(req.MenuSelection)
		})
		e.Field("location", func(e *jx.Encoder) {
			if req.Location == "" {
				e.Null()
				return
			}
			e.Str(req.Location)
		})
		e.Field("totalAmount", func(e *jx.Encoder) { e.RawStr(req.TotalAmount.Round(2).String()) })
		e.Field("waiterFee", func(e *jx.Encoder) { e.RawStr(req.WaiterFee.String()) })
		e.Field("additionalInfo", func(e *jx.Encoder) { e.Str(req.AdditionalInfo) })
	})
	return e.Bytes()
}

// decodeOrderID extracts the created order's id from a success body.
func decodeOrderID(payload []byte) (int64, error) {
	var id int64
	found := false
	d := jx.DecodeBytes(payload)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		if key != "id" {
			return d.Skip()
		}
		v, err := d.Int64()
		if err != nil {
			return err
		}
		id = v
		found = true
		return nil
	}); err != nil {
		return 0, err
	}
	if !found {
		return 0, errors.New("response carries no order id")
	}
	return id, nil
}

// decodeAPIError parses an error body for structured validation details
// or a message. Unparseable bodies degrade to the raw text.
func decodeAPIError(status int, payload []byte) *APIError {
	apiErr := &APIError{StatusCode: status}

	d := jx.DecodeBytes(payload)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "message":
			msg, err := d.Str()
			if err != nil {
				return err
			}
			apiErr.Message = msg
			return nil
		case "details":
			raw, err := d.Raw()
			if err != nil {
				return err
			}
			apiErr.Details = string(raw)
			return nil
		default:
			return d.Skip()
		}
	})
	if err != nil && apiErr.Message == "" && apiErr.Details == "" {
		apiErr.Message = strings.TrimSpace(string(payload))
	}
	return apiErr
}
