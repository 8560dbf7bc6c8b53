package paymenthttp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	dompay "github.com/Zhima-Mochi/minishop-orchestrator/internal/domain/payment"
	"github.com/Zhima-Mochi/minishop-orchestrator/internal/infrastructure/httpclient"
)

const (
	Peer            = "payment"
	endpointPayment = "POST /payments"
)

var errNoOrder = errors.New("response carries no order record")

// Client implements the payment Processor port over HTTP.
type Client struct {
	http *httpclient.Client
}

func New(c *httpclient.Client) *Client {
	return &Client{http: c}
}

type paymentRequest struct {
	Cart            map[string]int `json:"cart"`
	PaymentMethodID string         `json:"paymentMethodId"`
	Amount          json.Number    `json:"amount"`
	Currency        string         `json:"currency"`
}

type paymentResponse struct {
	Success         *bool           `json:"success"`
	ClientSecret    string          `json:"clientSecret"`
	PaymentIntentID string          `json:"paymentIntentId"`
	Order           json.RawMessage `json:"order"`
}

type orderRecord struct {
	ID      json.RawMessage `json:"id"`
	Receipt *struct {
		PaymentIntentID string `json:"paymentIntentId"`
	} `json:"receipt"`
}

// Capture submits the charge once. 5xx answers and transport failures are
// ErrUnavailable; every other non-success answer is ErrDeclined.
func (c *Client) Capture(ctx context.Context, charge dompay.Charge) (*dompay.Receipt, error) {
	resp, err := c.http.Do(ctx, http.MethodPost, endpointPayment, "/payments", paymentRequest{
		Cart:            charge.Cart,
		PaymentMethodID: charge.PaymentMethodID,
		Amount:          json.Number(charge.Amount.String()),
		Currency:        charge.Currency,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", dompay.ErrUnavailable, err)
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("%w: %w", dompay.ErrUnavailable, c.http.StatusErr(endpointPayment, resp))
	}
	if !resp.OK() {
		return nil, fmt.Errorf("%w: %w", dompay.ErrDeclined, c.http.StatusErr(endpointPayment, resp))
	}

	var out paymentResponse
	if err := resp.Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decode response: %w", dompay.ErrDeclined, err)
	}
	if out.Success != nil && !*out.Success {
		return nil, fmt.Errorf("%w: collaborator reported success=false", dompay.ErrDeclined)
	}
	if len(out.Order) == 0 || bytes.Equal(bytes.TrimSpace(out.Order), []byte("null")) {
		return nil, fmt.Errorf("%w: %w", dompay.ErrDeclined, errNoOrder)
	}

	var rec orderRecord
	if err := json.Unmarshal(out.Order, &rec); err != nil {
		return nil, fmt.Errorf("%w: order record: %w", dompay.ErrDeclined, err)
	}
	intentID := out.PaymentIntentID
	if intentID == "" && rec.Receipt != nil {
		intentID = rec.Receipt.PaymentIntentID
	}

	return &dompay.Receipt{
		OrderID:         idString(rec.ID),
		PaymentIntentID: intentID,
		ClientSecret:    out.ClientSecret,
		OrderRecord:     out.Order,
	}, nil
}

// idString keeps numeric ids as their literal JSON text.
func idString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
