package paymenthttp_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	dompay "github.com/Zhima-Mochi/minishop-orchestrator/internal/domain/payment"
	"github.com/Zhima-Mochi/minishop-orchestrator/internal/infrastructure/httpclient"
	"github.com/Zhima-Mochi/minishop-orchestrator/internal/infrastructure/paymenthttp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T, h http.HandlerFunc) *paymenthttp.Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return paymenthttp.New(httpclient.New(paymenthttp.Peer, srv.URL, srv.Client(), nil))
}

var charge = dompay.Charge{
	Cart:            map[string]int{"p1": 2},
	PaymentMethodID: "pm_card_visa",
	Amount:          decimal.RequireFromString("15.50"),
	Currency:        "sgd",
}

func TestCaptureReturnsReceipt(t *testing.T) {
	var sent map[string]json.RawMessage
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/payments", r.URL.Path)
		_ = json.NewDecoder(r.Body).Decode(&sent)
		_, _ = w.Write([]byte(`{"clientSecret":"pi_1_secret","order":{"id":"0d5f","totalPrice":15.5,"receipt":{"paymentIntentId":"pi_1"}}}`))
	})

	rec, err := c.Capture(context.Background(), charge)

	require.NoError(t, err)
	assert.Equal(t, "0d5f", rec.OrderID)
	assert.Equal(t, "pi_1", rec.PaymentIntentID)
	assert.Equal(t, "pi_1_secret", rec.ClientSecret)
	assert.JSONEq(t, `{"id":"0d5f","totalPrice":15.5,"receipt":{"paymentIntentId":"pi_1"}}`, string(rec.OrderRecord))
	assert.Equal(t, "15.5", string(sent["amount"]))
	assert.JSONEq(t, `{"p1":2}`, string(sent["cart"]))
	assert.JSONEq(t, `"pm_card_visa"`, string(sent["paymentMethodId"]))
}

func TestCaptureClassification(t *testing.T) {
	cases := map[string]struct {
		status int
		body   string
		want   error
	}{
		"402":           {status: http.StatusPaymentRequired, body: `{"error":"card_declined"}`, want: dompay.ErrDeclined},
		"400":           {status: http.StatusBadRequest, body: `{}`, want: dompay.ErrDeclined},
		"success false": {status: http.StatusOK, body: `{"success":false,"order":{"id":"x"}}`, want: dompay.ErrDeclined},
		"missing order": {status: http.StatusOK, body: `{"clientSecret":"s"}`, want: dompay.ErrDeclined},
		"null order":    {status: http.StatusOK, body: `{"order":null}`, want: dompay.ErrDeclined},
		"503":           {status: http.StatusServiceUnavailable, body: ``, want: dompay.ErrUnavailable},
		"500":           {status: http.StatusInternalServerError, body: `boom`, want: dompay.ErrUnavailable},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			c := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			})
			_, err := c.Capture(context.Background(), charge)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestCaptureKeepsNumericOrderIDVerbatim(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"clientSecret":"s","order":{"id":12345678}}`))
	})

	rec, err := c.Capture(context.Background(), charge)

	require.NoError(t, err)
	assert.Equal(t, "12345678", rec.OrderID)
}
