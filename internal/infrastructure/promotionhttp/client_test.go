package promotionhttp_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	dompromo "github.com/Zhima-Mochi/minishop-orchestrator/internal/domain/promotion"
	"github.com/Zhima-Mochi/minishop-orchestrator/internal/infrastructure/httpclient"
	"github.com/Zhima-Mochi/minishop-orchestrator/internal/infrastructure/promotionhttp"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T, h http.HandlerFunc) *promotionhttp.Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return promotionhttp.New(httpclient.New(promotionhttp.Peer, srv.URL, srv.Client(), nil))
}

func TestQuoteSendsBasketAndParsesLines(t *testing.T) {
	p1, p2 := uuid.New(), uuid.New()
	var sent map[string]json.RawMessage
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/promotions/apply", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&sent))
		_, _ = w.Write([]byte(`{"items":[
			{"productId":"` + p1.String() + `","discountRate":0.1,"discountAmount":1.00,"finalUnitPrice":9.00},
			{"productId":"` + p2.String() + `","discountRate":0,"discountAmount":0,"finalUnitPrice":15}
		]}`))
	})

	q, err := c.Quote(context.Background(), dompromo.QuoteRequest{Lines: []dompromo.QuoteLine{
		{ProductID: p1, Quantity: 2, UnitPrice: decimal.RequireFromString("10.00")},
		{ProductID: p2, Quantity: 1, UnitPrice: decimal.RequireFromString("15")},
	}})

	require.NoError(t, err)
	require.Len(t, q.Lines, 2)
	assert.Equal(t, p1, q.Lines[0].ProductID)
	assert.Equal(t, "1", q.Lines[0].DiscountAmount.String())
	assert.Equal(t, "1", q.TotalDiscount().String())
	assert.JSONEq(t, "null", string(sent["now"]))
	assert.JSONEq(t, `[{"productId":"`+p1.String()+`","quantity":2,"unitPrice":10},{"productId":"`+p2.String()+`","quantity":1,"unitPrice":15}]`, string(sent["items"]))
}

func TestQuoteSendsEvaluationTime(t *testing.T) {
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	var sent struct {
		Now *string `json:"now"`
	}
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&sent)
		_, _ = w.Write([]byte(`{"items":[]}`))
	})

	_, err := c.Quote(context.Background(), dompromo.QuoteRequest{EvaluatedAt: &at})

	require.NoError(t, err)
	require.NotNil(t, sent.Now)
	assert.Equal(t, "2025-03-01T12:00:00Z", *sent.Now)
}

func TestQuoteContractViolations(t *testing.T) {
	id := uuid.New().String()
	for name, body := range map[string]string{
		"missing items":    `{}`,
		"missing discount": `{"items":[{"productId":"` + id + `"}]}`,
		"text discount":    `{"items":[{"productId":"` + id + `","discountAmount":"lots"}]}`,
		"bad product id":   `{"items":[{"productId":"nope","discountAmount":1}]}`,
	} {
		t.Run(name, func(t *testing.T) {
			c := newClient(t, func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte(body)) })
			_, err := c.Quote(context.Background(), dompromo.QuoteRequest{})
			assert.ErrorIs(t, err, dompromo.ErrMalformedQuote)
		})
	}
}

func TestQuoteNon2xxIsUnavailable(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusBadGateway) })

	_, err := c.Quote(context.Background(), dompromo.QuoteRequest{})

	assert.ErrorIs(t, err, dompromo.ErrUnavailable)
}
