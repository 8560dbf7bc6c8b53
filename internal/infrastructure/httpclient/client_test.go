package httpclient_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Zhima-Mochi/minishop-orchestrator/internal/infrastructure/httpclient"
	"github.com/Zhima-Mochi/minishop-orchestrator/internal/observability/logctx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoSendsJSONAndForwardsRequestID(t *testing.T) {
	var gotBody map[string]any
	var gotHeader http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Clone()
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		assert.Equal(t, "/api/inventory/reduce-stock/abc", r.URL.Path)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"price":10.10}`))
	}))
	defer srv.Close()

	c := httpclient.New("inventory", srv.URL+"/api/", srv.Client(), nil)
	ctx := logctx.WithRequestID(context.Background(), "req-7")

	resp, err := c.Do(ctx, http.MethodPost, "POST /inventory/reduce-stock/{id}", "/inventory/reduce-stock/abc", map[string]int{"quantity": 2})

	require.NoError(t, err)
	assert.True(t, resp.OK())
	assert.Equal(t, "req-7", gotHeader.Get("X-Request-ID"))
	assert.Equal(t, "application/json", gotHeader.Get("Content-Type"))
	assert.EqualValues(t, 2, gotBody["quantity"])

	var decoded struct {
		Price json.Number `json:"price"`
	}
	require.NoError(t, resp.Decode(&decoded))
	assert.Equal(t, "10.10", decoded.Price.String())
}

func TestDoReturnsNon2xxWithoutError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer srv.Close()
	c := httpclient.New("payment", srv.URL, srv.Client(), nil)

	resp, err := c.Do(context.Background(), http.MethodGet, "GET /x", "/x", nil)

	require.NoError(t, err)
	assert.False(t, resp.OK())
	assert.Contains(t, c.StatusErr("GET /x", resp).Error(), "unexpected status 503")
}

func TestDoReportsTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := httpclient.New("promotions", url, nil, nil).Do(context.Background(), http.MethodGet, "GET /x", "/x", nil)

	assert.Error(t, err)
}
