package promotionhttp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	dompromo "github.com/Zhima-Mochi/minishop-orchestrator/internal/domain/promotion"
	"github.com/Zhima-Mochi/minishop-orchestrator/internal/infrastructure/httpclient"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	Peer          = "promotions"
	endpointApply = "POST /promotions/apply"
)

// Client implements the promotion Quoter port over HTTP.
type Client struct {
	http *httpclient.Client
}

func New(c *httpclient.Client) *Client {
	return &Client{http: c}
}

type applyItem struct {
	ProductID string      `json:"productId"`
	Quantity  int         `json:"quantity"`
	UnitPrice json.Number `json:"unitPrice"`
}

// applyRequest always carries "now"; null lets the service use its own clock.
type applyRequest struct {
	Now   *string     `json:"now"`
	Items []applyItem `json:"items"`
}

type appliedItem struct {
	ProductID      string       `json:"productId"`
	DiscountRate   *json.Number `json:"discountRate"`
	DiscountAmount *json.Number `json:"discountAmount"`
	FinalUnitPrice *json.Number `json:"finalUnitPrice"`
}

type applyResponse struct {
	Items *[]appliedItem `json:"items"`
}

func (c *Client) Quote(ctx context.Context, req dompromo.QuoteRequest) (*dompromo.Quote, error) {
	body := applyRequest{Items: make([]applyItem, 0, len(req.Lines))}
	if req.EvaluatedAt != nil {
		now := req.EvaluatedAt.UTC().Format(time.RFC3339)
		body.Now = &now
	}
	for _, l := range req.Lines {
		body.Items = append(body.Items, applyItem{
			ProductID: l.ProductID.String(),
			Quantity:  l.Quantity,
			UnitPrice: json.Number(l.UnitPrice.String()),
		})
	}

	resp, err := c.http.Do(ctx, http.MethodPost, endpointApply, "/promotions/apply", body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", dompromo.ErrUnavailable, err)
	}
	if !resp.OK() {
		return nil, fmt.Errorf("%w: %w", dompromo.ErrUnavailable, c.http.StatusErr(endpointApply, resp))
	}

	var out applyResponse
	if err := resp.Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: %w", dompromo.ErrMalformedQuote, err)
	}
	if out.Items == nil {
		return nil, fmt.Errorf("%w: response has no items", dompromo.ErrMalformedQuote)
	}

	quote := &dompromo.Quote{Lines: make([]dompromo.QuotedLine, 0, len(*out.Items))}
	for i, it := range *out.Items {
		line, err := toQuotedLine(it)
		if err != nil {
			return nil, fmt.Errorf("%w: item %d: %w", dompromo.ErrMalformedQuote, i, err)
		}
		quote.Lines = append(quote.Lines, line)
	}
	return quote, nil
}

func toQuotedLine(it appliedItem) (dompromo.QuotedLine, error) {
	id, err := uuid.Parse(it.ProductID)
	if err != nil {
		return dompromo.QuotedLine{}, fmt.Errorf("productId %q: %w", it.ProductID, err)
	}
	if it.DiscountAmount == nil {
		return dompromo.QuotedLine{}, fmt.Errorf("product %s: discountAmount missing", id)
	}
	amount, err := decimal.NewFromString(it.DiscountAmount.String())
	if err != nil {
		return dompromo.QuotedLine{}, fmt.Errorf("product %s: discountAmount: %w", id, err)
	}
	rate, err := optionalDecimal(it.DiscountRate)
	if err != nil {
		return dompromo.QuotedLine{}, fmt.Errorf("product %s: discountRate: %w", id, err)
	}
	final, err := optionalDecimal(it.FinalUnitPrice)
	if err != nil {
		return dompromo.QuotedLine{}, fmt.Errorf("product %s: finalUnitPrice: %w", id, err)
	}
	return dompromo.QuotedLine{
		ProductID:      id,
		DiscountRate:   rate,
		DiscountAmount: amount,
		FinalUnitPrice: final,
	}, nil
}

func optionalDecimal(n *json.Number) (decimal.Decimal, error) {
	if n == nil {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(n.String())
}
