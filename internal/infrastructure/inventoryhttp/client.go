package inventoryhttp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	dominv "github.com/Zhima-Mochi/minishop-orchestrator/internal/domain/inventory"
	"github.com/Zhima-Mochi/minishop-orchestrator/internal/infrastructure/httpclient"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	Peer            = "inventory"
	endpointProduct = "GET /product/{id}"
	endpointReduce  = "POST /inventory/reduce-stock/{id}"
)

// Client implements the inventory Catalog port over HTTP.
type Client struct {
	http *httpclient.Client
}

func New(c *httpclient.Client) *Client {
	return &Client{http: c}
}

type productDTO struct {
	Name       string       `json:"name"`
	Brand      string       `json:"brand"`
	PriceInSGD *json.Number `json:"priceInSGD"`
	Stock      *json.Number `json:"stock"`
}

func (c *Client) GetProduct(ctx context.Context, id uuid.UUID) (*dominv.Product, error) {
	resp, err := c.http.Do(ctx, http.MethodGet, endpointProduct, "/product/"+id.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", dominv.ErrUnavailable, err)
	}
	if !resp.OK() {
		return nil, fmt.Errorf("%w: %w", dominv.ErrUnavailable, c.http.StatusErr(endpointProduct, resp))
	}

	var dto productDTO
	if err := resp.Decode(&dto); err != nil {
		return nil, fmt.Errorf("%w: product %s: %w", dominv.ErrMalformedProduct, id, err)
	}
	if dto.PriceInSGD == nil {
		return nil, fmt.Errorf("%w: product %s has no priceInSGD", dominv.ErrMalformedProduct, id)
	}
	price, err := decimal.NewFromString(dto.PriceInSGD.String())
	if err != nil || price.IsNegative() {
		return nil, fmt.Errorf("%w: product %s has invalid price %q", dominv.ErrMalformedProduct, id, dto.PriceInSGD.String())
	}
	if dto.Stock == nil {
		return nil, fmt.Errorf("%w: product %s has no stock", dominv.ErrMalformedProduct, id)
	}
	stock, err := dto.Stock.Int64()
	if err != nil {
		return nil, fmt.Errorf("%w: product %s has invalid stock %q", dominv.ErrMalformedProduct, id, dto.Stock.String())
	}

	return &dominv.Product{
		ID:    id,
		Name:  dto.Name,
		Brand: dto.Brand,
		Price: price,
		Stock: int(stock),
	}, nil
}

type reduceRequest struct {
	Quantity int `json:"quantity"`
}

func (c *Client) ReduceStock(ctx context.Context, id uuid.UUID, quantity int) error {
	resp, err := c.http.Do(ctx, http.MethodPost, endpointReduce, "/inventory/reduce-stock/"+id.String(), reduceRequest{Quantity: quantity})
	if err != nil {
		return fmt.Errorf("%w: %w", dominv.ErrUnavailable, err)
	}
	if !resp.OK() {
		return fmt.Errorf("%w: %w", dominv.ErrUnavailable, c.http.StatusErr(endpointReduce, resp))
	}
	return nil
}
