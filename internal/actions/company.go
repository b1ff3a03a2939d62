package actions

import (
	"context"
	"net/http"

	"github.com/pharmalink/gateway/pkg/pagination"
)

// Company implements the warehouse-side operations.
type Company struct {
	api Caller
}

// NewCompany creates the company action module.
func NewCompany(api Caller) *Company {
	return &Company{api: api}
}

// Warehouse is a company storage location.
type Warehouse struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	City    string `json:"city"`
	Address string `json:"address"`
	Active  bool   `json:"active"`
}

// WarehouseInput is the payload for creating or updating a warehouse.
type WarehouseInput struct {
	Name    string `json:"name" validate:"required,min=2,max=100"`
	City    string `json:"city" validate:"required,min=2,max=100"`
	Address string `json:"address" validate:"required,min=5,max=255"`
}

// Product is a catalog entry offered by a company.
type Product struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Price       float64 `json:"price"`
	Stock       int     `json:"stock"`
	WarehouseID string  `json:"warehouseId"`
}

// ProductInput is the payload for creating or updating a product.
type ProductInput struct {
	Name        string  `json:"name" validate:"required,min=2,max=200"`
	Description string  `json:"description" validate:"max=2000"`
	Price       float64 `json:"price" validate:"required,gt=0"`
	Stock       int     `json:"stock" validate:"gte=0"`
	WarehouseID string  `json:"warehouseId" validate:"required,uuid"`
}

// Offer is a discount a company publishes to pharmacies.
type Offer struct {
	ID        string  `json:"id"`
	ProductID string  `json:"productId"`
	Discount  float64 `json:"discount"`
	ExpiresAt string  `json:"expiresAt,omitempty"`
}

// OfferInput is the payload for publishing an offer.
type OfferInput struct {
	ProductID string  `json:"productId" validate:"required,uuid"`
	Discount  float64 `json:"discount" validate:"required,gt=0,lte=100"`
	ExpiresAt string  `json:"expiresAt" validate:"omitempty"`
}

// ListWarehouses returns the company's warehouses.
func (c *Company) ListWarehouses(ctx context.Context, token string, p pagination.Params) (Response[[]Warehouse], error) {
	return list[Warehouse](ctx, c.api, "company/warehouses", token, p)
}

// CreateWarehouse registers a new warehouse.
func (c *Company) CreateWarehouse(ctx context.Context, token string, in WarehouseInput) (Response[*Warehouse], error) {
	if resp := invalid[*Warehouse](in); resp != nil {
		return *resp, nil
	}
	return call[*Warehouse](ctx, c.api, http.MethodPost, "company/warehouses", in, token)
}

// UpdateWarehouse changes a warehouse.
func (c *Company) UpdateWarehouse(ctx context.Context, token, id string, in WarehouseInput) (Response[*Warehouse], error) {
	if resp := invalid[*Warehouse](in); resp != nil {
		return *resp, nil
	}
	return call[*Warehouse](ctx, c.api, http.MethodPut, "company/warehouses/"+id, in, token)
}

// DeleteWarehouse removes a warehouse.
func (c *Company) DeleteWarehouse(ctx context.Context, token, id string) (Response[struct{}], error) {
	return call[struct{}](ctx, c.api, http.MethodDelete, "company/warehouses/"+id, nil, token)
}

// ListProducts returns the company's catalog.
func (c *Company) ListProducts(ctx context.Context, token string, p pagination.Params) (Response[[]Product], error) {
	return list[Product](ctx, c.api, "company/products", token, p)
}

// CreateProduct adds a catalog entry.
func (c *Company) CreateProduct(ctx context.Context, token string, in ProductInput) (Response[*Product], error) {
	if resp := invalid[*Product](in); resp != nil {
		return *resp, nil
	}
	return call[*Product](ctx, c.api, http.MethodPost, "company/products", in, token)
}

// ListOffers returns the company's published offers.
func (c *Company) ListOffers(ctx context.Context, token string, p pagination.Params) (Response[[]Offer], error) {
	return list[Offer](ctx, c.api, "company/offers", token, p)
}

// CreateOffer publishes a discount.
func (c *Company) CreateOffer(ctx context.Context, token string, in OfferInput) (Response[*Offer], error) {
	if resp := invalid[*Offer](in); resp != nil {
		return *resp, nil
	}
	return call[*Offer](ctx, c.api, http.MethodPost, "company/offers", in, token)
}
