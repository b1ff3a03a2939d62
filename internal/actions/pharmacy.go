package actions

import (
	"context"
	"net/http"

	"github.com/pharmalink/gateway/pkg/pagination"
)

// Pharmacy implements the pharmacy-side operations.
type Pharmacy struct {
	api Caller
}

// NewPharmacy creates the pharmacy action module.
func NewPharmacy(api Caller) *Pharmacy {
	return &Pharmacy{api: api}
}

// Branch is a pharmacy location.
type Branch struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	City    string `json:"city"`
	Address string `json:"address"`
	Phone   string `json:"phone,omitempty"`
}

// BranchInput is the payload for creating or updating a branch.
type BranchInput struct {
	Name    string `json:"name" validate:"required,min=2,max=100"`
	City    string `json:"city" validate:"required,min=2,max=100"`
	Address string `json:"address" validate:"required,min=5,max=255"`
	Phone   string `json:"phone" validate:"omitempty,e164"`
}

// OrderItem is one product line in an order.
type OrderItem struct {
	ProductID string `json:"productId" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"required,gt=0"`
}

// OrderInput is the payload for placing an order against a warehouse.
type OrderInput struct {
	BranchID    string      `json:"branchId" validate:"required,uuid"`
	WarehouseID string      `json:"warehouseId" validate:"required,uuid"`
	Items       []OrderItem `json:"items" validate:"required,min=1,dive"`
}

// Order is a placed supply order.
type Order struct {
	ID          string      `json:"id"`
	BranchID    string      `json:"branchId"`
	WarehouseID string      `json:"warehouseId"`
	Status      string      `json:"status"`
	Items       []OrderItem `json:"items"`
	Total       float64     `json:"total"`
}

// ListBranches returns the pharmacy's branches.
func (p *Pharmacy) ListBranches(ctx context.Context, token string, pg pagination.Params) (Response[[]Branch], error) {
	return list[Branch](ctx, p.api, "pharmacy/branches", token, pg)
}

// CreateBranch registers a new branch.
func (p *Pharmacy) CreateBranch(ctx context.Context, token string, in BranchInput) (Response[*Branch], error) {
	if resp := invalid[*Branch](in); resp != nil {
		return *resp, nil
	}
	return call[*Branch](ctx, p.api, http.MethodPost, "pharmacy/branches", in, token)
}

// DeleteBranch removes a branch.
func (p *Pharmacy) DeleteBranch(ctx context.Context, token, id string) (Response[struct{}], error) {
	return call[struct{}](ctx, p.api, http.MethodDelete, "pharmacy/branches/"+id, nil, token)
}

// ListOrders returns the pharmacy's orders.
func (p *Pharmacy) ListOrders(ctx context.Context, token string, pg pagination.Params) (Response[[]Order], error) {
	return list[Order](ctx, p.api, "pharmacy/orders", token, pg)
}

// PlaceOrder submits a supply order.
func (p *Pharmacy) PlaceOrder(ctx context.Context, token string, in OrderInput) (Response[*Order], error) {
	if resp := invalid[*Order](in); resp != nil {
		return *resp, nil
	}
	return call[*Order](ctx, p.api, http.MethodPost, "pharmacy/orders", in, token)
}

// CancelOrder cancels a pending order.
func (p *Pharmacy) CancelOrder(ctx context.Context, token, id string) (Response[*Order], error) {
	return call[*Order](ctx, p.api, http.MethodDelete, "pharmacy/orders/"+id, nil, token)
}
