package actions

import (
	"context"
	"net/http"

	"github.com/pharmalink/gateway/pkg/pagination"
)

// Owner implements the admin-side operations.
type Owner struct {
	api Caller
}

// NewOwner creates the owner action module.
func NewOwner(api Caller) *Owner {
	return &Owner{api: api}
}

// Account is a tenant account as the admin side sees it.
type Account struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	UserType string `json:"userType"`
	Status   string `json:"status"`
}

// AccountStatusInput changes a tenant account's standing.
type AccountStatusInput struct {
	Status string `json:"status" validate:"required,oneof=approved suspended pending"`
}

// ListCompanies returns all company accounts.
func (o *Owner) ListCompanies(ctx context.Context, token string, p pagination.Params) (Response[[]Account], error) {
	return list[Account](ctx, o.api, "owner/companies", token, p)
}

// ListPharmacies returns all pharmacy accounts.
func (o *Owner) ListPharmacies(ctx context.Context, token string, p pagination.Params) (Response[[]Account], error) {
	return list[Account](ctx, o.api, "owner/pharmacies", token, p)
}

// SetAccountStatus approves or suspends a tenant account.
func (o *Owner) SetAccountStatus(ctx context.Context, token, accountID string, in AccountStatusInput) (Response[*Account], error) {
	if resp := invalid[*Account](in); resp != nil {
		return *resp, nil
	}
	return call[*Account](ctx, o.api, http.MethodPut, "owner/accounts/"+accountID+"/status", in, token)
}
