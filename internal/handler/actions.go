package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pharmalink/gateway/internal/actions"
	"github.com/pharmalink/gateway/internal/proxy"
	"github.com/pharmalink/gateway/internal/session"
	apperrors "github.com/pharmalink/gateway/pkg/errors"
	"github.com/pharmalink/gateway/pkg/httputil"
	"github.com/pharmalink/gateway/pkg/pagination"
)

// maxActionBody caps request bodies on action endpoints.
const maxActionBody = 1 << 20

// Actions exposes the action modules over HTTP. Every endpoint answers with
// the uniform envelope: business and validation failures resolve inside the
// envelope with a 200, only transport failures surface as HTTP errors.
type Actions struct {
	auth     *actions.Auth
	company  *actions.Company
	pharmacy *actions.Pharmacy
	owner    *actions.Owner
	sessions *session.Store
	cookie   proxy.CookieConfig
	logger   *slog.Logger
}

// NewActions wires the action modules into an HTTP surface.
func NewActions(
	auth *actions.Auth,
	company *actions.Company,
	pharmacy *actions.Pharmacy,
	owner *actions.Owner,
	sessions *session.Store,
	cookie proxy.CookieConfig,
	logger *slog.Logger,
) *Actions {
	return &Actions{
		auth:     auth,
		company:  company,
		pharmacy: pharmacy,
		owner:    owner,
		sessions: sessions,
		cookie:   cookie,
		logger:   logger,
	}
}

// Routes registers the action endpoints on the given router.
func (h *Actions) Routes(r chi.Router) {
	r.Post("/auth/login", h.login)
	r.Post("/auth/register", h.register)
	r.Post("/auth/logout", h.logout)
	r.Get("/auth/profile", h.profile)
	r.Put("/auth/profile", h.updateProfile)

	r.Route("/company", func(r chi.Router) {
		r.Get("/warehouses", h.listWarehouses)
		r.Post("/warehouses", h.createWarehouse)
		r.Put("/warehouses/{id}", h.updateWarehouse)
		r.Delete("/warehouses/{id}", h.deleteWarehouse)
		r.Get("/products", h.listProducts)
		r.Post("/products", h.createProduct)
		r.Get("/offers", h.listOffers)
		r.Post("/offers", h.createOffer)
	})

	r.Route("/pharmacy", func(r chi.Router) {
		r.Get("/branches", h.listBranches)
		r.Post("/branches", h.createBranch)
		r.Delete("/branches/{id}", h.deleteBranch)
		r.Get("/orders", h.listOrders)
		r.Post("/orders", h.placeOrder)
		r.Post("/orders/{id}/cancel", h.cancelOrder)
	})

	r.Route("/owner", func(r chi.Router) {
		r.Get("/companies", h.listCompanies)
		r.Get("/pharmacies", h.listPharmacies)
		r.Put("/accounts/{id}/status", h.setAccountStatus)
	})
}

func (h *Actions) token(r *http.Request) string {
	return proxy.TokenFromCookie(r, h.cookie.Name)
}

// decode reads a JSON body into dst. A malformed body is a caller bug, not a
// business failure, so it surfaces as a 400 rather than an envelope.
func decode(r *http.Request, dst any) error {
	defer r.Body.Close()
	if err := json.NewDecoder(io.LimitReader(r.Body, maxActionBody)).Decode(dst); err != nil {
		return apperrors.InvalidInput("request body is not valid JSON")
	}
	return nil
}

// writeAction sends the envelope or maps a transport error to an HTTP error.
func writeAction[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger, resp actions.Response[T], err error) {
	if err != nil {
		httputil.WriteError(w, r, err, logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Actions) login(w http.ResponseWriter, r *http.Request) {
	var in actions.LoginInput
	if err := decode(r, &in); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	resp, err := h.auth.Login(r.Context(), in)
	if err == nil && resp.Success && resp.Data != nil && resp.Data.Token != "" {
		proxy.SetAuthCookie(w, h.cookie, resp.Data.Token)
		h.sessions.Login(r.Context(), resp.Data.Token)
	}
	writeAction(w, r, h.logger, resp, err)
}

func (h *Actions) register(w http.ResponseWriter, r *http.Request) {
	var in actions.RegisterInput
	if err := decode(r, &in); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	resp, err := h.auth.Register(r.Context(), in)
	// The backend signs new accounts in; adopt the token the same way login
	// does so registration lands on the dashboard authenticated.
	if err == nil && resp.Success && resp.Data != nil && resp.Data.Token != "" {
		proxy.SetAuthCookie(w, h.cookie, resp.Data.Token)
		h.sessions.Login(r.Context(), resp.Data.Token)
	}
	writeAction(w, r, h.logger, resp, err)
}

func (h *Actions) logout(w http.ResponseWriter, r *http.Request) {
	token := h.token(r)
	h.sessions.Logout(r.Context(), token, func(ctx context.Context) error {
		return h.auth.Logout(ctx, token)
	})
	proxy.ClearAuthCookie(w, h.cookie)
	httputil.WriteJSON(w, http.StatusOK, actions.OK(struct{}{}))
}

func (h *Actions) profile(w http.ResponseWriter, r *http.Request) {
	resp, err := h.auth.Profile(r.Context(), h.token(r))
	writeAction(w, r, h.logger, resp, err)
}

func (h *Actions) updateProfile(w http.ResponseWriter, r *http.Request) {
	var in actions.ProfileInput
	if err := decode(r, &in); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	token := h.token(r)
	resp, err := h.auth.UpdateProfile(r.Context(), token, in)
	if err == nil && resp.Success {
		// Identity data changed; the next session read refetches.
		h.sessions.Invalidate(r.Context(), token)
	}
	writeAction(w, r, h.logger, resp, err)
}

func (h *Actions) listWarehouses(w http.ResponseWriter, r *http.Request) {
	resp, err := h.company.ListWarehouses(r.Context(), h.token(r), pagination.FromRequest(r))
	writeAction(w, r, h.logger, resp, err)
}

func (h *Actions) createWarehouse(w http.ResponseWriter, r *http.Request) {
	var in actions.WarehouseInput
	if err := decode(r, &in); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	resp, err := h.company.CreateWarehouse(r.Context(), h.token(r), in)
	writeAction(w, r, h.logger, resp, err)
}

func (h *Actions) updateWarehouse(w http.ResponseWriter, r *http.Request) {
	var in actions.WarehouseInput
	if err := decode(r, &in); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	resp, err := h.company.UpdateWarehouse(r.Context(), h.token(r), chi.URLParam(r, "id"), in)
	writeAction(w, r, h.logger, resp, err)
}

func (h *Actions) deleteWarehouse(w http.ResponseWriter, r *http.Request) {
	resp, err := h.company.DeleteWarehouse(r.Context(), h.token(r), chi.URLParam(r, "id"))
	writeAction(w, r, h.logger, resp, err)
}

func (h *Actions) listProducts(w http.ResponseWriter, r *http.Request) {
	resp, err := h.company.ListProducts(r.Context(), h.token(r), pagination.FromRequest(r))
	writeAction(w, r, h.logger, resp, err)
}

func (h *Actions) createProduct(w http.ResponseWriter, r *http.Request) {
	var in actions.ProductInput
	if err := decode(r, &in); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	resp, err := h.company.CreateProduct(r.Context(), h.token(r), in)
	writeAction(w, r, h.logger, resp, err)
}

func (h *Actions) listOffers(w http.ResponseWriter, r *http.Request) {
	resp, err := h.company.ListOffers(r.Context(), h.token(r), pagination.FromRequest(r))
	writeAction(w, r, h.logger, resp, err)
}

func (h *Actions) createOffer(w http.ResponseWriter, r *http.Request) {
	var in actions.OfferInput
	if err := decode(r, &in); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	resp, err := h.company.CreateOffer(r.Context(), h.token(r), in)
	writeAction(w, r, h.logger, resp, err)
}

func (h *Actions) listBranches(w http.ResponseWriter, r *http.Request) {
	resp, err := h.pharmacy.ListBranches(r.Context(), h.token(r), pagination.FromRequest(r))
	writeAction(w, r, h.logger, resp, err)
}

func (h *Actions) createBranch(w http.ResponseWriter, r *http.Request) {
	var in actions.BranchInput
	if err := decode(r, &in); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	resp, err := h.pharmacy.CreateBranch(r.Context(), h.token(r), in)
	writeAction(w, r, h.logger, resp, err)
}

func (h *Actions) deleteBranch(w http.ResponseWriter, r *http.Request) {
	resp, err := h.pharmacy.DeleteBranch(r.Context(), h.token(r), chi.URLParam(r, "id"))
	writeAction(w, r, h.logger, resp, err)
}

func (h *Actions) listOrders(w http.ResponseWriter, r *http.Request) {
	resp, err := h.pharmacy.ListOrders(r.Context(), h.token(r), pagination.FromRequest(r))
	writeAction(w, r, h.logger, resp, err)
}

func (h *Actions) placeOrder(w http.ResponseWriter, r *http.Request) {
	var in actions.OrderInput
	if err := decode(r, &in); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	resp, err := h.pharmacy.PlaceOrder(r.Context(), h.token(r), in)
	writeAction(w, r, h.logger, resp, err)
}

func (h *Actions) cancelOrder(w http.ResponseWriter, r *http.Request) {
	resp, err := h.pharmacy.CancelOrder(r.Context(), h.token(r), chi.URLParam(r, "id"))
	writeAction(w, r, h.logger, resp, err)
}

func (h *Actions) listCompanies(w http.ResponseWriter, r *http.Request) {
	resp, err := h.owner.ListCompanies(r.Context(), h.token(r), pagination.FromRequest(r))
	writeAction(w, r, h.logger, resp, err)
}

func (h *Actions) listPharmacies(w http.ResponseWriter, r *http.Request) {
	resp, err := h.owner.ListPharmacies(r.Context(), h.token(r), pagination.FromRequest(r))
	writeAction(w, r, h.logger, resp, err)
}

func (h *Actions) setAccountStatus(w http.ResponseWriter, r *http.Request) {
	var in actions.AccountStatusInput
	if err := decode(r, &in); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	resp, err := h.owner.SetAccountStatus(r.Context(), h.token(r), chi.URLParam(r, "id"), in)
	writeAction(w, r, h.logger, resp, err)
}
