package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/scoins/coinmarket/internal/blob"
	"github.com/scoins/coinmarket/internal/catalog"
	"github.com/scoins/coinmarket/internal/ledger"
	"github.com/scoins/coinmarket/internal/market"
	"github.com/scoins/coinmarket/internal/payment"
	"github.com/scoins/coinmarket/internal/session"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "coinmarket_http_requests_total",
		Help: "Total HTTP requests processed, labeled by status code",
	}, []string{"method", "endpoint", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "coinmarket_http_request_duration_seconds",
		Help:    "Latency distribution of HTTP requests",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	}, []string{"method", "endpoint"})
)

type Handler struct {
	registry *Registry
	issuer   *TokenIssuer
	clock    session.Clock
}

func NewHandler(registry *Registry, issuer *TokenIssuer, clock session.Clock) *Handler {
	if clock == nil {
		clock = session.SystemClock()
	}
	return &Handler{registry: registry, issuer: issuer, clock: clock}
}

type ctxKey int

const identityKey ctxKey = 0

type identity struct {
	UserID string
	Name   string
}

// RequireAuth resolves the Bearer token into the caller's identity.
func (h *Handler) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		tokenString, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			respondWithError(w, http.StatusUnauthorized, "Missing bearer token")
			return
		}
		userID, name, err := h.issuer.Parse(tokenString)
		if err != nil {
			respondWithError(w, http.StatusUnauthorized, "Invalid session token")
			return
		}
		ctx := context.WithValue(r.Context(), identityKey, identity{UserID: userID, Name: name})
		next(w, r.WithContext(ctx))
	}
}

func (h *Handler) entry(r *http.Request) (*Entry, error) {
	id, _ := r.Context().Value(identityKey).(identity)
	return h.registry.Get(r.Context(), id.UserID, id.Name)
}

func (h *Handler) HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// CreateSessionHandler mints a new pseudo-identity and its token.
func (h *Handler) CreateSessionHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.fail(w, r, http.StatusBadRequest, "Malformed JSON body")
		return
	}
	if req.Name == "" {
		req.Name = "Player"
	}

	userID := "user_" + strings.SplitN(uuid.NewString(), "-", 2)[0]
	token, err := h.issuer.Issue(userID, req.Name, h.clock.Now())
	if err != nil {
		h.fail(w, r, http.StatusInternalServerError, "Token issuance failed")
		return
	}

	h.ok(w, r, http.StatusCreated, map[string]string{
		"token":   token,
		"user_id": userID,
		"name":    req.Name,
	})
}

func (h *Handler) GetCatalogHandler(w http.ResponseWriter, r *http.Request) {
	type catalogItem struct {
		catalog.Coin
		Recommended market.PriceRange `json:"recommended_range"`
	}
	defs := catalog.Default()
	items := make([]catalogItem, 0, len(defs))
	for _, def := range defs {
		items = append(items, catalogItem{
			Coin:        def,
			Recommended: market.RecommendedRange(def.BasePrice, def.Rarity),
		})
	}
	h.ok(w, r, http.StatusOK, items)
}

func (h *Handler) BuyFromShopHandler(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues("POST", "/shop/buy"))
	defer timer.ObserveDuration()

	var req struct {
		DefinitionID int `json:"definition_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.fail(w, r, http.StatusBadRequest, "Malformed JSON body")
		return
	}

	e, err := h.entry(r)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	coin, err := e.Session.BuyFromShop(r.Context(), req.DefinitionID)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	h.ok(w, r, http.StatusCreated, coin)
}

func (h *Handler) GetCollectionHandler(w http.ResponseWriter, r *http.Request) {
	e, err := h.entry(r)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	h.ok(w, r, http.StatusOK, map[string]any{
		"balance":    e.Session.Balance(),
		"collection": e.Session.Collection(),
	})
}

func (h *Handler) GetMarketplaceHandler(w http.ResponseWriter, r *http.Request) {
	e, err := h.entry(r)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	filters := market.Filters{
		Rarity: r.URL.Query().Get("rarity"),
		Sort:   r.URL.Query().Get("sort"),
	}
	listings, err := e.Session.MarketplaceView(r.Context(), filters)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	h.ok(w, r, http.StatusOK, map[string]any{
		"listings": listings,
		"stats":    e.Session.MarketStats(),
	})
}

func (h *Handler) CreateListingHandler(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues("POST", "/marketplace/listings"))
	defer timer.ObserveDuration()

	var req struct {
		InstanceID string `json:"instance_id"`
		AskPrice   int64  `json:"ask_price"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.fail(w, r, http.StatusBadRequest, "Malformed JSON body")
		return
	}

	e, err := h.entry(r)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	listing, err := e.Session.ListForSale(r.Context(), req.InstanceID, req.AskPrice)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	h.ok(w, r, http.StatusCreated, listing)
}

func (h *Handler) BuyListingHandler(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues("POST", "/marketplace/listings/{id}/buy"))
	defer timer.ObserveDuration()

	e, err := h.entry(r)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	result, err := e.Session.BuyListing(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	h.ok(w, r, http.StatusOK, result)
}

func (h *Handler) CancelListingHandler(w http.ResponseWriter, r *http.Request) {
	e, err := h.entry(r)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	coin, err := e.Session.CancelListing(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	h.ok(w, r, http.StatusOK, coin)
}

func (h *Handler) GetStatsHandler(w http.ResponseWriter, r *http.Request) {
	e, err := h.entry(r)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	h.ok(w, r, http.StatusOK, map[string]any{
		"balance": e.Session.Balance(),
		"stats":   e.Session.Stats(),
		"rating":  e.Session.Rating(),
	})
}

func (h *Handler) GetPaymentSettingsHandler(w http.ResponseWriter, r *http.Request) {
	e, err := h.entry(r)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	h.ok(w, r, http.StatusOK, map[string]any{
		"settings": e.Payments.Settings(),
		"methods":  payment.Methods(),
	})
}

func (h *Handler) SelectPaymentHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Method string `json:"method"`
		Amount int64  `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.fail(w, r, http.StatusBadRequest, "Malformed JSON body")
		return
	}

	e, err := h.entry(r)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	if err := e.Payments.Select(r.Context(), req.Method, req.Amount); err != nil {
		h.serviceError(w, r, err)
		return
	}
	h.ok(w, r, http.StatusOK, e.Payments.Settings())
}

func (h *Handler) StartPaymentHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount int64 `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.fail(w, r, http.StatusBadRequest, "Malformed JSON body")
		return
	}

	e, err := h.entry(r)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	id, err := e.Payments.Start(req.Amount)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	h.ok(w, r, http.StatusCreated, map[string]string{"payment_id": id})
}

func (h *Handler) ConfirmPaymentHandler(w http.ResponseWriter, r *http.Request) {
	e, err := h.entry(r)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	if err := e.Payments.Confirm(r.Context(), mux.Vars(r)["id"]); err != nil {
		h.serviceError(w, r, err)
		return
	}
	h.ok(w, r, http.StatusOK, map[string]int64{"balance": e.Session.Balance()})
}

// serviceError maps core sentinel errors onto HTTP status codes.
func (h *Handler) serviceError(w http.ResponseWriter, r *http.Request, err error) {
	var persistErr *blob.PersistError
	switch {
	case errors.Is(err, ledger.ErrInsufficientFunds):
		h.fail(w, r, http.StatusUnprocessableEntity, "Insufficient funds")
	case errors.Is(err, session.ErrUnknownCoin),
		errors.Is(err, ledger.ErrCoinNotFound),
		errors.Is(err, market.ErrListingNotFound),
		errors.Is(err, payment.ErrUnknownPayment):
		h.fail(w, r, http.StatusNotFound, "Not found")
	case errors.Is(err, session.ErrAlreadyOwned),
		errors.Is(err, market.ErrListingLimit):
		h.fail(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, market.ErrSelfTrade):
		h.fail(w, r, http.StatusConflict, "Cannot buy own listing")
	case errors.Is(err, market.ErrNotOwner):
		h.fail(w, r, http.StatusForbidden, "Listing belongs to another seller")
	case errors.Is(err, market.ErrPriceTooLow),
		errors.Is(err, session.ErrInvalidAmount),
		errors.Is(err, payment.ErrInvalidAmount),
		errors.Is(err, payment.ErrUnknownMethod),
		errors.Is(err, payment.ErrMethodDisabled),
		errors.Is(err, ledger.ErrInvalidAmount):
		h.fail(w, r, http.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &persistErr):
		h.fail(w, r, http.StatusInternalServerError, "Persistence failure")
	default:
		h.fail(w, r, http.StatusInternalServerError, "Internal Server Error")
	}
}

// endpoint labels metrics with the route template so path parameters
// (listing and payment ids) never become label values.
func endpoint(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tmpl, err := route.GetPathTemplate(); err == nil {
			return tmpl
		}
	}
	return r.URL.Path
}

func (h *Handler) ok(w http.ResponseWriter, r *http.Request, code int, payload interface{}) {
	httpRequestsTotal.WithLabelValues(r.Method, endpoint(r), strconv.Itoa(code)).Inc()
	respondWithJSON(w, code, payload)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, code int, message string) {
	httpRequestsTotal.WithLabelValues(r.Method, endpoint(r), strconv.Itoa(code)).Inc()
	respondWithError(w, code, message)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}
