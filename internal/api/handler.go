package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"comanda/pos/domain"
	"comanda/pos/internal/customers"
	"comanda/pos/internal/realtime"
	"comanda/pos/internal/remote"
	"comanda/pos/internal/restaurant"
)

type ctxKey string

const ctxClaims ctxKey = "claims"

// Remote is every remote endpoint the façade reaches through its stores.
type Remote interface {
	restaurant.API
	customers.API
}

// Authenticator checks credentials and returns the identity they belong to.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (domain.User, bool, error)
}

// History is the local record of closed tables.
type History interface {
	restaurant.HistoryStore
	List(ctx context.Context, companyID string) ([]domain.ClosedTable, error)
}

// Realtime is the part of the realtime channel the façade exposes.
type Realtime interface {
	Status() realtime.Status
	ForceReconnect(ctx context.Context) error
}

// Deps are the collaborators of a Handler. History and Realtime are optional.
type Deps struct {
	Auth     Authenticator
	Remote   Remote
	Mappings *restaurant.MappingStore
	History  History
	Realtime Realtime
	Secret   string
	TokenTTL time.Duration
}

// Handler bundles dependencies for HTTP handlers.
type Handler struct {
	deps Deps

	mu          sync.Mutex
	sessions    map[string]*restaurant.Session
	directories map[string]*customers.Directory
	// revoked maps logged-out token ids to their expiry.
	revoked     map[string]time.Time
}

// New constructs a Handler.
func New(deps Deps) *Handler {
	if deps.TokenTTL <= 0 {
		deps.TokenTTL = 24 * time.Hour
	}
	return &Handler{
		deps:        deps,
		sessions:    make(map[string]*restaurant.Session),
		directories: make(map[string]*customers.Directory),
		revoked:     make(map[string]time.Time),
	}
}

// Router wires up the HTTP API.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}))
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", h.health)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.login)
		r.Group(func(protected chi.Router) {
			protected.Use(h.authMiddleware)
			protected.Post("/logout", h.logout)
		})
	})

	r.Group(func(pr chi.Router) {
		pr.Use(h.authMiddleware)

		pr.Get("/context", h.currentContext)

		pr.Route("/tables", func(r chi.Router) {
			r.Get("/", h.listTables)
			r.Post("/{id}/select", h.selectTable)
			r.Post("/{id}/close", h.closeTable)
			r.Delete("/{id}/orders", h.deleteTableOrders)
		})
		pr.Get("/closed-tables", h.listClosedTables)

		pr.Route("/delivery", func(r chi.Router) {
			r.Post("/select", h.selectDelivery)
			r.Get("/mapping", h.deliveryMapping)
			r.Delete("/mapping", h.clearDeliveryMapping)
			r.Post("/prune", h.pruneDelivery)
		})

		pr.Route("/cart", func(r chi.Router) {
			r.Get("/", h.getCart)
			r.Post("/", h.addToCart)
			r.Delete("/", h.clearCart)
			r.Delete("/{id}", h.removeFromCart)
			r.Post("/submit", h.submitCart)
		})
		pr.Delete("/orders/{id}", h.removeConfirmedItem)
		pr.Post("/print-partial", h.printPartial)

		pr.Route("/customers", func(r chi.Router) {
			r.Get("/", h.listCustomers)
			r.Post("/", h.createCustomer)
			r.Post("/import", h.importCustomers)
			r.Put("/{id}", h.updateCustomer)
			r.Delete("/{id}", h.deleteCustomer)
		})

		pr.Get("/categories", h.listCategories)
		pr.Get("/categories/{id}/products", h.listProducts)

		pr.Route("/sales-records", func(r chi.Router) {
			r.Get("/", h.listSalesRecords)
			r.Post("/", h.createSalesRecord)
		})

		pr.Get("/realtime/status", h.realtimeStatus)
		pr.Post("/realtime/reconnect", h.realtimeReconnect)
	})

	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Authentication helpers

type authClaims struct {
	UserID    string `json:"user_id"`
	Name      string `json:"name"`
	CompanyID string `json:"company_id"`
	jwt.RegisteredClaims
}

func (c *authClaims) user() domain.User {
	return domain.User{ID: c.UserID, Name: c.Name, CompanyID: c.CompanyID}
}

func (h *Handler) generateToken(user domain.User) (string, error) {
	now := time.Now()
	claims := authClaims{
		UserID:    user.ID,
		Name:      user.Name,
		CompanyID: user.CompanyID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(h.deps.TokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(h.deps.Secret))
}

func (h *Handler) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" || !strings.HasPrefix(strings.ToLower(header), "bearer ") {
			respondError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		tokenString := strings.TrimSpace(header[len("Bearer "):])
		token, err := jwt.ParseWithClaims(tokenString, &authClaims{}, func(token *jwt.Token) (interface{}, error) {
			if token.Method != jwt.SigningMethodHS256 {
				return nil, errors.New("unexpected signing method")
			}
			return []byte(h.deps.Secret), nil
		})
		if err != nil || !token.Valid {
			respondError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		claims, ok := token.Claims.(*authClaims)
		if !ok || claims.UserID == "" {
			respondError(w, http.StatusUnauthorized, "invalid token claims")
			return
		}
		if h.isRevoked(claims.ID) {
			respondError(w, http.StatusUnauthorized, "token revoked")
			return
		}
		ctx := context.WithValue(r.Context(), ctxClaims, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func claimsFrom(r *http.Request) *authClaims {
	claims, _ := r.Context().Value(ctxClaims).(*authClaims)
	return claims
}

// session returns the order/table context of the caller, creating it on first use.
func (h *Handler) session(r *http.Request) *restaurant.Session {
	user := claimsFrom(r).user()
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.sessions[user.ID]
	if !ok {
		var opts []restaurant.Option
		if h.deps.History != nil {
			opts = append(opts, restaurant.WithHistory(h.deps.History))
		}
		s = restaurant.NewSession(h.deps.Remote, h.deps.Mappings, user, opts...)
		h.sessions[user.ID] = s
	}
	return s
}

// directory returns the customer cache of the caller's company.
func (h *Handler) directory(r *http.Request) *customers.Directory {
	company := claimsFrom(r).CompanyID
	h.mu.Lock()
	defer h.mu.Unlock()
	d, ok := h.directories[company]
	if !ok {
		d = customers.New(h.deps.Remote, company)
		h.directories[company] = d
	}
	return d
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Username == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	user, ok, err := h.deps.Auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}
	if !ok {
		respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := h.generateToken(user)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to generate token")
		return
	}
	respondJSON(w, http.StatusOK, loginResponse{Token: token, User: user})
}

// logout ends the caller's token and order context. Other users' sessions,
// the terminal identity and the realtime socket are left alone.
func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)
	expires := time.Now().Add(h.deps.TokenTTL)
	if claims.ExpiresAt != nil {
		expires = claims.ExpiresAt.Time
	}

	h.mu.Lock()
	now := time.Now()
	for id, exp := range h.revoked {
		if now.After(exp) {
			delete(h.revoked, id)
		}
	}
	if claims.ID != "" {
		h.revoked[claims.ID] = expires
	}
	if s, ok := h.sessions[claims.UserID]; ok {
		s.Reset()
		delete(h.sessions, claims.UserID)
	}
	h.mu.Unlock()

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) isRevoked(tokenID string) bool {
	if tokenID == "" {
		return false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.revoked[tokenID]
	return ok
}

func (h *Handler) realtimeStatus(w http.ResponseWriter, r *http.Request) {
	if h.deps.Realtime == nil {
		respondJSON(w, http.StatusOK, realtime.Status{ConnectionError: "realtime disabled"})
		return
	}
	respondJSON(w, http.StatusOK, h.deps.Realtime.Status())
}

func (h *Handler) realtimeReconnect(w http.ResponseWriter, r *http.Request) {
	if h.deps.Realtime == nil {
		respondError(w, http.StatusServiceUnavailable, "realtime disabled")
		return
	}
	if err := h.deps.Realtime.ForceReconnect(r.Context()); err != nil {
		respondJSON(w, http.StatusBadGateway, h.deps.Realtime.Status())
		return
	}
	respondJSON(w, http.StatusOK, h.deps.Realtime.Status())
}

// Helpers

// statusFor maps a store error to the status the UI sees.
func statusFor(err error) int {
	var statusErr *remote.StatusError
	switch {
	case errors.As(err, &statusErr):
		return http.StatusBadGateway
	case remote.IsNetworkError(err):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

type fetchResponse struct {
	Outcome restaurant.Outcome `json:"outcome"`
	Data    any                `json:"data"`
}

// respondFetch writes a read result. Failed reads become errors; every other
// outcome is returned with the current data.
func respondFetch(w http.ResponseWriter, res restaurant.FetchResult, data any) {
	if res.Outcome == restaurant.Failed {
		respondError(w, statusFor(res.Err), res.Err.Error())
		return
	}
	respondJSON(w, http.StatusOK, fetchResponse{Outcome: res.Outcome, Data: data})
}

func decodeJSON(r *http.Request, dest interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dest)
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	_ = encoder.Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
