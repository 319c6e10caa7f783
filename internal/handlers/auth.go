package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	domain "github.com/trendhome-fenster/api/internal/domain"
	"github.com/trendhome-fenster/api/internal/platform/auth"
	"github.com/trendhome-fenster/api/internal/platform/httpx"
	"github.com/trendhome-fenster/api/internal/services"
)

// AuthHandlers serves customer registration, login and the profile endpoint.
type AuthHandlers struct {
	authn   *auth.Authenticator
	users   services.UserService
	limiter RateLimiter
}

// NewAuthHandlers constructs the customer account handlers. A nil limiter disables throttling.
func NewAuthHandlers(authn *auth.Authenticator, users services.UserService, limiter RateLimiter) *AuthHandlers {
	return &AuthHandlers{authn: authn, users: users, limiter: limiter}
}

// Routes registers the /auth endpoints.
func (h *AuthHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/register", rateLimited(h.limiter, "auth", h.register))
	r.Post("/login", rateLimited(h.limiter, "auth", h.login))
	r.Group(func(customer chi.Router) {
		if h.authn != nil {
			customer.Use(h.authn.RequireCustomer())
		}
		customer.Get("/me", h.me)
	})
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type customerPayload struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
	CreatedAt string `json:"createdAt,omitempty"`
}

type sessionResponse[T any] struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expiresAt"`
	User      T      `json:"user"`
}

func buildCustomerPayload(customer domain.Customer) customerPayload {
	return customerPayload{
		ID:        customer.ID,
		Name:      customer.Name,
		Email:     customer.Email,
		Phone:     customer.Phone,
		Address:   customer.Address,
		CreatedAt: formatTime(customer.CreatedAt),
	}
}

func newSessionResponse[T any](token auth.SessionToken, user T) sessionResponse[T] {
	return sessionResponse[T]{
		Token:     token.Value,
		ExpiresAt: formatTime(token.ExpiresAt),
		User:      user,
	}
}

func (h *AuthHandlers) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeBody(w, r, &req) {
		return
	}
	session, err := h.users.Register(r.Context(), services.RegisterCustomerCommand(req))
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, newSessionResponse(session.Token, buildCustomerPayload(session.Customer)))
}

func (h *AuthHandlers) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeBody(w, r, &req) {
		return
	}
	session, err := h.users.LoginCustomer(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, newSessionResponse(session.Token, buildCustomerPayload(session.Customer)))
}

func (h *AuthHandlers) me(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subject := subjectFromContext(ctx)
	if subject == "" {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return
	}
	customer, err := h.users.Profile(ctx, subject)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, buildCustomerPayload(customer))
}
