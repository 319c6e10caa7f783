package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/trendhome-fenster/api/internal/domain"
	"github.com/trendhome-fenster/api/internal/platform/auth"
	"github.com/trendhome-fenster/api/internal/services"
)

var sessionExpiry = time.Date(2025, 5, 10, 8, 0, 0, 0, time.UTC)

func accountRouter(users *stubUserService, dashboard *stubDashboardService, limiter RateLimiter) chi.Router {
	authn := testAuthenticator()
	return NewRouter(
		WithAuthRoutes(NewAuthHandlers(authn, users, limiter).Routes),
		WithAdminRoutes(NewAdminHandlers(authn, users, dashboard, limiter).Routes),
	)
}

func customerSession(customer domain.Customer) services.CustomerSession {
	return services.CustomerSession{
		Token:    auth.SessionToken{Value: "jwt-value", ExpiresAt: sessionExpiry},
		Customer: customer,
	}
}

func TestAuthHandlers_Register(t *testing.T) {
	users := &stubUserService{registerFn: func(cmd services.RegisterCustomerCommand) (services.CustomerSession, error) {
		if cmd.Email == "taken@example.de" {
			return services.CustomerSession{}, services.ErrEmailTaken
		}
		return customerSession(domain.Customer{ID: "cust-9", Name: cmd.Name, Email: cmd.Email, PasswordHash: "secret-hash"}), nil
	}}
	router := accountRouter(users, nil, nil)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, jsonRequest(t, http.MethodPost, "/api/auth/register", registerRequest{Name: "Erika", Email: "erika@example.de", Password: "geheim1"}, ""))
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var body sessionResponse[customerPayload]
	decodeResponse(t, rr, &body)
	if body.Token != "jwt-value" || body.ExpiresAt != "2025-05-10T08:00:00Z" || body.User.ID != "cust-9" {
		t.Fatalf("unexpected session %+v", body)
	}
	var raw map[string]any
	decodeResponse(t, rr, &raw)
	user, _ := raw["user"].(map[string]any)
	if _, leaked := user["passwordHash"]; leaked {
		t.Fatalf("password hash must not be serialised")
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, jsonRequest(t, http.MethodPost, "/api/auth/register", registerRequest{Name: "Erika", Email: "taken@example.de", Password: "geheim1"}, ""))
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rr.Code)
	}
	if body := decodeError(t, rr); body.Error != "email_taken" {
		t.Fatalf("unexpected error %q", body.Error)
	}
}

func TestAuthHandlers_LoginFailuresAreGeneric(t *testing.T) {
	users := &stubUserService{loginFn: func(email, password string) (services.CustomerSession, error) {
		return services.CustomerSession{}, services.ErrUnauthorized
	}}
	router := accountRouter(users, nil, nil)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, jsonRequest(t, http.MethodPost, "/api/auth/login", loginRequest{Email: "nobody@example.de", Password: "x"}, ""))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
	if body := decodeError(t, rr); body.Message != "invalid credentials" {
		t.Fatalf("unexpected message %q", body.Message)
	}
}

func TestAuthHandlers_LoginRateLimited(t *testing.T) {
	users := &stubUserService{loginFn: func(string, string) (services.CustomerSession, error) {
		t.Fatal("limited request reached the service")
		return services.CustomerSession{}, nil
	}}
	rr := httptest.NewRecorder()
	accountRouter(users, nil, denyAllLimiter{}).ServeHTTP(rr, jsonRequest(t, http.MethodPost, "/api/auth/login", loginRequest{}, ""))
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rr.Code)
	}
}

func TestAuthHandlers_Me(t *testing.T) {
	users := &stubUserService{profiles: map[string]domain.Customer{
		"cust-1": {ID: "cust-1", Name: "Erika", Email: "erika@example.de", Phone: "+49 30 1234567"},
	}}
	router := accountRouter(users, nil, nil)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, jsonRequest(t, http.MethodGet, "/api/auth/me", nil, ""))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, jsonRequest(t, http.MethodGet, "/api/auth/me", nil, customerToken))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var profile customerPayload
	decodeResponse(t, rr, &profile)
	if profile.Email != "erika@example.de" || profile.Phone != "+49 30 1234567" {
		t.Fatalf("unexpected profile %+v", profile)
	}
}

func TestAdminHandlers_Login(t *testing.T) {
	users := &stubUserService{adminFn: func(username, password string) (services.AdminSession, error) {
		if username != "admin" || password != "admin123" {
			return services.AdminSession{}, services.ErrUnauthorized
		}
		return services.AdminSession{
			Token: auth.SessionToken{Value: "admin-jwt", ExpiresAt: sessionExpiry},
			Admin: domain.Admin{ID: "admin-1", Username: "admin", Email: "admin@trendhome.de"},
		}, nil
	}}
	router := accountRouter(users, nil, nil)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, jsonRequest(t, http.MethodPost, "/api/admin/login", loginRequest{Username: "admin", Password: "admin123"}, ""))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var body sessionResponse[adminPayload]
	decodeResponse(t, rr, &body)
	if body.Token != "admin-jwt" || body.User.Username != "admin" || body.User.Role != auth.RoleAdmin {
		t.Fatalf("unexpected session %+v", body)
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, jsonRequest(t, http.MethodPost, "/api/admin/login", loginRequest{Username: "admin", Password: "wrong"}, ""))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestAdminHandlers_Stats(t *testing.T) {
	created := time.Date(2025, 5, 9, 9, 30, 0, 0, time.UTC)
	dashboard := &stubDashboardService{stats: domain.DashboardStats{
		TotalOrders:   3,
		PendingOrders: 2,
		TotalContacts: 1,
		NewContacts:   1,
		RecentOrders: []domain.OrderSummary{
			{ID: "o1", OrderNumber: "WIN-20250509-0001", CustomerName: "Erika", Status: domain.OrderStatusPending, TotalPrice: 180, CreatedAt: created},
		},
	}}
	router := accountRouter(&stubUserService{}, dashboard, nil)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, jsonRequest(t, http.MethodGet, "/api/admin/stats", nil, customerToken))
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for customers, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, jsonRequest(t, http.MethodGet, "/api/admin/stats", nil, adminToken))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var stats statsResponse
	decodeResponse(t, rr, &stats)
	if stats.TotalOrders != 3 || stats.PendingOrders != 2 || stats.NewContacts != 1 {
		t.Fatalf("unexpected counts %+v", stats)
	}
	if len(stats.RecentOrders) != 1 || stats.RecentOrders[0].TotalPrice != 180 || stats.RecentOrders[0].CreatedAt != "2025-05-09T09:30:00Z" {
		t.Fatalf("unexpected recent orders %+v", stats.RecentOrders)
	}
	if stats.RecentContacts == nil {
		t.Fatalf("recent contacts must serialise as an empty list")
	}
}
