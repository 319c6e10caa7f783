package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	domain "github.com/trendhome-fenster/api/internal/domain"
	"github.com/trendhome-fenster/api/internal/platform/auth"
	"github.com/trendhome-fenster/api/internal/services"
)

const (
	adminToken    = "admin-token"
	customerToken = "customer-token"
)

type stubVerifier struct{}

func (stubVerifier) Verify(_ context.Context, token string) (*auth.Identity, error) {
	switch token {
	case adminToken:
		return &auth.Identity{Subject: "admin-1", Role: auth.RoleAdmin, Name: "admin"}, nil
	case customerToken:
		return &auth.Identity{Subject: "cust-1", Role: auth.RoleCustomer, Email: "erika@example.de"}, nil
	default:
		return nil, errors.New("invalid token")
	}
}

func testAuthenticator() *auth.Authenticator {
	return auth.NewAuthenticator(stubVerifier{})
}

func jsonRequest(t *testing.T, method, target string, body any, token string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func decodeResponse(t *testing.T, rr *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode response %q: %v", rr.Body.String(), err)
	}
}

type errorBody struct {
	Error   string         `json:"error"`
	Message string         `json:"message"`
	Status  int            `json:"status"`
	Details map[string]any `json:"details"`
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	decodeResponse(t, rr, &body)
	return body
}

type stubCatalogService struct {
	catalog  domain.Catalog
	err      error
	replaced *domain.Catalog
}

func (s *stubCatalogService) Get(context.Context) (domain.Catalog, error) {
	return s.catalog, s.err
}

func (s *stubCatalogService) Replace(_ context.Context, catalog domain.Catalog) (domain.Catalog, error) {
	if err := services.ValidateCatalog(catalog); err != nil {
		return domain.Catalog{}, err
	}
	s.replaced = &catalog
	return catalog, nil
}

func (s *stubCatalogService) EnsureDefaults(context.Context) (bool, error) {
	return false, nil
}

type stubOrderService struct {
	submitFn func(services.SubmitOrderCommand) (domain.Order, error)
	listFn   func(services.OrderListFilter) (domain.PageResult[domain.Order], error)
	updateFn func(services.UpdateOrderCommand) (domain.Order, error)
	orders   map[string]domain.Order
	deleted  []string
}

func (s *stubOrderService) Submit(_ context.Context, cmd services.SubmitOrderCommand) (domain.Order, error) {
	if s.submitFn == nil {
		return domain.Order{}, errors.New("submit not configured")
	}
	return s.submitFn(cmd)
}

func (s *stubOrderService) List(_ context.Context, filter services.OrderListFilter) (domain.PageResult[domain.Order], error) {
	if s.listFn == nil {
		return domain.PageResult[domain.Order]{}, nil
	}
	return s.listFn(filter)
}

func (s *stubOrderService) Get(_ context.Context, id string) (domain.Order, error) {
	order, ok := s.orders[id]
	if !ok {
		return domain.Order{}, services.ErrOrderNotFound
	}
	return order, nil
}

func (s *stubOrderService) Update(_ context.Context, cmd services.UpdateOrderCommand) (domain.Order, error) {
	if s.updateFn == nil {
		return domain.Order{}, errors.New("update not configured")
	}
	return s.updateFn(cmd)
}

func (s *stubOrderService) Delete(_ context.Context, id string) error {
	if _, ok := s.orders[id]; !ok {
		return services.ErrOrderNotFound
	}
	s.deleted = append(s.deleted, id)
	return nil
}

type stubContactService struct {
	submitted []services.SubmitContactCommand
	submitErr error
	contacts  map[string]domain.Contact
	filters   []services.ContactListFilter
}

func (s *stubContactService) Submit(_ context.Context, cmd services.SubmitContactCommand) (domain.Contact, error) {
	if s.submitErr != nil {
		return domain.Contact{}, s.submitErr
	}
	s.submitted = append(s.submitted, cmd)
	return domain.Contact{ID: "contact-1", Name: cmd.Name, Status: domain.ContactStatusNew}, nil
}

func (s *stubContactService) List(_ context.Context, filter services.ContactListFilter) (domain.PageResult[domain.Contact], error) {
	s.filters = append(s.filters, filter)
	items := make([]domain.Contact, 0, len(s.contacts))
	for _, c := range s.contacts {
		items = append(items, c)
	}
	return domain.NewPageResult(items, len(items), filter.Page), nil
}

func (s *stubContactService) Get(_ context.Context, id string) (domain.Contact, error) {
	contact, ok := s.contacts[id]
	if !ok {
		return domain.Contact{}, services.ErrContactNotFound
	}
	return contact, nil
}

func (s *stubContactService) UpdateStatus(_ context.Context, id string, status domain.ContactStatus) (domain.Contact, error) {
	contact, ok := s.contacts[id]
	if !ok {
		return domain.Contact{}, services.ErrContactNotFound
	}
	if !status.Valid() {
		return domain.Contact{}, &services.ValidationError{Issues: []services.FieldIssue{{Field: "status", Message: "unknown status"}}}
	}
	contact.Status = status
	s.contacts[id] = contact
	return contact, nil
}

func (s *stubContactService) Delete(_ context.Context, id string) error {
	if _, ok := s.contacts[id]; !ok {
		return services.ErrContactNotFound
	}
	delete(s.contacts, id)
	return nil
}

type stubUserService struct {
	registerFn func(services.RegisterCustomerCommand) (services.CustomerSession, error)
	loginFn    func(email, password string) (services.CustomerSession, error)
	adminFn    func(username, password string) (services.AdminSession, error)
	profiles   map[string]domain.Customer
}

func (s *stubUserService) Register(_ context.Context, cmd services.RegisterCustomerCommand) (services.CustomerSession, error) {
	return s.registerFn(cmd)
}

func (s *stubUserService) LoginCustomer(_ context.Context, email, password string) (services.CustomerSession, error) {
	return s.loginFn(email, password)
}

func (s *stubUserService) LoginAdmin(_ context.Context, username, password string) (services.AdminSession, error) {
	return s.adminFn(username, password)
}

func (s *stubUserService) Profile(_ context.Context, customerID string) (domain.Customer, error) {
	customer, ok := s.profiles[customerID]
	if !ok {
		return domain.Customer{}, services.ErrNotFound
	}
	return customer, nil
}

func (s *stubUserService) EnsureDefaultAdmin(context.Context, services.DefaultAdmin) (bool, error) {
	return false, nil
}

type stubDashboardService struct {
	stats domain.DashboardStats
	err   error
}

func (s *stubDashboardService) Stats(context.Context) (domain.DashboardStats, error) {
	return s.stats, s.err
}

type stubSystemService struct {
	report domain.SystemHealthReport
	err    error
}

func (s *stubSystemService) HealthReport(context.Context) (domain.SystemHealthReport, error) {
	return s.report, s.err
}

type denyAllLimiter struct{}

func (denyAllLimiter) Allow(context.Context, string) bool { return false }
