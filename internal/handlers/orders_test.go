package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/trendhome-fenster/api/internal/domain"
	"github.com/trendhome-fenster/api/internal/platform/idempotency"
	"github.com/trendhome-fenster/api/internal/services"
)

func orderRouter(svc *stubOrderService, opts ...OrderHandlersOption) chi.Router {
	h := NewOrderHandlers(testAuthenticator(), svc, opts...)
	return NewRouter(WithOrderRoutes(h.Routes))
}

func submittedOrder(cmd services.SubmitOrderCommand, number string) domain.Order {
	return domain.Order{
		ID:            "order-" + number,
		OrderNumber:   number,
		UserID:        cmd.CustomerID,
		CustomerInfo:  cmd.CustomerInfo,
		Configuration: cmd.Configuration,
		Pricing:       domain.Pricing{BasePrice: 150, AdditionalCosts: 30, TotalPrice: 180},
		Status:        domain.OrderStatusPending,
	}
}

func TestOrderHandlers_Submit(t *testing.T) {
	var received services.SubmitOrderCommand
	svc := &stubOrderService{submitFn: func(cmd services.SubmitOrderCommand) (domain.Order, error) {
		received = cmd
		return submittedOrder(cmd, "WIN-20250509-0001"), nil
	}}
	router := orderRouter(svc)

	body := map[string]any{
		"customerInfo":  map[string]string{"name": "Erika Mustermann", "email": "erika@example.de", "phone": "+49 30 1234567", "address": "Hauptstr. 1"},
		"configuration": windowConfiguration(),
		"pricing":       map[string]any{"totalPrice": 999},
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, jsonRequest(t, http.MethodPost, "/api/orders", body, customerToken))

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp submitOrderResponse
	decodeResponse(t, rr, &resp)
	if resp.OrderNumber != "WIN-20250509-0001" || resp.OrderID == "" || resp.Pricing.TotalPrice != 180 {
		t.Fatalf("unexpected response %+v", resp)
	}
	if received.CustomerID != "cust-1" {
		t.Fatalf("expected customer id from token, got %q", received.CustomerID)
	}
	if received.ClientPricing == nil || received.ClientPricing.TotalPrice != 999 {
		t.Fatalf("expected client pricing to be forwarded, got %+v", received.ClientPricing)
	}
	if received.Configuration.Manufacturer != "salamander82" {
		t.Fatalf("configuration not decoded: %+v", received.Configuration)
	}
}

func TestOrderHandlers_SubmitRequiresCustomer(t *testing.T) {
	router := orderRouter(&stubOrderService{})

	for token, want := range map[string]int{"": http.StatusUnauthorized, adminToken: http.StatusForbidden} {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, jsonRequest(t, http.MethodPost, "/api/orders", map[string]any{}, token))
		if rr.Code != want {
			t.Fatalf("token %q: expected %d, got %d", token, want, rr.Code)
		}
	}
}

func TestOrderHandlers_SubmitMapsServiceErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantErr  string
	}{
		{"missing", &services.MissingFieldError{Fields: []string{"customerInfo.phone"}}, http.StatusBadRequest, "missing_fields"},
		{"invalid", &services.ValidationError{Issues: []services.FieldIssue{{Field: "material", Message: "not offered"}}}, http.StatusBadRequest, "validation_failed"},
		{"unauthorized", services.ErrUnauthorized, http.StatusUnauthorized, "unauthorized"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := &stubOrderService{submitFn: func(services.SubmitOrderCommand) (domain.Order, error) {
				return domain.Order{}, tc.err
			}}
			rr := httptest.NewRecorder()
			orderRouter(svc).ServeHTTP(rr, jsonRequest(t, http.MethodPost, "/api/orders", map[string]any{}, customerToken))
			if rr.Code != tc.wantCode {
				t.Fatalf("expected %d, got %d", tc.wantCode, rr.Code)
			}
			body := decodeError(t, rr)
			if body.Error != tc.wantErr {
				t.Fatalf("expected %s, got %s", tc.wantErr, body.Error)
			}
			if tc.name == "missing" {
				missing, _ := body.Details["missing"].([]any)
				if len(missing) != 1 || missing[0] != "customerInfo.phone" {
					t.Fatalf("unexpected missing details %v", body.Details)
				}
			}
		})
	}
}

func TestOrderHandlers_SubmitReplaysIdempotentRequests(t *testing.T) {
	calls := 0
	svc := &stubOrderService{submitFn: func(cmd services.SubmitOrderCommand) (domain.Order, error) {
		calls++
		return submittedOrder(cmd, "WIN-20250509-0001"), nil
	}}
	router := orderRouter(svc, WithOrderIdempotency(idempotency.Middleware(idempotency.NewMemoryStore())))

	send := func() *httptest.ResponseRecorder {
		req := jsonRequest(t, http.MethodPost, "/api/orders", map[string]any{"configuration": windowConfiguration()}, customerToken)
		req.Header.Set("Idempotency-Key", "checkout-1")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		return rr
	}
	first, second := send(), send()

	if calls != 1 {
		t.Fatalf("expected a single submission, got %d", calls)
	}
	if second.Code != http.StatusCreated || second.Body.String() != first.Body.String() {
		t.Fatalf("expected replayed response, got %d %s", second.Code, second.Body.String())
	}
}

func TestOrderHandlers_AdminList(t *testing.T) {
	created := time.Date(2025, 5, 9, 10, 0, 0, 0, time.UTC)
	var filter services.OrderListFilter
	svc := &stubOrderService{listFn: func(f services.OrderListFilter) (domain.PageResult[domain.Order], error) {
		filter = f
		items := []domain.Order{{ID: "o1", OrderNumber: "WIN-20250509-0001", Status: domain.OrderStatusPending, CreatedAt: created}}
		return domain.NewPageResult(items, 11, f.Page), nil
	}}
	router := orderRouter(svc)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, jsonRequest(t, http.MethodGet, "/api/orders?page=2&limit=5&status=pending", nil, adminToken))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if filter.Status != domain.OrderStatusPending || filter.Page.Number != 2 || filter.Page.Limit != 5 {
		t.Fatalf("unexpected filter %+v", filter)
	}
	var body listResponse[orderPayload]
	decodeResponse(t, rr, &body)
	if body.Total != 11 || body.TotalPages != 3 || body.CurrentPage != 2 || len(body.Items) != 1 {
		t.Fatalf("unexpected envelope %+v", body)
	}
	if body.Items[0].CreatedAt != "2025-05-09T10:00:00Z" {
		t.Fatalf("unexpected createdAt %s", body.Items[0].CreatedAt)
	}
}

func TestOrderHandlers_AdminListRejectsUnknownStatus(t *testing.T) {
	rr := httptest.NewRecorder()
	orderRouter(&stubOrderService{}).ServeHTTP(rr, jsonRequest(t, http.MethodGet, "/api/orders?status=shipped", nil, adminToken))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestOrderHandlers_AdminRoutesRejectCustomers(t *testing.T) {
	router := orderRouter(&stubOrderService{})
	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, jsonRequest(t, method, "/api/orders/o1", map[string]any{}, customerToken))
		if rr.Code != http.StatusForbidden {
			t.Fatalf("%s: expected 403, got %d", method, rr.Code)
		}
	}
}

func TestOrderHandlers_GetAndDelete(t *testing.T) {
	svc := &stubOrderService{orders: map[string]domain.Order{
		"o1": {ID: "o1", OrderNumber: "WIN-20250509-0001", Status: domain.OrderStatusPending},
	}}
	router := orderRouter(svc)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, jsonRequest(t, http.MethodGet, "/api/orders/o1", nil, adminToken))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var order orderPayload
	decodeResponse(t, rr, &order)
	if order.OrderNumber != "WIN-20250509-0001" || order.Status != "pending" {
		t.Fatalf("unexpected order %+v", order)
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, jsonRequest(t, http.MethodGet, "/api/orders/missing", nil, adminToken))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, jsonRequest(t, http.MethodDelete, "/api/orders/o1", nil, adminToken))
	if rr.Code != http.StatusOK || len(svc.deleted) != 1 {
		t.Fatalf("expected delete to succeed, got %d %v", rr.Code, svc.deleted)
	}
}

func TestOrderHandlers_Update(t *testing.T) {
	var received services.UpdateOrderCommand
	svc := &stubOrderService{updateFn: func(cmd services.UpdateOrderCommand) (domain.Order, error) {
		received = cmd
		if cmd.Status != nil && *cmd.Status == domain.OrderStatusPending {
			return domain.Order{}, services.ErrOrderInvalidState
		}
		order := domain.Order{ID: cmd.OrderID, Status: domain.OrderStatusProcessing}
		if cmd.Notes != nil {
			order.Notes = *cmd.Notes
		}
		return order, nil
	}}
	router := orderRouter(svc)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, jsonRequest(t, http.MethodPut, "/api/orders/o1", `{"status":" Processing ","notes":"call back"}`, adminToken))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if received.OrderID != "o1" || received.Status == nil || *received.Status != domain.OrderStatusProcessing {
		t.Fatalf("unexpected command %+v", received)
	}
	var order orderPayload
	decodeResponse(t, rr, &order)
	if order.Notes != "call back" {
		t.Fatalf("expected notes in response, got %+v", order)
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, jsonRequest(t, http.MethodPut, "/api/orders/o1", `{"notes":"only notes"}`, adminToken))
	if rr.Code != http.StatusOK || received.Status != nil {
		t.Fatalf("expected notes-only update, got %d %+v", rr.Code, received)
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, jsonRequest(t, http.MethodPut, "/api/orders/o1", `{"status":"pending"}`, adminToken))
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rr.Code)
	}
	if body := decodeError(t, rr); body.Error != "invalid_state" {
		t.Fatalf("unexpected error %q", body.Error)
	}
}
