package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/trendhome-fenster/api/internal/domain"
	"github.com/trendhome-fenster/api/internal/platform/auth"
	"github.com/trendhome-fenster/api/internal/platform/httpx"
	"github.com/trendhome-fenster/api/internal/services"
)

var orderStatuses = []string{
	string(domain.OrderStatusPending),
	string(domain.OrderStatusProcessing),
	string(domain.OrderStatusCompleted),
	string(domain.OrderStatusCancelled),
}

// OrderHandlers exposes order submission for customers and order management for admins.
type OrderHandlers struct {
	authn       *auth.Authenticator
	orders      services.OrderService
	idempotency func(http.Handler) http.Handler
}

// OrderHandlersOption customises OrderHandlers.
type OrderHandlersOption func(*OrderHandlers)

// WithOrderIdempotency wraps order submission with the idempotency middleware.
func WithOrderIdempotency(mw func(http.Handler) http.Handler) OrderHandlersOption {
	return func(h *OrderHandlers) {
		h.idempotency = mw
	}
}

// NewOrderHandlers constructs a new OrderHandlers instance.
func NewOrderHandlers(authn *auth.Authenticator, orders services.OrderService, opts ...OrderHandlersOption) *OrderHandlers {
	h := &OrderHandlers{authn: authn, orders: orders}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Routes registers the /orders endpoints.
func (h *OrderHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Group(func(customer chi.Router) {
		if h.authn != nil {
			customer.Use(h.authn.RequireCustomer())
		}
		// Runs after authentication so keys are scoped to the customer.
		if h.idempotency != nil {
			customer.Use(h.idempotency)
		}
		customer.Post("/", h.submitOrder)
	})
	r.Group(func(admin chi.Router) {
		if h.authn != nil {
			admin.Use(h.authn.RequireAdmin())
		}
		admin.Get("/", h.listOrders)
		admin.Get("/{orderID}", h.getOrder)
		admin.Put("/{orderID}", h.updateOrder)
		admin.Delete("/{orderID}", h.deleteOrder)
	})
}

type submitOrderRequest struct {
	CustomerInfo  domain.CustomerInfo  `json:"customerInfo"`
	Configuration domain.Configuration `json:"configuration"`
	Pricing       *domain.Pricing      `json:"pricing"`
}

type submitOrderResponse struct {
	Message     string         `json:"message"`
	OrderID     string         `json:"orderId"`
	OrderNumber string         `json:"orderNumber"`
	Pricing     domain.Pricing `json:"pricing"`
}

type updateOrderRequest struct {
	Status *string `json:"status"`
	Notes  *string `json:"notes"`
}

type orderPayload struct {
	ID            string               `json:"id"`
	OrderNumber   string               `json:"orderNumber"`
	UserID        string               `json:"userId"`
	CustomerInfo  domain.CustomerInfo  `json:"customerInfo"`
	Configuration domain.Configuration `json:"configuration"`
	Pricing       domain.Pricing       `json:"pricing"`
	Status        string               `json:"status"`
	Notes         string               `json:"notes"`
	CreatedAt     string               `json:"createdAt"`
	UpdatedAt     string               `json:"updatedAt"`
}

func buildOrderPayload(order domain.Order) orderPayload {
	return orderPayload{
		ID:            order.ID,
		OrderNumber:   order.OrderNumber,
		UserID:        order.UserID,
		CustomerInfo:  order.CustomerInfo,
		Configuration: order.Configuration,
		Pricing:       order.Pricing,
		Status:        string(order.Status),
		Notes:         order.Notes,
		CreatedAt:     formatTime(order.CreatedAt),
		UpdatedAt:     formatTime(order.UpdatedAt),
	}
}

func (h *OrderHandlers) submitOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	customerID := subjectFromContext(ctx)
	if customerID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return
	}

	var req submitOrderRequest
	if !decodeBody(w, r, &req) {
		return
	}
	order, err := h.orders.Submit(ctx, services.SubmitOrderCommand{
		CustomerID:    customerID,
		CustomerInfo:  req.CustomerInfo,
		Configuration: req.Configuration,
		ClientPricing: req.Pricing,
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, submitOrderResponse{
		Message:     "Order submitted successfully",
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		Pricing:     order.Pricing,
	})
}

func (h *OrderHandlers) listOrders(w http.ResponseWriter, r *http.Request) {
	params, ok := parseListParams(w, r, orderStatuses)
	if !ok {
		return
	}
	page, err := h.orders.List(r.Context(), services.OrderListFilter{
		Status: domain.OrderStatus(params.Status),
		Page:   params.Page,
	})
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	items := make([]orderPayload, 0, len(page.Items))
	for _, order := range page.Items {
		items = append(items, buildOrderPayload(order))
	}
	httpx.WriteJSON(w, http.StatusOK, listResponse[orderPayload]{
		Items:       items,
		TotalPages:  page.TotalPages,
		CurrentPage: page.CurrentPage,
		Total:       page.Total,
	})
}

func (h *OrderHandlers) getOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.orders.Get(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, buildOrderPayload(order))
}

func (h *OrderHandlers) updateOrder(w http.ResponseWriter, r *http.Request) {
	var req updateOrderRequest
	if !decodeBody(w, r, &req) {
		return
	}
	cmd := services.UpdateOrderCommand{
		OrderID: chi.URLParam(r, "orderID"),
		Notes:   req.Notes,
	}
	if req.Status != nil {
		status := domain.OrderStatus(strings.ToLower(strings.TrimSpace(*req.Status)))
		cmd.Status = &status
	}
	order, err := h.orders.Update(r.Context(), cmd)
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, buildOrderPayload(order))
}

func (h *OrderHandlers) deleteOrder(w http.ResponseWriter, r *http.Request) {
	if err := h.orders.Delete(r.Context(), chi.URLParam(r, "orderID")); err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, messageResponse{Message: "Order deleted successfully"})
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
