package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	domain "github.com/trendhome-fenster/api/internal/domain"
	"github.com/trendhome-fenster/api/internal/platform/auth"
	"github.com/trendhome-fenster/api/internal/platform/httpx"
	"github.com/trendhome-fenster/api/internal/services"
)

// AdminHandlers serves back-office login and the dashboard statistics.
type AdminHandlers struct {
	authn     *auth.Authenticator
	users     services.UserService
	dashboard services.DashboardService
	limiter   RateLimiter
}

// NewAdminHandlers constructs the admin handlers.
func NewAdminHandlers(authn *auth.Authenticator, users services.UserService, dashboard services.DashboardService, limiter RateLimiter) *AdminHandlers {
	return &AdminHandlers{authn: authn, users: users, dashboard: dashboard, limiter: limiter}
}

// Routes registers the /admin endpoints.
func (h *AdminHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/login", rateLimited(h.limiter, "auth", h.login))
	r.Group(func(admin chi.Router) {
		if h.authn != nil {
			admin.Use(h.authn.RequireAdmin())
		}
		admin.Get("/stats", h.stats)
	})
}

type adminPayload struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

type orderSummaryPayload struct {
	ID           string  `json:"id"`
	OrderNumber  string  `json:"orderNumber"`
	CustomerName string  `json:"customerName"`
	Status       string  `json:"status"`
	TotalPrice   float64 `json:"totalPrice"`
	CreatedAt    string  `json:"createdAt"`
}

type contactSummaryPayload struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Subject   string `json:"subject"`
	Status    string `json:"status"`
	CreatedAt string `json:"createdAt"`
}

type statsResponse struct {
	TotalOrders      int                     `json:"totalOrders"`
	PendingOrders    int                     `json:"pendingOrders"`
	ProcessingOrders int                     `json:"processingOrders"`
	CompletedOrders  int                     `json:"completedOrders"`
	CancelledOrders  int                     `json:"cancelledOrders"`
	TotalContacts    int                     `json:"totalContacts"`
	NewContacts      int                     `json:"newContacts"`
	RecentOrders     []orderSummaryPayload   `json:"recentOrders"`
	RecentContacts   []contactSummaryPayload `json:"recentContacts"`
}

func buildStatsResponse(stats domain.DashboardStats) statsResponse {
	resp := statsResponse{
		TotalOrders:      stats.TotalOrders,
		PendingOrders:    stats.PendingOrders,
		ProcessingOrders: stats.ProcessingOrders,
		CompletedOrders:  stats.CompletedOrders,
		CancelledOrders:  stats.CancelledOrders,
		TotalContacts:    stats.TotalContacts,
		NewContacts:      stats.NewContacts,
		RecentOrders:     make([]orderSummaryPayload, 0, len(stats.RecentOrders)),
		RecentContacts:   make([]contactSummaryPayload, 0, len(stats.RecentContacts)),
	}
	for _, order := range stats.RecentOrders {
		resp.RecentOrders = append(resp.RecentOrders, orderSummaryPayload{
			ID:           order.ID,
			OrderNumber:  order.OrderNumber,
			CustomerName: order.CustomerName,
			Status:       string(order.Status),
			TotalPrice:   order.TotalPrice,
			CreatedAt:    formatTime(order.CreatedAt),
		})
	}
	for _, contact := range stats.RecentContacts {
		resp.RecentContacts = append(resp.RecentContacts, contactSummaryPayload{
			ID:        contact.ID,
			Name:      contact.Name,
			Email:     contact.Email,
			Subject:   contact.Subject,
			Status:    string(contact.Status),
			CreatedAt: formatTime(contact.CreatedAt),
		})
	}
	return resp
}

func (h *AdminHandlers) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeBody(w, r, &req) {
		return
	}
	session, err := h.users.LoginAdmin(r.Context(), req.Username, req.Password)
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, newSessionResponse(session.Token, adminPayload{
		ID:       session.Admin.ID,
		Username: session.Admin.Username,
		Email:    session.Admin.Email,
		Role:     auth.RoleAdmin,
	}))
}

func (h *AdminHandlers) stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.dashboard.Stats(r.Context())
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, buildStatsResponse(stats))
}
