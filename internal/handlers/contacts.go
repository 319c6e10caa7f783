package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	domain "github.com/trendhome-fenster/api/internal/domain"
	"github.com/trendhome-fenster/api/internal/platform/auth"
	"github.com/trendhome-fenster/api/internal/platform/httpx"
	"github.com/trendhome-fenster/api/internal/services"
)

var contactStatuses = []string{
	string(domain.ContactStatusNew),
	string(domain.ContactStatusRead),
	string(domain.ContactStatusReplied),
	string(domain.ContactStatusClosed),
}

// ContactHandlers serves the public contact form and its admin inbox.
type ContactHandlers struct {
	authn    *auth.Authenticator
	contacts services.ContactService
	limiter  RateLimiter
}

// NewContactHandlers constructs the contact handlers. A nil limiter disables throttling.
func NewContactHandlers(authn *auth.Authenticator, contacts services.ContactService, limiter RateLimiter) *ContactHandlers {
	return &ContactHandlers{authn: authn, contacts: contacts, limiter: limiter}
}

// Routes registers POST /contact and the /contacts admin group on the API root.
func (h *ContactHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/contact", rateLimited(h.limiter, "contact", h.submitContact))
	r.Route("/contacts", func(admin chi.Router) {
		if h.authn != nil {
			admin.Use(h.authn.RequireAdmin())
		}
		admin.Get("/", h.listContacts)
		admin.Get("/{contactID}", h.getContact)
		admin.Put("/{contactID}", h.updateContact)
		admin.Delete("/{contactID}", h.deleteContact)
	})
}

type submitContactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

type contactPayload struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Subject   string `json:"subject"`
	Message   string `json:"message"`
	Status    string `json:"status"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

func buildContactPayload(contact domain.Contact) contactPayload {
	return contactPayload{
		ID:        contact.ID,
		Name:      contact.Name,
		Email:     contact.Email,
		Phone:     contact.Phone,
		Subject:   contact.Subject,
		Message:   contact.Message,
		Status:    string(contact.Status),
		CreatedAt: formatTime(contact.CreatedAt),
		UpdatedAt: formatTime(contact.UpdatedAt),
	}
}

func (h *ContactHandlers) submitContact(w http.ResponseWriter, r *http.Request) {
	var req submitContactRequest
	if !decodeBody(w, r, &req) {
		return
	}
	contact, err := h.contacts.Submit(r.Context(), services.SubmitContactCommand(req))
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, struct {
		Message   string `json:"message"`
		ContactID string `json:"contactId"`
	}{Message: "Contact request submitted successfully", ContactID: contact.ID})
}

func (h *ContactHandlers) listContacts(w http.ResponseWriter, r *http.Request) {
	params, ok := parseListParams(w, r, contactStatuses)
	if !ok {
		return
	}
	page, err := h.contacts.List(r.Context(), services.ContactListFilter{
		Status: domain.ContactStatus(params.Status),
		Page:   params.Page,
	})
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	items := make([]contactPayload, 0, len(page.Items))
	for _, contact := range page.Items {
		items = append(items, buildContactPayload(contact))
	}
	httpx.WriteJSON(w, http.StatusOK, listResponse[contactPayload]{
		Items:       items,
		TotalPages:  page.TotalPages,
		CurrentPage: page.CurrentPage,
		Total:       page.Total,
	})
}

func (h *ContactHandlers) getContact(w http.ResponseWriter, r *http.Request) {
	contact, err := h.contacts.Get(r.Context(), chi.URLParam(r, "contactID"))
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, buildContactPayload(contact))
}

func (h *ContactHandlers) updateContact(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status string `json:"status"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	status := domain.ContactStatus(strings.ToLower(strings.TrimSpace(req.Status)))
	contact, err := h.contacts.UpdateStatus(r.Context(), chi.URLParam(r, "contactID"), status)
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, buildContactPayload(contact))
}

func (h *ContactHandlers) deleteContact(w http.ResponseWriter, r *http.Request) {
	if err := h.contacts.Delete(r.Context(), chi.URLParam(r, "contactID")); err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, messageResponse{Message: "Contact deleted successfully"})
}
