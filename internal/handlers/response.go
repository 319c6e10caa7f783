package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/trendhome-fenster/api/internal/platform/auth"
	"github.com/trendhome-fenster/api/internal/platform/httpx"
	"github.com/trendhome-fenster/api/internal/platform/pagination"
	"github.com/trendhome-fenster/api/internal/platform/requestctx"
	"github.com/trendhome-fenster/api/internal/services"
)

// listResponse is the envelope shared by every paginated admin listing.
type listResponse[T any] struct {
	Items       []T `json:"items"`
	TotalPages  int `json:"totalPages"`
	CurrentPage int `json:"currentPage"`
	Total       int `json:"total"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// decodeBody reads a JSON request body, answering 400 itself on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := httpx.DecodeJSON(r, dst, false); err != nil {
		message := "request body must be valid JSON"
		if errors.Is(err, httpx.ErrEmptyBody) {
			message = "request body is required"
		}
		httpx.WriteError(r.Context(), w, httpx.NewError("invalid_request", message, http.StatusBadRequest))
		return false
	}
	return true
}

func parseListParams(w http.ResponseWriter, r *http.Request, statuses []string) (pagination.Params, bool) {
	params, err := pagination.Parse(r.URL.Query(), pagination.Options{AllowedStatuses: statuses})
	if err != nil {
		httpx.WriteError(r.Context(), w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return pagination.Params{}, false
	}
	return params, true
}

func subjectFromContext(ctx context.Context) string {
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok || identity == nil {
		return ""
	}
	return strings.TrimSpace(identity.Subject)
}

// writeServiceError maps service errors onto the JSON error envelope. Unknown
// errors are logged and surface as a generic 500.
func writeServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}

	var (
		missing    *services.MissingFieldError
		invalid    *services.ValidationError
		unresolved *services.UnresolvedSelectionError
	)
	switch {
	case errors.As(err, &missing):
		httpx.WriteError(ctx, w, httpx.NewError("missing_fields", missing.Error(), http.StatusBadRequest).
			WithDetails(map[string]any{"missing": missing.Fields}))
	case errors.As(err, &invalid):
		httpx.WriteError(ctx, w, httpx.NewError("validation_failed", "request contains invalid fields", http.StatusBadRequest).
			WithDetails(map[string]any{"fields": invalid.Fields()}))
	case errors.As(err, &unresolved):
		fields := make(map[string]string, len(unresolved.Selections))
		for _, sel := range unresolved.Selections {
			fields[string(sel.Category)] = "unknown id " + sel.ID
		}
		httpx.WriteError(ctx, w, httpx.NewError("validation_failed", "configuration references unknown catalog entries", http.StatusBadRequest).
			WithDetails(map[string]any{"fields": fields}))
	case errors.Is(err, services.ErrValidation):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrUnauthorized):
		httpx.WriteError(ctx, w, httpx.NewError("unauthorized", "invalid credentials", http.StatusUnauthorized))
	case errors.Is(err, services.ErrNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("not_found", "resource not found", http.StatusNotFound))
	case errors.Is(err, services.ErrOrderInvalidState):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_state", err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrEmailTaken):
		httpx.WriteError(ctx, w, httpx.NewError("email_taken", "an account with this email already exists", http.StatusConflict))
	case errors.Is(err, services.ErrConflict):
		httpx.WriteError(ctx, w, httpx.NewError("conflict", "request conflicts with existing state", http.StatusConflict))
	default:
		requestctx.Logger(ctx).Error("request failed", zap.Error(err))
		httpx.WriteError(ctx, w, httpx.NewError("internal_error", "internal server error", http.StatusInternalServerError))
	}
}
