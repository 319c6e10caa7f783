package pagination

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/trendhome-fenster/api/internal/domain"
)

const (
	// DefaultLimit is used when the client omits limit.
	DefaultLimit = 10
	// MaxLimit caps limit to keep list queries bounded.
	MaxLimit = 100
)

var (
	ErrInvalidPage   = errors.New("pagination: invalid page")
	ErrInvalidLimit  = errors.New("pagination: invalid limit")
	ErrInvalidStatus = errors.New("pagination: invalid status")
)

// Params carries the list inputs accepted by admin list endpoints.
type Params struct {
	Page   domain.Page
	Status string
}

// Options control Parse for a given endpoint.
type Options struct {
	DefaultLimit    int
	MaxLimit        int
	AllowedStatuses []string
}

// Parse reads page, limit and status from the query string. Oversized limits are
// clamped rather than rejected.
func Parse(values url.Values, opts Options) (Params, error) {
	maxLimit := opts.MaxLimit
	if maxLimit <= 0 {
		maxLimit = MaxLimit
	}
	defaultLimit := opts.DefaultLimit
	if defaultLimit <= 0 {
		defaultLimit = DefaultLimit
	}
	defaultLimit = min(defaultLimit, maxLimit)

	page, err := positiveInt(values.Get("page"), 1)
	if err != nil {
		return Params{}, fmt.Errorf("%w: %v", ErrInvalidPage, err)
	}
	limit, err := positiveInt(values.Get("limit"), defaultLimit)
	if err != nil {
		return Params{}, fmt.Errorf("%w: %v", ErrInvalidLimit, err)
	}

	status := strings.ToLower(strings.TrimSpace(values.Get("status")))
	if status == "all" {
		status = ""
	}
	if status != "" && !slices.Contains(opts.AllowedStatuses, status) {
		return Params{}, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	return Params{
		Page:   domain.Page{Number: page, Limit: min(limit, maxLimit)},
		Status: status,
	}, nil
}

func positiveInt(raw string, fallback int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New("must be an integer")
	}
	if value <= 0 {
		return 0, errors.New("must be greater than zero")
	}
	return value, nil
}
