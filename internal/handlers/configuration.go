package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	domain "github.com/trendhome-fenster/api/internal/domain"
	"github.com/trendhome-fenster/api/internal/platform/auth"
	"github.com/trendhome-fenster/api/internal/platform/httpx"
	"github.com/trendhome-fenster/api/internal/platform/requestctx"
	"github.com/trendhome-fenster/api/internal/services"
)

// ConfigurationHandlers serves the catalog and the configurator price preview.
type ConfigurationHandlers struct {
	authn        *auth.Authenticator
	catalog      services.CatalogService
	configurator *services.Configurator
}

// NewConfigurationHandlers constructs the catalog handlers.
func NewConfigurationHandlers(authn *auth.Authenticator, catalog services.CatalogService, configurator *services.Configurator) *ConfigurationHandlers {
	if configurator == nil {
		configurator = services.NewConfigurator(services.DefaultMinDimension, services.DefaultMaxDimension)
	}
	return &ConfigurationHandlers{authn: authn, catalog: catalog, configurator: configurator}
}

// Routes registers the /configuration endpoints.
func (h *ConfigurationHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.getCatalog)
	r.Post("/price", h.previewPrice)
	r.Group(func(admin chi.Router) {
		if h.authn != nil {
			admin.Use(h.authn.RequireAdmin())
		}
		admin.Put("/", h.replaceCatalog)
	})
}

func (h *ConfigurationHandlers) getCatalog(w http.ResponseWriter, r *http.Request) {
	catalog, err := h.catalog.Get(r.Context())
	if errors.Is(err, services.ErrCatalogNotFound) {
		httpx.WriteJSON(w, http.StatusOK, struct{}{})
		return
	}
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, catalog)
}

func (h *ConfigurationHandlers) replaceCatalog(w http.ResponseWriter, r *http.Request) {
	var catalog domain.Catalog
	if !decodeBody(w, r, &catalog) {
		return
	}
	stored, err := h.catalog.Replace(r.Context(), catalog)
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	requestctx.Logger(r.Context()).Info("catalog replaced", zap.String("admin", subjectFromContext(r.Context())))
	httpx.WriteJSON(w, http.StatusOK, stored)
}

type pricePreviewRequest struct {
	Configuration domain.Configuration `json:"configuration"`
}

type dimensionIssuePayload struct {
	Field   string  `json:"field"`
	Value   float64 `json:"value"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Message string  `json:"message"`
}

type heightBoundsPayload struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

type pricePreviewResponse struct {
	Pricing               domain.Pricing          `json:"pricing"`
	Configuration         domain.Configuration    `json:"configuration"`
	AvailableMaterials    []domain.CatalogItem    `json:"availableMaterials"`
	ActiveBranch          domain.OpeningLayout    `json:"activeBranch"`
	HeightBounds          heightBoundsPayload     `json:"heightBounds"`
	RollerShutterControls []string                `json:"rollerShutterControls"`
	DimensionIssues       []dimensionIssuePayload `json:"dimensionIssues"`
}

// previewPrice prices a partial configuration. Unknown ids fall back to default
// prices so the storefront can show a figure before every step is complete.
func (h *ConfigurationHandlers) previewPrice(w http.ResponseWriter, r *http.Request) {
	var req pricePreviewRequest
	if !decodeBody(w, r, &req) {
		return
	}
	catalog, err := h.catalog.Get(r.Context())
	if err != nil && !errors.Is(err, services.ErrCatalogNotFound) {
		writeServiceError(r.Context(), w, err)
		return
	}

	cfg := services.NormalizeConfiguration(catalog, req.Configuration)
	pricing, err := services.PriceConfiguration(catalog, cfg, services.PricingModePreview)
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}

	minHeight, maxHeight := h.configurator.HeightBounds(catalog, cfg.WindowType)
	resp := pricePreviewResponse{
		Pricing:               pricing,
		Configuration:         cfg,
		AvailableMaterials:    h.configurator.AvailableMaterials(catalog, cfg.Manufacturer),
		ActiveBranch:          services.ActiveBranch(catalog, cfg.WindowType),
		HeightBounds:          heightBoundsPayload{Min: minHeight, Max: maxHeight},
		RollerShutterControls: services.RollerShutterControls(cfg.RollerShutterType),
		DimensionIssues:       []dimensionIssuePayload{},
	}
	if resp.AvailableMaterials == nil {
		resp.AvailableMaterials = []domain.CatalogItem{}
	}
	for _, issue := range h.configurator.DimensionIssues(catalog, cfg) {
		resp.DimensionIssues = append(resp.DimensionIssues, dimensionIssuePayload(issue))
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}
