package services

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	domain "github.com/trendhome-fenster/api/internal/domain"
	"github.com/trendhome-fenster/api/internal/repositories"
)

//go:embed defaults/catalog.yaml
var defaultCatalogYAML []byte

// ErrCatalogNotFound is returned before any catalog has been stored.
var ErrCatalogNotFound = fmt.Errorf("catalog: %w", ErrNotFound)

var allCategoryFields = []domain.CategoryField{
	domain.FieldColorHex,
	domain.FieldCompatibleMaterialIDs,
	domain.FieldMinHeight,
	domain.FieldLayout,
}

// CatalogServiceDeps bundles collaborators required to construct the catalog service.
type CatalogServiceDeps struct {
	Catalog repositories.CatalogRepository
	Clock   func() time.Time
	Logger  func(ctx context.Context, event string, fields map[string]any)
}

type catalogService struct {
	repo   repositories.CatalogRepository
	clock  func() time.Time
	logger func(context.Context, string, map[string]any)
}

// NewCatalogService wires the catalog repository into a CatalogService.
func NewCatalogService(deps CatalogServiceDeps) (CatalogService, error) {
	if deps.Catalog == nil {
		return nil, errors.New("catalog service: catalog repository is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &catalogService{
		repo:   deps.Catalog,
		clock:  func() time.Time { return clock().UTC() },
		logger: logger,
	}, nil
}

func (s *catalogService) Get(ctx context.Context) (domain.Catalog, error) {
	catalog, err := s.repo.Get(ctx)
	if err != nil {
		if repositories.IsNotFound(err) {
			return domain.Catalog{}, ErrCatalogNotFound
		}
		return domain.Catalog{}, err
	}
	return catalog, nil
}

// Replace validates and stores catalog as the new snapshot. Concurrent
// replacements are not serialised; the last write wins.
func (s *catalogService) Replace(ctx context.Context, catalog domain.Catalog) (domain.Catalog, error) {
	catalog = normalizeCatalog(catalog)
	if err := ValidateCatalog(catalog); err != nil {
		return domain.Catalog{}, err
	}
	catalog.UpdatedAt = s.nextUpdatedAt(ctx)
	if err := s.repo.Replace(ctx, catalog); err != nil {
		return domain.Catalog{}, fmt.Errorf("catalog: replace: %w", err)
	}
	s.logger(ctx, "catalog.replaced", map[string]any{"updatedAt": catalog.UpdatedAt})
	return catalog, nil
}

// EnsureDefaults stores the built-in catalog when none exists yet and reports
// whether it did so.
func (s *catalogService) EnsureDefaults(ctx context.Context) (bool, error) {
	if _, err := s.repo.Get(ctx); err == nil {
		return false, nil
	} else if !repositories.IsNotFound(err) {
		return false, err
	}
	catalog, err := DefaultCatalog()
	if err != nil {
		return false, err
	}
	catalog.UpdatedAt = s.clock()
	if err := s.repo.Replace(ctx, catalog); err != nil {
		return false, fmt.Errorf("catalog: seed: %w", err)
	}
	s.logger(ctx, "catalog.seeded", nil)
	return true, nil
}

// nextUpdatedAt keeps updatedAt strictly increasing even when two writes land
// within the clock's resolution.
func (s *catalogService) nextUpdatedAt(ctx context.Context) time.Time {
	now := s.clock()
	if current, err := s.repo.Get(ctx); err == nil && !now.After(current.UpdatedAt) {
		return current.UpdatedAt.Add(time.Millisecond)
	}
	return now
}

// DefaultCatalog decodes the embedded seed catalog.
func DefaultCatalog() (domain.Catalog, error) {
	var catalog domain.Catalog
	if err := yaml.Unmarshal(defaultCatalogYAML, &catalog); err != nil {
		return domain.Catalog{}, fmt.Errorf("catalog: decode defaults: %w", err)
	}
	return catalog, nil
}

// ValidateCatalog checks referential integrity across categories and reports
// every problem at once.
func ValidateCatalog(catalog domain.Catalog) error {
	var issues issueList
	for _, kind := range domain.CategoryKinds {
		allowed := kind.Fields()
		seen := make(map[string]bool)
		for i, item := range catalog.Items(kind) {
			field := fmt.Sprintf("%s[%d]", kind, i)
			switch {
			case item.ID == "":
				issues.add(field+".id", "is required")
			case seen[item.ID]:
				issues.add(field+".id", "duplicate id %q", item.ID)
			}
			seen[item.ID] = true
			if item.Name == "" {
				issues.add(field+".name", "is required")
			}
			for _, extra := range allCategoryFields {
				if item.HasField(extra) && !slices.Contains(allowed, extra) {
					issues.add(field+"."+string(extra), "is not supported for %s", kind)
				}
			}
			if item.MinHeight != nil && *item.MinHeight < 0 {
				issues.add(field+".minHeight", "must not be negative")
			}
			if item.Layout != "" && !item.Layout.Valid() {
				issues.add(field+".layout", "unknown layout %q", item.Layout)
			}
		}
	}
	for i, manufacturer := range catalog.Manufacturers {
		for _, materialID := range manufacturer.CompatibleMaterialIDs {
			if _, ok := catalog.Lookup(domain.CategoryMaterials, materialID); !ok {
				issues.add(fmt.Sprintf("manufacturers[%d].compatibleMaterialIds", i), "unknown material %q", materialID)
			}
		}
	}
	return issues.err()
}

func normalizeCatalog(c domain.Catalog) domain.Catalog {
	trim := func(items []domain.CatalogItem) []domain.CatalogItem {
		out := make([]domain.CatalogItem, 0, len(items))
		for _, item := range items {
			item.ID = strings.TrimSpace(item.ID)
			item.Name = strings.TrimSpace(item.Name)
			item.Description = strings.TrimSpace(item.Description)
			item.ColorHex = strings.TrimSpace(item.ColorHex)
			out = append(out, item)
		}
		return out
	}
	return domain.Catalog{
		Manufacturers:      trim(c.Manufacturers),
		Materials:          trim(c.Materials),
		WindowTypes:        trim(c.WindowTypes),
		GlassTypes:         trim(c.GlassTypes),
		Colors:             trim(c.Colors),
		OpeningTypes:       trim(c.OpeningTypes),
		RollerShutterTypes: trim(c.RollerShutterTypes),
		LockingOptions:     trim(c.LockingOptions),
	}
}
