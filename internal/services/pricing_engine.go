package services

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	domain "github.com/trendhome-fenster/api/internal/domain"
)

// PricingMode selects how unresolved catalog ids are treated.
type PricingMode int

const (
	// PricingModePreview substitutes fallback prices for ids missing from the catalog.
	PricingModePreview PricingMode = iota
	// PricingModeSubmission rejects any id that does not resolve.
	PricingModeSubmission
)

const (
	lineBasePrice     = "Base Price"
	lineMaterial      = "Material"
	lineWindowType    = "Window Type"
	lineGlassType     = "Glass Type"
	lineColors        = "Colors"
	lineOpening       = "Opening"
	lineRollerShutter = "Roller Shutter"
	lineLocking       = "Locking Option"
	lineExtras        = "Extras"
)

var (
	fallbackManufacturer  = decimal.NewFromInt(150)
	fallbackOpening       = decimal.NewFromInt(20)
	fallbackRollerShutter = decimal.NewFromInt(150)

	electricControlSurcharge = decimal.NewFromInt(100)
	topLightSurcharge        = decimal.NewFromInt(80)
	bottomLightSurcharge     = decimal.NewFromInt(80)
	topLightDoorSurcharge    = decimal.NewFromInt(100)
	sideLightSurcharge       = decimal.NewFromInt(120)

	minimumArea       = decimal.RequireFromString("0.5")
	squareMillimetres = decimal.NewFromInt(1_000_000)
)

// UnresolvedSelection is a configuration id that has no catalog entry.
type UnresolvedSelection struct {
	Category domain.CategoryKind
	ID       string
}

// UnresolvedSelectionError is returned in submission mode when any priced id
// does not resolve against the catalog.
type UnresolvedSelectionError struct {
	Selections []UnresolvedSelection
}

func (e *UnresolvedSelectionError) Error() string {
	parts := make([]string, 0, len(e.Selections))
	for _, sel := range e.Selections {
		parts = append(parts, fmt.Sprintf("%s/%q", sel.Category, sel.ID))
	}
	return "pricing: unresolved selections " + strings.Join(parts, ", ")
}

func (e *UnresolvedSelectionError) Unwrap() error { return ErrValidation }

type priceResolver struct {
	catalog    domain.Catalog
	mode       PricingMode
	unresolved []UnresolvedSelection
}

func (r *priceResolver) price(kind domain.CategoryKind, id string, fallback decimal.Decimal) decimal.Decimal {
	if item, ok := r.catalog.Lookup(kind, id); ok {
		return decimal.NewFromFloat(item.Price)
	}
	if r.mode == PricingModeSubmission {
		r.unresolved = append(r.unresolved, UnresolvedSelection{Category: kind, ID: id})
		return decimal.Zero
	}
	return fallback
}

// PriceConfiguration computes the quote for cfg against catalog. Every category
// price and surcharge is summed and the whole sum is scaled by the window area,
// floored at half a square metre. Breakdown lines are unscaled and only
// non-zero lines are listed. Fields of inactive opening branches are ignored.
func PriceConfiguration(catalog domain.Catalog, cfg domain.Configuration, mode PricingMode) (domain.Pricing, error) {
	cfg = NormalizeConfiguration(catalog, cfg)
	r := &priceResolver{catalog: catalog, mode: mode}

	base := decimal.Zero
	if cfg.Manufacturer != "" {
		base = r.price(domain.CategoryManufacturers, cfg.Manufacturer, fallbackManufacturer)
	}

	optional := func(kind domain.CategoryKind, id string) decimal.Decimal {
		if id == "" {
			return decimal.Zero
		}
		return r.price(kind, id, decimal.Zero)
	}

	material := optional(domain.CategoryMaterials, cfg.Material)
	windowType := optional(domain.CategoryWindowTypes, cfg.WindowType)
	glass := optional(domain.CategoryGlassTypes, cfg.GlassType)

	colors := optional(domain.CategoryColors, cfg.InteriorColor)
	if cfg.ExteriorColor != cfg.InteriorColor {
		colors = colors.Add(optional(domain.CategoryColors, cfg.ExteriorColor))
	}

	openings := decimal.Zero
	for _, opening := range []string{cfg.LeftOpening, cfg.RightOpening} {
		if domain.IsOperable(opening) {
			openings = openings.Add(r.price(domain.CategoryOpeningTypes, opening, fallbackOpening))
		}
	}

	shutter := decimal.Zero
	if cfg.RollerShutter {
		shutter = r.price(domain.CategoryRollerShutterTypes, cfg.RollerShutterType, fallbackRollerShutter)
		if strings.Contains(cfg.RollerShutterControl, "electric") {
			shutter = shutter.Add(electricControlSurcharge)
		}
	}

	locking := optional(domain.CategoryLockingOptions, cfg.LockingOption)

	extras := decimal.Zero
	if cfg.TopLight {
		extras = extras.Add(topLightSurcharge)
	}
	if cfg.BottomLight {
		extras = extras.Add(bottomLightSurcharge)
	}
	if cfg.TopLightDoor {
		extras = extras.Add(topLightDoorSurcharge)
	}
	if cfg.SideLight.Left {
		extras = extras.Add(sideLightSurcharge)
	}
	if cfg.SideLight.Right {
		extras = extras.Add(sideLightSurcharge)
	}

	if len(r.unresolved) > 0 {
		return domain.Pricing{}, &UnresolvedSelectionError{Selections: r.unresolved}
	}

	lines := []struct {
		label  string
		amount decimal.Decimal
	}{
		{lineBasePrice, base},
		{lineMaterial, material},
		{lineWindowType, windowType},
		{lineGlassType, glass},
		{lineColors, colors},
		{lineOpening, openings},
		{lineRollerShutter, shutter},
		{lineLocking, locking},
		{lineExtras, extras},
	}

	sum := decimal.Zero
	breakdown := make([]domain.BreakdownLine, 0, len(lines))
	for _, line := range lines {
		sum = sum.Add(line.amount)
		if !line.amount.IsZero() {
			breakdown = append(breakdown, domain.BreakdownLine{Item: line.label, Price: line.amount.Round(2).InexactFloat64()})
		}
	}

	total := sum.Mul(AreaMultiplier(cfg.Dimensions)).Round(2)
	return domain.Pricing{
		BasePrice:       base.Round(2).InexactFloat64(),
		AdditionalCosts: sum.Sub(base).Round(2).InexactFloat64(),
		TotalPrice:      total.InexactFloat64(),
		Breakdown:       breakdown,
	}, nil
}

// AreaMultiplier converts millimetre dimensions to square metres, never below 0.5.
func AreaMultiplier(d domain.Dimensions) decimal.Decimal {
	area := decimal.NewFromFloat(d.Width).Mul(decimal.NewFromFloat(d.Height)).Div(squareMillimetres)
	return decimal.Max(area, minimumArea)
}
