package services

import (
	"fmt"
	"math"
	"slices"
	"strings"

	domain "github.com/trendhome-fenster/api/internal/domain"
	"github.com/trendhome-fenster/api/internal/platform/textutil"
)

const (
	// DefaultMinDimension is the smallest accepted width or height in millimetres.
	DefaultMinDimension = 500.0
	// DefaultMaxDimension is the largest accepted width or height in millimetres.
	DefaultMaxDimension = 3000.0

	sideLeft  = "left"
	sideRight = "right"

	shutterSurfaceMounted = "surface-mounted"
	shutterControlManual  = "manual"
)

var shutterControls = []string{
	shutterControlManual,
	"electric-switch",
	"electric-remote",
	"electric-smart",
}

var (
	sashConfigs    = []string{"symmetrical", "asymmetrical"}
	doorHandings   = []string{"din-left", "din-right"}
	slidingSides   = []string{sideLeft, sideRight}
	fixedSashSides = []string{sideLeft, sideRight}
)

// DimensionIssue reports a dimension outside the range allowed for the current selection.
type DimensionIssue struct {
	Field   string
	Value   float64
	Min     float64
	Max     float64
	Message string
}

// Configurator enforces the interdependencies between configuration steps.
// It holds no catalog; every call receives the snapshot it should evaluate against.
type Configurator struct {
	minDimension float64
	maxDimension float64
}

// NewConfigurator builds a configurator for the given dimension range. Non-positive
// or inverted bounds fall back to the defaults.
func NewConfigurator(minDimension, maxDimension float64) *Configurator {
	if minDimension <= 0 {
		minDimension = DefaultMinDimension
	}
	if maxDimension <= 0 || maxDimension < minDimension {
		maxDimension = math.Max(DefaultMaxDimension, minDimension)
	}
	return &Configurator{minDimension: minDimension, maxDimension: maxDimension}
}

// AvailableMaterials lists the catalog materials the manufacturer supports, in
// catalog order. Unknown manufacturers offer nothing.
func (c *Configurator) AvailableMaterials(catalog domain.Catalog, manufacturerID string) []domain.CatalogItem {
	manufacturer, ok := catalog.Lookup(domain.CategoryManufacturers, manufacturerID)
	if !ok {
		return nil
	}
	compatible := make(map[string]struct{}, len(manufacturer.CompatibleMaterialIDs))
	for _, id := range manufacturer.CompatibleMaterialIDs {
		compatible[id] = struct{}{}
	}
	var materials []domain.CatalogItem
	for _, material := range catalog.Materials {
		if _, ok := compatible[material.ID]; ok {
			materials = append(materials, material)
		}
	}
	return materials
}

// SelectManufacturer sets the manufacturer and drops a material it does not support.
func (c *Configurator) SelectManufacturer(catalog domain.Catalog, cfg domain.Configuration, manufacturerID string) domain.Configuration {
	cfg.Manufacturer = manufacturerID
	if cfg.Material != "" && !c.materialAllowed(catalog, manufacturerID, cfg.Material) {
		cfg.Material = ""
	}
	return cfg
}

// SelectWindowType sets the window type, clears fields of the branches it does not
// use, and reports when the current height is below the type's minimum.
func (c *Configurator) SelectWindowType(catalog domain.Catalog, cfg domain.Configuration, windowTypeID string) (domain.Configuration, *DimensionIssue) {
	cfg.WindowType = windowTypeID
	cfg = NormalizeConfiguration(catalog, cfg)
	minHeight, maxHeight := c.HeightBounds(catalog, windowTypeID)
	if cfg.Dimensions.Height > 0 && cfg.Dimensions.Height < minHeight {
		return cfg, &DimensionIssue{
			Field:   "dimensions.height",
			Value:   cfg.Dimensions.Height,
			Min:     minHeight,
			Max:     maxHeight,
			Message: fmt.Sprintf("height must be at least %.0f mm for this window type", minHeight),
		}
	}
	return cfg, nil
}

// HeightBounds returns the inclusive height range for the window type.
func (c *Configurator) HeightBounds(catalog domain.Catalog, windowTypeID string) (float64, float64) {
	minHeight := c.minDimension
	if windowType, ok := catalog.Lookup(domain.CategoryWindowTypes, windowTypeID); ok && windowType.MinHeight != nil {
		minHeight = math.Max(minHeight, *windowType.MinHeight)
	}
	return minHeight, math.Max(c.maxDimension, minHeight)
}

// DimensionIssues checks width and height against the configured range and the
// window type's minimum height. Zero dimensions are reported as missing elsewhere.
func (c *Configurator) DimensionIssues(catalog domain.Catalog, cfg domain.Configuration) []DimensionIssue {
	var issues []DimensionIssue
	width := cfg.Dimensions.Width
	if width > 0 && (width < c.minDimension || width > c.maxDimension) {
		issues = append(issues, DimensionIssue{
			Field:   "dimensions.width",
			Value:   width,
			Min:     c.minDimension,
			Max:     c.maxDimension,
			Message: fmt.Sprintf("width must be between %.0f and %.0f mm", c.minDimension, c.maxDimension),
		})
	}
	minHeight, maxHeight := c.HeightBounds(catalog, cfg.WindowType)
	height := cfg.Dimensions.Height
	if height > 0 && (height < minHeight || height > maxHeight) {
		issues = append(issues, DimensionIssue{
			Field:   "dimensions.height",
			Value:   height,
			Min:     minHeight,
			Max:     maxHeight,
			Message: fmt.Sprintf("height must be between %.0f and %.0f mm", minHeight, maxHeight),
		})
	}
	return issues
}

// ActiveBranch returns the opening branch the window type uses.
func ActiveBranch(catalog domain.Catalog, windowTypeID string) domain.OpeningLayout {
	if windowType, ok := catalog.Lookup(domain.CategoryWindowTypes, windowTypeID); ok {
		return domain.LayoutFor(windowType)
	}
	return domain.LayoutFor(domain.CatalogItem{ID: windowTypeID})
}

// NormalizeConfiguration zeroes every field that belongs to an inactive opening
// branch or a disabled option.
func NormalizeConfiguration(catalog domain.Catalog, cfg domain.Configuration) domain.Configuration {
	out := cfg
	out.AdditionalOptions = append([]string(nil), cfg.AdditionalOptions...)

	clearSingle := func() {
		out.TopLight, out.TopLightHeight = false, 0
		out.BottomLight, out.BottomLightHeight = false, 0
	}
	clearOpenings := func() { out.LeftOpening, out.RightOpening = "", "" }
	clearSash := func() { out.FixedSash, out.Stulp, out.SashConfig = "", "", "" }
	clearDoor := func() {
		out.DoorType = ""
		out.SideLight = domain.SideLight{}
		out.TopLightDoor = false
	}
	clearSliding := func() { out.SlidingDirection = "" }

	switch ActiveBranch(catalog, cfg.WindowType) {
	case domain.LayoutDoubleSash:
		clearSingle()
		clearDoor()
		clearSliding()
	case domain.LayoutEntranceDoor:
		clearOpenings()
		clearSingle()
		clearSash()
		clearSliding()
	case domain.LayoutSlidingDoor:
		clearOpenings()
		clearSingle()
		clearSash()
		clearDoor()
	default:
		clearSash()
		clearDoor()
		clearSliding()
	}

	if !out.TopLight {
		out.TopLightHeight = 0
	}
	if !out.BottomLight {
		out.BottomLightHeight = 0
	}
	if !out.SideLight.Left {
		out.SideLight.LeftWidth = 0
	}
	if !out.SideLight.Right {
		out.SideLight.RightWidth = 0
	}
	if !out.RollerShutter {
		out.RollerShutterType, out.RollerShutterControl = "", ""
	}
	return out
}

// RollerShutterControls lists the control options offered for a shutter type.
// Surface-mounted shutters are motorised only.
func RollerShutterControls(shutterTypeID string) []string {
	if shutterTypeID == shutterSurfaceMounted {
		return append([]string(nil), shutterControls[1:]...)
	}
	return append([]string(nil), shutterControls...)
}

// ValidateSubmission runs the full gate applied before an order is stored.
// Missing required values are reported together as a MissingFieldError;
// otherwise every rule violation, including ids that do not resolve against
// the catalog, is reported as one ValidationError.
func (c *Configurator) ValidateSubmission(catalog domain.Catalog, customer domain.CustomerInfo, cfg domain.Configuration) error {
	var missing []string
	required := []struct {
		field string
		value string
	}{
		{"customerInfo.name", customer.Name},
		{"customerInfo.email", customer.Email},
		{"customerInfo.phone", customer.Phone},
		{"customerInfo.address", customer.Address},
		{"manufacturer", cfg.Manufacturer},
		{"material", cfg.Material},
		{"windowType", cfg.WindowType},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			missing = append(missing, r.field)
		}
	}
	if cfg.Dimensions.Width <= 0 {
		missing = append(missing, "dimensions.width")
	}
	if cfg.Dimensions.Height <= 0 {
		missing = append(missing, "dimensions.height")
	}
	if err := newMissingFieldError(missing); err != nil {
		return err
	}

	var issues issueList
	if !textutil.ValidEmail(customer.Email) {
		issues.add("customerInfo.email", "must be a valid email address")
	}
	c.collectIssues(catalog, cfg, &issues)
	return issues.err()
}

func (c *Configurator) collectIssues(catalog domain.Catalog, cfg domain.Configuration, issues *issueList) {
	resolve := func(field string, kind domain.CategoryKind, id string) {
		if id == "" {
			return
		}
		if _, ok := catalog.Lookup(kind, id); !ok {
			issues.add(field, "unknown %s %q", kind, id)
		}
	}

	resolve("manufacturer", domain.CategoryManufacturers, cfg.Manufacturer)
	resolve("material", domain.CategoryMaterials, cfg.Material)
	if _, ok := catalog.Lookup(domain.CategoryManufacturers, cfg.Manufacturer); ok && cfg.Material != "" {
		if !c.materialAllowed(catalog, cfg.Manufacturer, cfg.Material) {
			issues.add("material", "material %q is not available for manufacturer %q", cfg.Material, cfg.Manufacturer)
		}
	}
	resolve("windowType", domain.CategoryWindowTypes, cfg.WindowType)
	resolve("glassType", domain.CategoryGlassTypes, cfg.GlassType)
	resolve("interiorColor", domain.CategoryColors, cfg.InteriorColor)
	resolve("exteriorColor", domain.CategoryColors, cfg.ExteriorColor)
	resolve("lockingOption", domain.CategoryLockingOptions, cfg.LockingOption)

	for _, d := range c.DimensionIssues(catalog, cfg) {
		issues.add(d.Field, "%s", d.Message)
	}

	branch := ActiveBranch(catalog, cfg.WindowType)
	if branch == domain.LayoutSingleSash || branch == domain.LayoutDoubleSash {
		if domain.IsOperable(cfg.LeftOpening) {
			resolve("leftOpening", domain.CategoryOpeningTypes, cfg.LeftOpening)
		}
		if domain.IsOperable(cfg.RightOpening) {
			resolve("rightOpening", domain.CategoryOpeningTypes, cfg.RightOpening)
		}
	}

	switch branch {
	case domain.LayoutSingleSash:
		lights := 0.0
		if cfg.TopLight {
			lights += cfg.TopLightHeight
		}
		if cfg.BottomLight {
			lights += cfg.BottomLightHeight
		}
		if cfg.TopLightHeight < 0 || cfg.BottomLightHeight < 0 {
			issues.add("topLightHeight", "light heights must not be negative")
		} else if cfg.Dimensions.Height > 0 && lights >= cfg.Dimensions.Height {
			issues.add("dimensions.height", "top and bottom lights leave no room for the sash")
		}
	case domain.LayoutDoubleSash:
		c.collectSashIssues(cfg, issues)
	case domain.LayoutEntranceDoor:
		if cfg.DoorType != "" && !slices.Contains(doorHandings, cfg.DoorType) {
			issues.add("doorType", "must be one of %s", strings.Join(doorHandings, ", "))
		}
		if cfg.SideLight.LeftWidth < 0 || cfg.SideLight.RightWidth < 0 {
			issues.add("sideLight", "side light widths must not be negative")
		}
	case domain.LayoutSlidingDoor:
		if cfg.SlidingDirection != "" && !slices.Contains(slidingSides, cfg.SlidingDirection) {
			issues.add("slidingDirection", "must be one of %s", strings.Join(slidingSides, ", "))
		}
	}

	if cfg.RollerShutter {
		switch {
		case cfg.RollerShutterType == "":
			issues.add("rollerShutterType", "is required when a roller shutter is selected")
		default:
			resolve("rollerShutterType", domain.CategoryRollerShutterTypes, cfg.RollerShutterType)
		}
		controls := RollerShutterControls(cfg.RollerShutterType)
		if cfg.RollerShutterControl != "" && !slices.Contains(controls, cfg.RollerShutterControl) {
			issues.add("rollerShutterControl", "must be one of %s for %q", strings.Join(controls, ", "), cfg.RollerShutterType)
		}
	}
}

func (c *Configurator) collectSashIssues(cfg domain.Configuration, issues *issueList) {
	if cfg.FixedSash != "" && !slices.Contains(fixedSashSides, cfg.FixedSash) {
		issues.add("fixedSash", "must be left or right")
	}
	if cfg.Stulp != "" && !slices.Contains(fixedSashSides, cfg.Stulp) {
		issues.add("stulp", "must be left or right")
	}
	if cfg.SashConfig != "" && !slices.Contains(sashConfigs, cfg.SashConfig) {
		issues.add("sashConfig", "must be one of %s", strings.Join(sashConfigs, ", "))
	}
	if cfg.FixedSash != "" && cfg.Stulp != "" {
		issues.add("stulp", "cannot be combined with a fixed sash")
	}
	for _, side := range []string{cfg.FixedSash, cfg.Stulp} {
		switch side {
		case sideLeft:
			if domain.IsOperable(cfg.LeftOpening) {
				issues.add("leftOpening", "the %s sash cannot open", side)
			}
		case sideRight:
			if domain.IsOperable(cfg.RightOpening) {
				issues.add("rightOpening", "the %s sash cannot open", side)
			}
		}
	}
}

func (c *Configurator) materialAllowed(catalog domain.Catalog, manufacturerID, materialID string) bool {
	for _, material := range c.AvailableMaterials(catalog, manufacturerID) {
		if material.ID == materialID {
			return true
		}
	}
	return false
}
