package domain

import "time"

// CategoryKind enumerates the priced option tables held by the catalog.
type CategoryKind string

const (
	CategoryManufacturers      CategoryKind = "manufacturers"
	CategoryMaterials          CategoryKind = "materials"
	CategoryWindowTypes        CategoryKind = "windowTypes"
	CategoryGlassTypes         CategoryKind = "glassTypes"
	CategoryColors             CategoryKind = "colors"
	CategoryOpeningTypes       CategoryKind = "openingTypes"
	CategoryRollerShutterTypes CategoryKind = "rollerShutterTypes"
	CategoryLockingOptions     CategoryKind = "lockingOptions"
)

// CategoryKinds lists every kind in catalog order.
var CategoryKinds = []CategoryKind{
	CategoryManufacturers,
	CategoryMaterials,
	CategoryWindowTypes,
	CategoryGlassTypes,
	CategoryColors,
	CategoryOpeningTypes,
	CategoryRollerShutterTypes,
	CategoryLockingOptions,
}

// CategoryField names an optional, kind-specific field of a catalog item.
type CategoryField string

const (
	FieldColorHex              CategoryField = "colorHex"
	FieldCompatibleMaterialIDs CategoryField = "compatibleMaterialIds"
	FieldMinHeight             CategoryField = "minHeight"
	FieldLayout                CategoryField = "layout"
)

// Fields reports the optional fields an item of the kind may carry.
func (k CategoryKind) Fields() []CategoryField {
	switch k {
	case CategoryManufacturers:
		return []CategoryField{FieldCompatibleMaterialIDs}
	case CategoryMaterials, CategoryColors:
		return []CategoryField{FieldColorHex}
	case CategoryWindowTypes:
		return []CategoryField{FieldMinHeight, FieldLayout}
	default:
		return nil
	}
}

// Valid reports whether k is a known category.
func (k CategoryKind) Valid() bool {
	for _, kind := range CategoryKinds {
		if kind == k {
			return true
		}
	}
	return false
}

// OpeningLayout identifies which opening branch of the configurator applies to a window type.
type OpeningLayout string

const (
	LayoutSingleSash   OpeningLayout = "single-sash"
	LayoutDoubleSash   OpeningLayout = "double-sash"
	LayoutEntranceDoor OpeningLayout = "entrance-door"
	LayoutSlidingDoor  OpeningLayout = "sliding-door"
)

// Valid reports whether the layout is one of the known branches.
func (l OpeningLayout) Valid() bool {
	switch l {
	case LayoutSingleSash, LayoutDoubleSash, LayoutEntranceDoor, LayoutSlidingDoor:
		return true
	default:
		return false
	}
}

// CatalogItem is a single priced option within a category.
type CatalogItem struct {
	ID                    string        `json:"id" yaml:"id"`
	Name                  string        `json:"name" yaml:"name"`
	Price                 float64       `json:"price" yaml:"price"`
	Description           string        `json:"description,omitempty" yaml:"description,omitempty"`
	ColorHex              string        `json:"colorHex,omitempty" yaml:"colorHex,omitempty"`
	CompatibleMaterialIDs []string      `json:"compatibleMaterialIds,omitempty" yaml:"compatibleMaterialIds,omitempty"`
	MinHeight             *float64      `json:"minHeight,omitempty" yaml:"minHeight,omitempty"`
	Layout                OpeningLayout `json:"layout,omitempty" yaml:"layout,omitempty"`
}

// HasField reports whether the optional field carries a value.
func (i CatalogItem) HasField(field CategoryField) bool {
	switch field {
	case FieldColorHex:
		return i.ColorHex != ""
	case FieldCompatibleMaterialIDs:
		return len(i.CompatibleMaterialIDs) > 0
	case FieldMinHeight:
		return i.MinHeight != nil
	case FieldLayout:
		return i.Layout != ""
	default:
		return false
	}
}

// Catalog is the admin-editable snapshot of every priced option.
type Catalog struct {
	Manufacturers      []CatalogItem `json:"manufacturers" yaml:"manufacturers"`
	Materials          []CatalogItem `json:"materials" yaml:"materials"`
	WindowTypes        []CatalogItem `json:"windowTypes" yaml:"windowTypes"`
	GlassTypes         []CatalogItem `json:"glassTypes" yaml:"glassTypes"`
	Colors             []CatalogItem `json:"colors" yaml:"colors"`
	OpeningTypes       []CatalogItem `json:"openingTypes" yaml:"openingTypes"`
	RollerShutterTypes []CatalogItem `json:"rollerShutterTypes" yaml:"rollerShutterTypes"`
	LockingOptions     []CatalogItem `json:"lockingOptions" yaml:"lockingOptions"`
	UpdatedAt          time.Time     `json:"updatedAt" yaml:"-"`
}

// Items returns the table for the supplied kind.
func (c Catalog) Items(kind CategoryKind) []CatalogItem {
	switch kind {
	case CategoryManufacturers:
		return c.Manufacturers
	case CategoryMaterials:
		return c.Materials
	case CategoryWindowTypes:
		return c.WindowTypes
	case CategoryGlassTypes:
		return c.GlassTypes
	case CategoryColors:
		return c.Colors
	case CategoryOpeningTypes:
		return c.OpeningTypes
	case CategoryRollerShutterTypes:
		return c.RollerShutterTypes
	case CategoryLockingOptions:
		return c.LockingOptions
	default:
		return nil
	}
}

// Lookup finds the item with the given id in a category.
func (c Catalog) Lookup(kind CategoryKind, id string) (CatalogItem, bool) {
	if id == "" {
		return CatalogItem{}, false
	}
	for _, item := range c.Items(kind) {
		if item.ID == id {
			return item, true
		}
	}
	return CatalogItem{}, false
}

// IsEmpty reports whether no category carries any item.
func (c Catalog) IsEmpty() bool {
	for _, kind := range CategoryKinds {
		if len(c.Items(kind)) > 0 {
			return false
		}
	}
	return true
}

// LayoutFor resolves the opening layout of a window type, deriving it from the id when unset.
func LayoutFor(item CatalogItem) OpeningLayout {
	if item.Layout.Valid() {
		return item.Layout
	}
	if layout := OpeningLayout(item.ID); layout.Valid() {
		return layout
	}
	return LayoutSingleSash
}
