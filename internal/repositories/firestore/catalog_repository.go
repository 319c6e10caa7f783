package firestore

import (
	"context"
	"errors"
	"time"

	domain "github.com/trendhome-fenster/api/internal/domain"
	pfirestore "github.com/trendhome-fenster/api/internal/platform/firestore"
)

const (
	catalogCollection = "configurations"
	catalogDocumentID = "catalog"
)

type catalogItemDocument struct {
	ID                    string   `firestore:"id"`
	Name                  string   `firestore:"name"`
	Price                 float64  `firestore:"price"`
	Description           string   `firestore:"description,omitempty"`
	ColorHex              string   `firestore:"colorHex,omitempty"`
	CompatibleMaterialIDs []string `firestore:"compatibleMaterialIds,omitempty"`
	MinHeight             *float64 `firestore:"minHeight,omitempty"`
	Layout                string   `firestore:"layout,omitempty"`
}

type catalogDocument struct {
	Manufacturers      []catalogItemDocument `firestore:"manufacturers"`
	Materials          []catalogItemDocument `firestore:"materials"`
	WindowTypes        []catalogItemDocument `firestore:"windowTypes"`
	GlassTypes         []catalogItemDocument `firestore:"glassTypes"`
	Colors             []catalogItemDocument `firestore:"colors"`
	OpeningTypes       []catalogItemDocument `firestore:"openingTypes"`
	RollerShutterTypes []catalogItemDocument `firestore:"rollerShutterTypes"`
	LockingOptions     []catalogItemDocument `firestore:"lockingOptions"`
	UpdatedAt          time.Time             `firestore:"updatedAt"`
}

// CatalogRepository keeps the whole catalog in one document. Replace is a
// blind overwrite; concurrent admins race and the last write wins.
type CatalogRepository struct {
	docs *pfirestore.Collection[catalogDocument]
}

// NewCatalogRepository constructs a Firestore-backed catalog repository.
func NewCatalogRepository(provider *pfirestore.Provider) (*CatalogRepository, error) {
	if provider == nil {
		return nil, errors.New("catalog repository requires firestore provider")
	}
	return &CatalogRepository{
		docs: pfirestore.NewCollection[catalogDocument](provider, catalogCollection, nil, nil),
	}, nil
}

func (r *CatalogRepository) Get(ctx context.Context) (domain.Catalog, error) {
	doc, err := r.docs.Get(ctx, catalogDocumentID)
	if err != nil {
		return domain.Catalog{}, err
	}
	catalog := toDomainCatalog(doc.Data)
	if catalog.UpdatedAt.IsZero() {
		catalog.UpdatedAt = doc.UpdateTime
	}
	return catalog, nil
}

func (r *CatalogRepository) Replace(ctx context.Context, catalog domain.Catalog) error {
	return r.docs.Set(ctx, catalogDocumentID, fromDomainCatalog(catalog))
}

func toDomainCatalog(doc catalogDocument) domain.Catalog {
	return domain.Catalog{
		Manufacturers:      toDomainItems(doc.Manufacturers),
		Materials:          toDomainItems(doc.Materials),
		WindowTypes:        toDomainItems(doc.WindowTypes),
		GlassTypes:         toDomainItems(doc.GlassTypes),
		Colors:             toDomainItems(doc.Colors),
		OpeningTypes:       toDomainItems(doc.OpeningTypes),
		RollerShutterTypes: toDomainItems(doc.RollerShutterTypes),
		LockingOptions:     toDomainItems(doc.LockingOptions),
		UpdatedAt:          doc.UpdatedAt,
	}
}

func fromDomainCatalog(c domain.Catalog) catalogDocument {
	return catalogDocument{
		Manufacturers:      fromDomainItems(c.Manufacturers),
		Materials:          fromDomainItems(c.Materials),
		WindowTypes:        fromDomainItems(c.WindowTypes),
		GlassTypes:         fromDomainItems(c.GlassTypes),
		Colors:             fromDomainItems(c.Colors),
		OpeningTypes:       fromDomainItems(c.OpeningTypes),
		RollerShutterTypes: fromDomainItems(c.RollerShutterTypes),
		LockingOptions:     fromDomainItems(c.LockingOptions),
		UpdatedAt:          c.UpdatedAt.UTC(),
	}
}

func toDomainItems(docs []catalogItemDocument) []domain.CatalogItem {
	items := make([]domain.CatalogItem, 0, len(docs))
	for _, d := range docs {
		items = append(items, domain.CatalogItem{
			ID:                    d.ID,
			Name:                  d.Name,
			Price:                 d.Price,
			Description:           d.Description,
			ColorHex:              d.ColorHex,
			CompatibleMaterialIDs: append([]string(nil), d.CompatibleMaterialIDs...),
			MinHeight:             d.MinHeight,
			Layout:                domain.OpeningLayout(d.Layout),
		})
	}
	return items
}

func fromDomainItems(items []domain.CatalogItem) []catalogItemDocument {
	docs := make([]catalogItemDocument, 0, len(items))
	for _, item := range items {
		docs = append(docs, catalogItemDocument{
			ID:                    item.ID,
			Name:                  item.Name,
			Price:                 item.Price,
			Description:           item.Description,
			ColorHex:              item.ColorHex,
			CompatibleMaterialIDs: item.CompatibleMaterialIDs,
			MinHeight:             item.MinHeight,
			Layout:                string(item.Layout),
		})
	}
	return docs
}
