package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/trendhome-fenster/api/internal/domain"
	pfirestore "github.com/trendhome-fenster/api/internal/platform/firestore"
	"github.com/trendhome-fenster/api/internal/repositories"
)

const ordersCollection = "orders"

type customerInfoDocument struct {
	Name    string `firestore:"name"`
	Email   string `firestore:"email"`
	Phone   string `firestore:"phone"`
	Address string `firestore:"address"`
}

type sideLightDocument struct {
	Left       bool    `firestore:"left"`
	Right      bool    `firestore:"right"`
	LeftWidth  float64 `firestore:"leftWidth,omitempty"`
	RightWidth float64 `firestore:"rightWidth,omitempty"`
}

type configurationDocument struct {
	Manufacturer         string            `firestore:"manufacturer"`
	Material             string            `firestore:"material"`
	WindowType           string            `firestore:"windowType"`
	Width                float64           `firestore:"width"`
	Height               float64           `firestore:"height"`
	GlassType            string            `firestore:"glassType"`
	InteriorColor        string            `firestore:"interiorColor"`
	ExteriorColor        string            `firestore:"exteriorColor"`
	RollerShutter        bool              `firestore:"rollerShutter"`
	RollerShutterType    string            `firestore:"rollerShutterType,omitempty"`
	RollerShutterControl string            `firestore:"rollerShutterControl,omitempty"`
	LockingOption        string            `firestore:"lockingOption"`
	LeftOpening          string            `firestore:"leftOpening,omitempty"`
	RightOpening         string            `firestore:"rightOpening,omitempty"`
	TopLight             bool              `firestore:"topLight"`
	TopLightHeight       float64           `firestore:"topLightHeight,omitempty"`
	BottomLight          bool              `firestore:"bottomLight"`
	BottomLightHeight    float64           `firestore:"bottomLightHeight,omitempty"`
	FixedSash            string            `firestore:"fixedSash,omitempty"`
	Stulp                string            `firestore:"stulp,omitempty"`
	SashConfig           string            `firestore:"sashConfig,omitempty"`
	DoorType             string            `firestore:"doorType,omitempty"`
	SideLight            sideLightDocument `firestore:"sideLight"`
	TopLightDoor         bool              `firestore:"topLightDoor"`
	SlidingDirection     string            `firestore:"slidingDirection,omitempty"`
	AdditionalOptions    []string          `firestore:"additionalOptions,omitempty"`
}

type breakdownLineDocument struct {
	Item  string  `firestore:"item"`
	Price float64 `firestore:"price"`
}

type pricingDocument struct {
	BasePrice       float64                 `firestore:"basePrice"`
	AdditionalCosts float64                 `firestore:"additionalCosts"`
	TotalPrice      float64                 `firestore:"totalPrice"`
	Breakdown       []breakdownLineDocument `firestore:"breakdown"`
}

type orderDocument struct {
	OrderNumber   string                `firestore:"orderNumber"`
	UserID        string                `firestore:"userId"`
	CustomerInfo  customerInfoDocument  `firestore:"customerInfo"`
	Configuration configurationDocument `firestore:"configuration"`
	Pricing       pricingDocument       `firestore:"pricing"`
	Status        string                `firestore:"status"`
	Notes         string                `firestore:"notes"`
	CreatedAt     time.Time             `firestore:"createdAt"`
	UpdatedAt     time.Time             `firestore:"updatedAt"`
}

// OrderRepository persists orders in the "orders" collection keyed by order id.
type OrderRepository struct {
	orders *pfirestore.Collection[orderDocument]
}

// NewOrderRepository constructs a Firestore-backed order repository.
func NewOrderRepository(provider *pfirestore.Provider) (*OrderRepository, error) {
	if provider == nil {
		return nil, errors.New("order repository requires firestore provider")
	}
	return &OrderRepository{
		orders: pfirestore.NewCollection[orderDocument](provider, ordersCollection, nil, nil),
	}, nil
}

func (r *OrderRepository) Insert(ctx context.Context, order domain.Order) error {
	if strings.TrimSpace(order.ID) == "" {
		return errors.New("order repository: id is required")
	}
	return r.orders.Create(ctx, order.ID, encodeOrder(order))
}

func (r *OrderRepository) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	doc, err := r.orders.Get(ctx, strings.TrimSpace(orderID))
	if err != nil {
		return domain.Order{}, err
	}
	return decodeOrder(doc), nil
}

func (r *OrderRepository) List(ctx context.Context, filter repositories.OrderListFilter) (domain.PageResult[domain.Order], error) {
	where := func(q firestore.Query) firestore.Query {
		if filter.Status != "" {
			q = q.Where("status", "==", string(filter.Status))
		}
		return q
	}

	total, err := r.orders.Count(ctx, where)
	if err != nil {
		return domain.PageResult[domain.Order]{}, err
	}

	docs, err := r.orders.Query(ctx, func(q firestore.Query) firestore.Query {
		q = where(q).OrderBy("createdAt", firestore.Desc)
		if offset := filter.Page.Offset(); offset > 0 {
			q = q.Offset(offset)
		}
		if filter.Page.Limit > 0 {
			q = q.Limit(filter.Page.Limit)
		}
		return q
	})
	if err != nil {
		return domain.PageResult[domain.Order]{}, err
	}

	items := make([]domain.Order, 0, len(docs))
	for _, doc := range docs {
		items = append(items, decodeOrder(doc))
	}
	return domain.NewPageResult(items, total, filter.Page), nil
}

func (r *OrderRepository) UpdateStatusAndNotes(ctx context.Context, order domain.Order) error {
	return r.orders.Update(ctx, order.ID, []firestore.Update{
		{Path: "status", Value: string(order.Status)},
		{Path: "notes", Value: order.Notes},
		{Path: "updatedAt", Value: order.UpdatedAt.UTC()},
	})
}

func (r *OrderRepository) Delete(ctx context.Context, orderID string) error {
	return r.orders.Delete(ctx, strings.TrimSpace(orderID))
}

func (r *OrderRepository) Count(ctx context.Context, status domain.OrderStatus) (int, error) {
	return r.orders.Count(ctx, func(q firestore.Query) firestore.Query {
		if status != "" {
			q = q.Where("status", "==", string(status))
		}
		return q
	})
}

func (r *OrderRepository) Recent(ctx context.Context, limit int) ([]domain.Order, error) {
	if limit <= 0 {
		limit = 5
	}
	docs, err := r.orders.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.OrderBy("createdAt", firestore.Desc).Limit(limit)
	})
	if err != nil {
		return nil, err
	}
	orders := make([]domain.Order, 0, len(docs))
	for _, doc := range docs {
		orders = append(orders, decodeOrder(doc))
	}
	return orders, nil
}

func encodeOrder(o domain.Order) orderDocument {
	c := o.Configuration
	lines := make([]breakdownLineDocument, 0, len(o.Pricing.Breakdown))
	for _, line := range o.Pricing.Breakdown {
		lines = append(lines, breakdownLineDocument{Item: line.Item, Price: line.Price})
	}
	return orderDocument{
		OrderNumber: o.OrderNumber,
		UserID:      o.UserID,
		CustomerInfo: customerInfoDocument{
			Name:    o.CustomerInfo.Name,
			Email:   o.CustomerInfo.Email,
			Phone:   o.CustomerInfo.Phone,
			Address: o.CustomerInfo.Address,
		},
		Configuration: configurationDocument{
			Manufacturer:         c.Manufacturer,
			Material:             c.Material,
			WindowType:           c.WindowType,
			Width:                c.Dimensions.Width,
			Height:               c.Dimensions.Height,
			GlassType:            c.GlassType,
			InteriorColor:        c.InteriorColor,
			ExteriorColor:        c.ExteriorColor,
			RollerShutter:        c.RollerShutter,
			RollerShutterType:    c.RollerShutterType,
			RollerShutterControl: c.RollerShutterControl,
			LockingOption:        c.LockingOption,
			LeftOpening:          c.LeftOpening,
			RightOpening:         c.RightOpening,
			TopLight:             c.TopLight,
			TopLightHeight:       c.TopLightHeight,
			BottomLight:          c.BottomLight,
			BottomLightHeight:    c.BottomLightHeight,
			FixedSash:            c.FixedSash,
			Stulp:                c.Stulp,
			SashConfig:           c.SashConfig,
			DoorType:             c.DoorType,
			SideLight: sideLightDocument{
				Left:       c.SideLight.Left,
				Right:      c.SideLight.Right,
				LeftWidth:  c.SideLight.LeftWidth,
				RightWidth: c.SideLight.RightWidth,
			},
			TopLightDoor:      c.TopLightDoor,
			SlidingDirection:  c.SlidingDirection,
			AdditionalOptions: c.AdditionalOptions,
		},
		Pricing: pricingDocument{
			BasePrice:       o.Pricing.BasePrice,
			AdditionalCosts: o.Pricing.AdditionalCosts,
			TotalPrice:      o.Pricing.TotalPrice,
			Breakdown:       lines,
		},
		Status:    string(o.Status),
		Notes:     o.Notes,
		CreatedAt: o.CreatedAt.UTC(),
		UpdatedAt: o.UpdatedAt.UTC(),
	}
}

func decodeOrder(doc pfirestore.Document[orderDocument]) domain.Order {
	d := doc.Data
	c := d.Configuration
	lines := make([]domain.BreakdownLine, 0, len(d.Pricing.Breakdown))
	for _, line := range d.Pricing.Breakdown {
		lines = append(lines, domain.BreakdownLine{Item: line.Item, Price: line.Price})
	}
	return domain.Order{
		ID:          doc.ID,
		OrderNumber: d.OrderNumber,
		UserID:      d.UserID,
		CustomerInfo: domain.CustomerInfo{
			Name:    d.CustomerInfo.Name,
			Email:   d.CustomerInfo.Email,
			Phone:   d.CustomerInfo.Phone,
			Address: d.CustomerInfo.Address,
		},
		Configuration: domain.Configuration{
			Manufacturer:         c.Manufacturer,
			Material:             c.Material,
			WindowType:           c.WindowType,
			Dimensions:           domain.Dimensions{Width: c.Width, Height: c.Height},
			GlassType:            c.GlassType,
			InteriorColor:        c.InteriorColor,
			ExteriorColor:        c.ExteriorColor,
			RollerShutter:        c.RollerShutter,
			RollerShutterType:    c.RollerShutterType,
			RollerShutterControl: c.RollerShutterControl,
			LockingOption:        c.LockingOption,
			LeftOpening:          c.LeftOpening,
			RightOpening:         c.RightOpening,
			TopLight:             c.TopLight,
			TopLightHeight:       c.TopLightHeight,
			BottomLight:          c.BottomLight,
			BottomLightHeight:    c.BottomLightHeight,
			FixedSash:            c.FixedSash,
			Stulp:                c.Stulp,
			SashConfig:           c.SashConfig,
			DoorType:             c.DoorType,
			SideLight: domain.SideLight{
				Left:       c.SideLight.Left,
				Right:      c.SideLight.Right,
				LeftWidth:  c.SideLight.LeftWidth,
				RightWidth: c.SideLight.RightWidth,
			},
			TopLightDoor:      c.TopLightDoor,
			SlidingDirection:  c.SlidingDirection,
			AdditionalOptions: c.AdditionalOptions,
		},
		Pricing: domain.Pricing{
			BasePrice:       d.Pricing.BasePrice,
			AdditionalCosts: d.Pricing.AdditionalCosts,
			TotalPrice:      d.Pricing.TotalPrice,
			Breakdown:       lines,
		},
		Status:    domain.OrderStatus(d.Status),
		Notes:     d.Notes,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}
