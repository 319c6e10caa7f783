package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	domain "github.com/trendhome-fenster/api/internal/domain"
	"github.com/trendhome-fenster/api/internal/platform/textutil"
	"github.com/trendhome-fenster/api/internal/repositories"
)

const (
	// OrderEventCreated is published after an order is stored.
	OrderEventCreated = "order.created"
	// OrderEventStatusChanged is published after an admin moves an order to a new status.
	OrderEventStatusChanged = "order.status_changed"

	defaultSideEffectTimeout = 30 * time.Second
)

var (
	// ErrOrderNotFound indicates the order could not be located.
	ErrOrderNotFound = fmt.Errorf("order: %w", ErrNotFound)
	// ErrOrderInvalidState indicates an invalid status transition was attempted.
	ErrOrderInvalidState = errors.New("order: invalid status transition")
	// ErrOrderInvalidInput signals the caller provided invalid data.
	ErrOrderInvalidInput = fmt.Errorf("order: %w", ErrValidation)
)

var orderStateTransitions = map[domain.OrderStatus][]domain.OrderStatus{
	domain.OrderStatusPending:    {domain.OrderStatusProcessing, domain.OrderStatusCancelled},
	domain.OrderStatusProcessing: {domain.OrderStatusCompleted, domain.OrderStatusCancelled},
}

// OrderEvent is the payload published for downstream consumers of order changes.
type OrderEvent struct {
	Type           string    `json:"type"`
	OrderID        string    `json:"orderId"`
	OrderNumber    string    `json:"orderNumber"`
	Status         string    `json:"status"`
	PreviousStatus string    `json:"previousStatus,omitempty"`
	TotalPrice     float64   `json:"totalPrice"`
	OccurredAt     time.Time `json:"occurredAt"`
}

// OrderEventPublisher publishes order domain events.
type OrderEventPublisher interface {
	PublishOrderEvent(ctx context.Context, event OrderEvent) error
}

// OrderArchiver stores the rendered order document and returns its location.
type OrderArchiver interface {
	ArchiveOrderDocument(ctx context.Context, orderNumber string, createdAt time.Time, document []byte) (string, error)
}

// OrderNotifier sends the staff and customer mails for a new order.
type OrderNotifier interface {
	NotifyOrderSubmitted(ctx context.Context, order domain.Order, document []byte) error
}

// SubmitOrderCommand carries a customer's order submission. ClientPricing is the
// figure the storefront displayed; it is compared but never stored.
type SubmitOrderCommand struct {
	CustomerID    string
	CustomerInfo  domain.CustomerInfo
	Configuration domain.Configuration
	ClientPricing *domain.Pricing
}

// UpdateOrderCommand changes the mutable fields of an order. Nil fields are left untouched.
type UpdateOrderCommand struct {
	OrderID string
	Status  *domain.OrderStatus
	Notes   *string
}

// OrderListFilter narrows admin order listings.
type OrderListFilter struct {
	Status domain.OrderStatus
	Page   domain.Page
}

// OrderServiceDeps bundles collaborators required to construct the order service.
type OrderServiceDeps struct {
	Orders       repositories.OrderRepository
	Customers    repositories.CustomerRepository
	Catalog      CatalogService
	Configurator *Configurator
	Numbers      CounterService
	Notifier     OrderNotifier
	Events       OrderEventPublisher
	Archiver     OrderArchiver
	Meter        metric.Meter
	Clock        func() time.Time
	IDGenerator  func() string
	// Dispatch runs post-commit side effects. Defaults to a new goroutine.
	Dispatch          func(task func())
	SideEffectTimeout time.Duration
	Logger            func(ctx context.Context, event string, fields map[string]any)
}

type orderService struct {
	orders       repositories.OrderRepository
	customers    repositories.CustomerRepository
	catalog      CatalogService
	configurator *Configurator
	numbers      CounterService
	notifier     OrderNotifier
	events       OrderEventPublisher
	archiver     OrderArchiver
	submitted    metric.Int64Counter
	clock        func() time.Time
	newID        func() string
	dispatch     func(func())
	timeout      time.Duration
	logger       func(context.Context, string, map[string]any)
}

// NewOrderService wires dependencies into a concrete OrderService implementation.
func NewOrderService(deps OrderServiceDeps) (OrderService, error) {
	if deps.Orders == nil {
		return nil, errors.New("order service: order repository is required")
	}
	if deps.Catalog == nil {
		return nil, errors.New("order service: catalog service is required")
	}
	if deps.Numbers == nil {
		return nil, errors.New("order service: counter service is required")
	}

	configurator := deps.Configurator
	if configurator == nil {
		configurator = NewConfigurator(DefaultMinDimension, DefaultMaxDimension)
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}
	dispatch := deps.Dispatch
	if dispatch == nil {
		dispatch = func(task func()) { go task() }
	}
	timeout := deps.SideEffectTimeout
	if timeout <= 0 {
		timeout = defaultSideEffectTimeout
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	svc := &orderService{
		orders:       deps.Orders,
		customers:    deps.Customers,
		catalog:      deps.Catalog,
		configurator: configurator,
		numbers:      deps.Numbers,
		notifier:     deps.Notifier,
		events:       deps.Events,
		archiver:     deps.Archiver,
		clock:        func() time.Time { return clock().UTC() },
		newID:        idGen,
		dispatch:     dispatch,
		timeout:      timeout,
		logger:       logger,
	}
	if deps.Meter != nil {
		counter, err := deps.Meter.Int64Counter("orders.submitted", metric.WithDescription("Orders accepted from the storefront"))
		if err != nil {
			return nil, fmt.Errorf("order service: register metric: %w", err)
		}
		svc.submitted = counter
	}
	return svc, nil
}

func (s *orderService) Submit(ctx context.Context, cmd SubmitOrderCommand) (domain.Order, error) {
	customerID := strings.TrimSpace(cmd.CustomerID)
	if customerID == "" {
		return domain.Order{}, ErrUnauthorized
	}

	info := cleanCustomerInfo(cmd.CustomerInfo)
	if s.customers != nil {
		account, err := s.customers.FindByID(ctx, customerID)
		switch {
		case err == nil:
			info = mergeCustomerInfo(info, account.Info())
		case repositories.IsNotFound(err):
			s.logger(ctx, "order.customer_missing", map[string]any{"customerId": customerID})
		default:
			return domain.Order{}, fmt.Errorf("order: load customer: %w", err)
		}
	}

	catalog, err := s.catalog.Get(ctx)
	if err != nil {
		return domain.Order{}, err
	}

	cfg := NormalizeConfiguration(catalog, cmd.Configuration)
	cfg.AdditionalOptions = textutil.CleanList(cfg.AdditionalOptions)
	if err := s.configurator.ValidateSubmission(catalog, info, cfg); err != nil {
		return domain.Order{}, err
	}
	pricing, err := PriceConfiguration(catalog, cfg, PricingModeSubmission)
	if err != nil {
		return domain.Order{}, err
	}
	if cmd.ClientPricing != nil && math.Abs(cmd.ClientPricing.TotalPrice-pricing.TotalPrice) >= 0.01 {
		s.logger(ctx, "order.client_price_mismatch", map[string]any{
			"clientTotal": cmd.ClientPricing.TotalPrice,
			"serverTotal": pricing.TotalPrice,
		})
	}

	number, err := s.numbers.NextOrderNumber(ctx)
	if err != nil {
		return domain.Order{}, err
	}

	now := s.clock()
	order := domain.Order{
		ID:            s.newID(),
		OrderNumber:   number,
		UserID:        customerID,
		CustomerInfo:  info,
		Configuration: cfg,
		Pricing:       pricing,
		Status:        domain.OrderStatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.orders.Insert(ctx, order); err != nil {
		return domain.Order{}, fmt.Errorf("order: insert: %w", err)
	}

	s.logger(ctx, "order.submitted", map[string]any{"orderId": order.ID, "orderNumber": order.OrderNumber, "totalPrice": pricing.TotalPrice})
	if s.submitted != nil {
		s.submitted.Add(ctx, 1, metric.WithAttributes(attribute.String("windowType", cfg.WindowType)))
	}

	document := RenderOrderDocument(order, catalog)
	s.afterCommit(ctx, "order.created", func(ctx context.Context) {
		if s.notifier != nil {
			if err := s.notifier.NotifyOrderSubmitted(ctx, order, document); err != nil {
				s.logger(ctx, "order.notify_failed", map[string]any{"orderNumber": order.OrderNumber, "error": err.Error()})
			}
		}
		s.publish(ctx, OrderEvent{
			Type:        OrderEventCreated,
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
			Status:      string(order.Status),
			TotalPrice:  pricing.TotalPrice,
			OccurredAt:  now,
		})
		if s.archiver != nil {
			location, err := s.archiver.ArchiveOrderDocument(ctx, order.OrderNumber, order.CreatedAt, document)
			if err != nil {
				s.logger(ctx, "order.archive_failed", map[string]any{"orderNumber": order.OrderNumber, "error": err.Error()})
				return
			}
			s.logger(ctx, "order.archived", map[string]any{"orderNumber": order.OrderNumber, "location": location})
		}
	})
	return order, nil
}

func (s *orderService) List(ctx context.Context, filter OrderListFilter) (domain.PageResult[domain.Order], error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return domain.PageResult[domain.Order]{}, fmt.Errorf("%w: unknown status %q", ErrOrderInvalidInput, filter.Status)
	}
	return s.orders.List(ctx, repositories.OrderListFilter{Status: filter.Status, Page: filter.Page})
}

func (s *orderService) Get(ctx context.Context, orderID string) (domain.Order, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return domain.Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return domain.Order{}, ErrOrderNotFound
		}
		return domain.Order{}, err
	}
	return order, nil
}

func (s *orderService) Update(ctx context.Context, cmd UpdateOrderCommand) (domain.Order, error) {
	if cmd.Status == nil && cmd.Notes == nil {
		return domain.Order{}, fmt.Errorf("%w: status or notes is required", ErrOrderInvalidInput)
	}
	order, err := s.Get(ctx, cmd.OrderID)
	if err != nil {
		return domain.Order{}, err
	}

	previous := order.Status
	if cmd.Status != nil && *cmd.Status != order.Status {
		next := *cmd.Status
		if !next.Valid() {
			return domain.Order{}, fmt.Errorf("%w: unknown status %q", ErrOrderInvalidInput, next)
		}
		if !slices.Contains(orderStateTransitions[order.Status], next) {
			return domain.Order{}, fmt.Errorf("%w: %s -> %s", ErrOrderInvalidState, order.Status, next)
		}
		order.Status = next
	}
	if cmd.Notes != nil {
		order.Notes = strings.TrimSpace(*cmd.Notes)
	}
	order.UpdatedAt = s.clock()

	if err := s.orders.UpdateStatusAndNotes(ctx, order); err != nil {
		if repositories.IsNotFound(err) {
			return domain.Order{}, ErrOrderNotFound
		}
		return domain.Order{}, fmt.Errorf("order: update: %w", err)
	}

	if order.Status != previous {
		s.logger(ctx, "order.status_changed", map[string]any{"orderId": order.ID, "from": string(previous), "to": string(order.Status)})
		event := OrderEvent{
			Type:           OrderEventStatusChanged,
			OrderID:        order.ID,
			OrderNumber:    order.OrderNumber,
			Status:         string(order.Status),
			PreviousStatus: string(previous),
			TotalPrice:     order.Pricing.TotalPrice,
			OccurredAt:     order.UpdatedAt,
		}
		s.afterCommit(ctx, event.Type, func(ctx context.Context) { s.publish(ctx, event) })
	}
	return order, nil
}

func (s *orderService) Delete(ctx context.Context, orderID string) error {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}
	if err := s.orders.Delete(ctx, orderID); err != nil {
		if repositories.IsNotFound(err) {
			return ErrOrderNotFound
		}
		return fmt.Errorf("order: delete: %w", err)
	}
	s.logger(ctx, "order.deleted", map[string]any{"orderId": orderID})
	return nil
}

// afterCommit runs task detached from the request so a slow mail server or
// topic never delays or fails the response.
func (s *orderService) afterCommit(ctx context.Context, name string, task func(context.Context)) {
	detached := context.WithoutCancel(ctx)
	s.dispatch(func() {
		taskCtx, cancel := context.WithTimeout(detached, s.timeout)
		defer cancel()
		defer func() {
			if r := recover(); r != nil {
				s.logger(taskCtx, "order.side_effect_panic", map[string]any{"task": name, "panic": fmt.Sprint(r)})
			}
		}()
		task(taskCtx)
	})
}

func (s *orderService) publish(ctx context.Context, event OrderEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishOrderEvent(ctx, event); err != nil {
		s.logger(ctx, "order.publish_failed", map[string]any{"type": event.Type, "orderNumber": event.OrderNumber, "error": err.Error()})
	}
}

func cleanCustomerInfo(info domain.CustomerInfo) domain.CustomerInfo {
	return domain.CustomerInfo{
		Name:    textutil.Clean(info.Name),
		Email:   textutil.NormalizeEmail(info.Email),
		Phone:   textutil.Clean(info.Phone),
		Address: textutil.Clean(info.Address),
	}
}

// mergeCustomerInfo fills blank order fields from the customer's account.
func mergeCustomerInfo(info, account domain.CustomerInfo) domain.CustomerInfo {
	if info.Name == "" {
		info.Name = account.Name
	}
	if info.Email == "" {
		info.Email = account.Email
	}
	if info.Phone == "" {
		info.Phone = account.Phone
	}
	if info.Address == "" {
		info.Address = account.Address
	}
	return info
}
