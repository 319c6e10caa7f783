package services

import (
	"context"

	domain "github.com/trendhome-fenster/api/internal/domain"
)

// CatalogService reads and replaces the configurator catalog.
type CatalogService interface {
	Get(ctx context.Context) (domain.Catalog, error)
	Replace(ctx context.Context, catalog domain.Catalog) (domain.Catalog, error)
	EnsureDefaults(ctx context.Context) (bool, error)
}

// CounterService allocates human-readable sequence numbers.
type CounterService interface {
	NextOrderNumber(ctx context.Context) (string, error)
}

// OrderService handles customer submissions and the admin order lifecycle.
type OrderService interface {
	Submit(ctx context.Context, cmd SubmitOrderCommand) (domain.Order, error)
	List(ctx context.Context, filter OrderListFilter) (domain.PageResult[domain.Order], error)
	Get(ctx context.Context, orderID string) (domain.Order, error)
	Update(ctx context.Context, cmd UpdateOrderCommand) (domain.Order, error)
	Delete(ctx context.Context, orderID string) error
}

// ContactService stores public contact requests and their triage state.
type ContactService interface {
	Submit(ctx context.Context, cmd SubmitContactCommand) (domain.Contact, error)
	List(ctx context.Context, filter ContactListFilter) (domain.PageResult[domain.Contact], error)
	Get(ctx context.Context, contactID string) (domain.Contact, error)
	UpdateStatus(ctx context.Context, contactID string, status domain.ContactStatus) (domain.Contact, error)
	Delete(ctx context.Context, contactID string) error
}

// UserService manages customer and admin accounts and issues session tokens.
type UserService interface {
	Register(ctx context.Context, cmd RegisterCustomerCommand) (CustomerSession, error)
	LoginCustomer(ctx context.Context, email, password string) (CustomerSession, error)
	LoginAdmin(ctx context.Context, username, password string) (AdminSession, error)
	Profile(ctx context.Context, customerID string) (domain.Customer, error)
	EnsureDefaultAdmin(ctx context.Context, admin DefaultAdmin) (bool, error)
}

// DashboardService aggregates admin overview figures.
type DashboardService interface {
	Stats(ctx context.Context) (domain.DashboardStats, error)
}

// SystemService reports dependency health.
type SystemService interface {
	HealthReport(ctx context.Context) (domain.SystemHealthReport, error)
}
