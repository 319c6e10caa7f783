package repositories

import (
	"context"

	domain "github.com/trendhome-fenster/api/internal/domain"
)

// Registry exposes typed repository accessors and lifecycle hooks for dependency injection.
type Registry interface {
	Close(ctx context.Context) error

	Catalog() CatalogRepository
	Orders() OrderRepository
	Contacts() ContactRepository
	Customers() CustomerRepository
	Admins() AdminRepository
	Counters() CounterRepository
	Health() HealthRepository
}

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// CatalogRepository stores the single catalog snapshot. Get returns a
// RepositoryError with IsNotFound when no catalog was ever stored.
type CatalogRepository interface {
	Get(ctx context.Context) (domain.Catalog, error)
	Replace(ctx context.Context, catalog domain.Catalog) error
}

// OrderListFilter narrows order listings. An empty Status lists every order.
type OrderListFilter struct {
	Status domain.OrderStatus
	Page   domain.Page
}

// OrderRepository persists submitted orders.
type OrderRepository interface {
	Insert(ctx context.Context, order domain.Order) error
	FindByID(ctx context.Context, orderID string) (domain.Order, error)
	List(ctx context.Context, filter OrderListFilter) (domain.PageResult[domain.Order], error)
	// UpdateStatusAndNotes writes only the mutable fields of an order.
	UpdateStatusAndNotes(ctx context.Context, order domain.Order) error
	Delete(ctx context.Context, orderID string) error
	Count(ctx context.Context, status domain.OrderStatus) (int, error)
	Recent(ctx context.Context, limit int) ([]domain.Order, error)
}

// ContactListFilter narrows contact listings. An empty Status lists every contact.
type ContactListFilter struct {
	Status domain.ContactStatus
	Page   domain.Page
}

// ContactRepository persists contact form submissions.
type ContactRepository interface {
	Insert(ctx context.Context, contact domain.Contact) error
	FindByID(ctx context.Context, contactID string) (domain.Contact, error)
	List(ctx context.Context, filter ContactListFilter) (domain.PageResult[domain.Contact], error)
	UpdateStatus(ctx context.Context, contact domain.Contact) error
	Delete(ctx context.Context, contactID string) error
	Count(ctx context.Context, status domain.ContactStatus) (int, error)
	Recent(ctx context.Context, limit int) ([]domain.Contact, error)
}

// CustomerRepository persists storefront accounts. Create reports a conflict
// when the email is already registered.
type CustomerRepository interface {
	Create(ctx context.Context, customer domain.Customer) error
	FindByID(ctx context.Context, customerID string) (domain.Customer, error)
	FindByEmail(ctx context.Context, email string) (domain.Customer, error)
}

// AdminRepository persists back-office accounts.
type AdminRepository interface {
	Create(ctx context.Context, admin domain.Admin) error
	FindByUsername(ctx context.Context, username string) (domain.Admin, error)
	Count(ctx context.Context) (int, error)
}

// CounterRepository exposes monotonic counters backed by a transactional store.
type CounterRepository interface {
	Next(ctx context.Context, counterID string, step int64) (int64, error)
}

// HealthRepository aggregates dependency checks for readiness checks.
type HealthRepository interface {
	Collect(ctx context.Context) (domain.SystemHealthReport, error)
}
