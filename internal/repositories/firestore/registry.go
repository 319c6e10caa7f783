package firestore

import (
	"context"
	"errors"

	pfirestore "github.com/trendhome-fenster/api/internal/platform/firestore"
	"github.com/trendhome-fenster/api/internal/repositories"
)

// Registry wires every Firestore repository over a shared provider.
type Registry struct {
	provider  *pfirestore.Provider
	catalog   *CatalogRepository
	orders    *OrderRepository
	contacts  *ContactRepository
	customers *CustomerRepository
	admins    *AdminRepository
	counters  *CounterRepository
	health    repositories.HealthRepository
}

var _ repositories.Registry = (*Registry)(nil)

// NewRegistry builds the repositories. The supplied checks run next to
// Firestore itself on readiness.
func NewRegistry(provider *pfirestore.Provider, checks ...repositories.DependencyCheck) (*Registry, error) {
	if provider == nil {
		return nil, errors.New("registry requires firestore provider")
	}
	reg := &Registry{provider: provider}
	var err error
	if reg.catalog, err = NewCatalogRepository(provider); err != nil {
		return nil, err
	}
	if reg.orders, err = NewOrderRepository(provider); err != nil {
		return nil, err
	}
	if reg.contacts, err = NewContactRepository(provider); err != nil {
		return nil, err
	}
	if reg.customers, err = NewCustomerRepository(provider); err != nil {
		return nil, err
	}
	if reg.admins, err = NewAdminRepository(provider); err != nil {
		return nil, err
	}
	if reg.counters, err = NewCounterRepository(provider); err != nil {
		return nil, err
	}

	all := append([]repositories.DependencyCheck{{Name: "firestore", Check: provider.Ping}}, checks...)
	if reg.health, err = repositories.NewDependencyHealthRepository(all); err != nil {
		return nil, err
	}
	return reg, nil
}

func (r *Registry) Close(ctx context.Context) error { return r.provider.Close(ctx) }

func (r *Registry) Catalog() repositories.CatalogRepository    { return r.catalog }
func (r *Registry) Orders() repositories.OrderRepository       { return r.orders }
func (r *Registry) Contacts() repositories.ContactRepository   { return r.contacts }
func (r *Registry) Customers() repositories.CustomerRepository { return r.customers }
func (r *Registry) Admins() repositories.AdminRepository       { return r.admins }
func (r *Registry) Counters() repositories.CounterRepository   { return r.counters }
func (r *Registry) Health() repositories.HealthRepository      { return r.health }
