package services

import (
	"context"
	"sort"
	"strings"
	"sync"

	domain "github.com/trendhome-fenster/api/internal/domain"
	"github.com/trendhome-fenster/api/internal/repositories"
)

type repoError struct {
	notFound bool
	conflict bool
}

func (e repoError) Error() string {
	switch {
	case e.notFound:
		return "not found"
	case e.conflict:
		return "conflict"
	default:
		return "repository error"
	}
}

func (e repoError) IsNotFound() bool    { return e.notFound }
func (e repoError) IsConflict() bool    { return e.conflict }
func (e repoError) IsUnavailable() bool { return false }

var (
	errRepoNotFound = repoError{notFound: true}
	errRepoConflict = repoError{conflict: true}
)

type memoryCatalogRepo struct {
	mu      sync.Mutex
	catalog *domain.Catalog
	writes  int
}

func (r *memoryCatalogRepo) Get(context.Context) (domain.Catalog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.catalog == nil {
		return domain.Catalog{}, errRepoNotFound
	}
	return *r.catalog, nil
}

func (r *memoryCatalogRepo) Replace(_ context.Context, catalog domain.Catalog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.catalog = &catalog
	r.writes++
	return nil
}

type memoryOrderRepo struct {
	mu     sync.Mutex
	orders map[string]domain.Order
}

func newMemoryOrderRepo() *memoryOrderRepo {
	return &memoryOrderRepo{orders: make(map[string]domain.Order)}
}

func (r *memoryOrderRepo) Insert(_ context.Context, order domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.orders[order.ID]; ok {
		return errRepoConflict
	}
	r.orders[order.ID] = order
	return nil
}

func (r *memoryOrderRepo) FindByID(_ context.Context, id string) (domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[id]
	if !ok {
		return domain.Order{}, errRepoNotFound
	}
	return order, nil
}

func (r *memoryOrderRepo) sorted(status domain.OrderStatus) []domain.Order {
	var out []domain.Order
	for _, order := range r.orders {
		if status == "" || order.Status == status {
			out = append(out, order)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r *memoryOrderRepo) List(_ context.Context, filter repositories.OrderListFilter) (domain.PageResult[domain.Order], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := r.sorted(filter.Status)
	start := min(filter.Page.Offset(), len(all))
	end := len(all)
	if filter.Page.Limit > 0 {
		end = min(start+filter.Page.Limit, len(all))
	}
	return domain.NewPageResult(all[start:end], len(all), filter.Page), nil
}

func (r *memoryOrderRepo) UpdateStatusAndNotes(_ context.Context, order domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.orders[order.ID]
	if !ok {
		return errRepoNotFound
	}
	existing.Status = order.Status
	existing.Notes = order.Notes
	existing.UpdatedAt = order.UpdatedAt
	r.orders[order.ID] = existing
	return nil
}

func (r *memoryOrderRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.orders[id]; !ok {
		return errRepoNotFound
	}
	delete(r.orders, id)
	return nil
}

func (r *memoryOrderRepo) Count(_ context.Context, status domain.OrderStatus) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sorted(status)), nil
}

func (r *memoryOrderRepo) Recent(_ context.Context, limit int) ([]domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := r.sorted("")
	return all[:min(limit, len(all))], nil
}

type memoryContactRepo struct {
	mu       sync.Mutex
	contacts map[string]domain.Contact
}

func newMemoryContactRepo() *memoryContactRepo {
	return &memoryContactRepo{contacts: make(map[string]domain.Contact)}
}

func (r *memoryContactRepo) Insert(_ context.Context, contact domain.Contact) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.contacts[contact.ID] = contact
	return nil
}

func (r *memoryContactRepo) FindByID(_ context.Context, id string) (domain.Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	contact, ok := r.contacts[id]
	if !ok {
		return domain.Contact{}, errRepoNotFound
	}
	return contact, nil
}

func (r *memoryContactRepo) sorted(status domain.ContactStatus) []domain.Contact {
	var out []domain.Contact
	for _, contact := range r.contacts {
		if status == "" || contact.Status == status {
			out = append(out, contact)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r *memoryContactRepo) List(_ context.Context, filter repositories.ContactListFilter) (domain.PageResult[domain.Contact], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := r.sorted(filter.Status)
	start := min(filter.Page.Offset(), len(all))
	end := len(all)
	if filter.Page.Limit > 0 {
		end = min(start+filter.Page.Limit, len(all))
	}
	return domain.NewPageResult(all[start:end], len(all), filter.Page), nil
}

func (r *memoryContactRepo) UpdateStatus(_ context.Context, contact domain.Contact) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.contacts[contact.ID]
	if !ok {
		return errRepoNotFound
	}
	existing.Status = contact.Status
	existing.UpdatedAt = contact.UpdatedAt
	r.contacts[contact.ID] = existing
	return nil
}

func (r *memoryContactRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.contacts[id]; !ok {
		return errRepoNotFound
	}
	delete(r.contacts, id)
	return nil
}

func (r *memoryContactRepo) Count(_ context.Context, status domain.ContactStatus) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sorted(status)), nil
}

func (r *memoryContactRepo) Recent(_ context.Context, limit int) ([]domain.Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := r.sorted("")
	return all[:min(limit, len(all))], nil
}

type memoryCustomerRepo struct {
	mu        sync.Mutex
	customers map[string]domain.Customer
}

func newMemoryCustomerRepo() *memoryCustomerRepo {
	return &memoryCustomerRepo{customers: make(map[string]domain.Customer)}
}

func (r *memoryCustomerRepo) Create(_ context.Context, customer domain.Customer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.customers {
		if strings.EqualFold(existing.Email, customer.Email) {
			return errRepoConflict
		}
	}
	r.customers[customer.ID] = customer
	return nil
}

func (r *memoryCustomerRepo) FindByID(_ context.Context, id string) (domain.Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	customer, ok := r.customers[id]
	if !ok {
		return domain.Customer{}, errRepoNotFound
	}
	return customer, nil
}

func (r *memoryCustomerRepo) FindByEmail(_ context.Context, email string) (domain.Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, customer := range r.customers {
		if strings.EqualFold(customer.Email, email) {
			return customer, nil
		}
	}
	return domain.Customer{}, errRepoNotFound
}

type memoryAdminRepo struct {
	mu     sync.Mutex
	admins map[string]domain.Admin
}

func newMemoryAdminRepo() *memoryAdminRepo {
	return &memoryAdminRepo{admins: make(map[string]domain.Admin)}
}

func (r *memoryAdminRepo) Create(_ context.Context, admin domain.Admin) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.admins {
		if strings.EqualFold(strings.TrimSpace(existing.Username), strings.TrimSpace(admin.Username)) {
			return errRepoConflict
		}
	}
	r.admins[admin.ID] = admin
	return nil
}

func (r *memoryAdminRepo) FindByUsername(_ context.Context, username string) (domain.Admin, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, admin := range r.admins {
		if strings.EqualFold(strings.TrimSpace(admin.Username), strings.TrimSpace(username)) {
			return admin, nil
		}
	}
	return domain.Admin{}, errRepoNotFound
}

func (r *memoryAdminRepo) Count(context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.admins), nil
}

type memoryCounterRepo struct {
	mu     sync.Mutex
	values map[string]int64
}

func newMemoryCounterRepo() *memoryCounterRepo {
	return &memoryCounterRepo{values: make(map[string]int64)}
}

func (r *memoryCounterRepo) Next(_ context.Context, id string, step int64) (int64, error) {
	if strings.TrimSpace(id) == "" || step < 0 {
		return 0, repositories.ErrInvalidCounter
	}
	if step == 0 {
		step = 1
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values[id] += step
	return r.values[id], nil
}

// testCatalog mirrors the seeded defaults that the pricing examples refer to.
func testCatalog() domain.Catalog {
	catalog, err := DefaultCatalog()
	if err != nil {
		panic(err)
	}
	return catalog
}

func standardConfiguration() domain.Configuration {
	return domain.Configuration{
		Manufacturer:  "salamander82",
		Material:      "pvc",
		WindowType:    "single-sash",
		GlassType:     "double",
		InteriorColor: "white",
		ExteriorColor: "white",
		LockingOption: "standard",
		Dimensions:    domain.Dimensions{Width: 1000, Height: 1200},
	}
}

func standardCustomer() domain.CustomerInfo {
	return domain.CustomerInfo{
		Name:    "Erika Mustermann",
		Email:   "erika@example.de",
		Phone:   "+49 30 1234567",
		Address: "Hauptstr. 1, 10115 Berlin",
	}
}
