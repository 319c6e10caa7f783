package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/trendhome-fenster/api/internal/domain"
	pfirestore "github.com/trendhome-fenster/api/internal/platform/firestore"
)

const (
	customersCollection      = "users"
	customerEmailsCollection = "user_emails"
	adminsCollection         = "admins"
	adminUsernamesCollection = "admin_usernames"
)

type customerDocument struct {
	Name         string    `firestore:"name"`
	Email        string    `firestore:"email"`
	Phone        string    `firestore:"phone"`
	Address      string    `firestore:"address"`
	PasswordHash string    `firestore:"passwordHash"`
	CreatedAt    time.Time `firestore:"createdAt"`
}

type adminDocument struct {
	Username     string    `firestore:"username"`
	Email        string    `firestore:"email"`
	PasswordHash string    `firestore:"passwordHash"`
	CreatedAt    time.Time `firestore:"createdAt"`
}

// uniqueKey reserves a natural key (email, username) for an owning document.
type uniqueKey struct {
	OwnerID   string    `firestore:"ownerId"`
	CreatedAt time.Time `firestore:"createdAt"`
}

// createUnique writes the entity and its natural-key reservation in one
// transaction. tx.Create fails with AlreadyExists for a taken key, which the
// provider surfaces as a conflict.
func createUnique[T any](ctx context.Context, provider *pfirestore.Provider, entities *pfirestore.Collection[T], keys *pfirestore.Collection[uniqueKey], id, key string, value T, now time.Time) error {
	return provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		keyRef, err := keys.Doc(ctx, key)
		if err != nil {
			return err
		}
		entityRef, err := entities.Doc(ctx, id)
		if err != nil {
			return err
		}
		payload, err := entities.Encode(value)
		if err != nil {
			return err
		}
		if err := tx.Create(keyRef, uniqueKey{OwnerID: id, CreatedAt: now.UTC()}); err != nil {
			return err
		}
		return tx.Create(entityRef, payload)
	}, pfirestore.WithTxAttempts(1))
}

// CustomerRepository stores storefront accounts with a unique email index.
type CustomerRepository struct {
	provider  *pfirestore.Provider
	customers *pfirestore.Collection[customerDocument]
	emails    *pfirestore.Collection[uniqueKey]
}

// NewCustomerRepository constructs a Firestore-backed customer repository.
func NewCustomerRepository(provider *pfirestore.Provider) (*CustomerRepository, error) {
	if provider == nil {
		return nil, errors.New("customer repository requires firestore provider")
	}
	return &CustomerRepository{
		provider:  provider,
		customers: pfirestore.NewCollection[customerDocument](provider, customersCollection, nil, nil),
		emails:    pfirestore.NewCollection[uniqueKey](provider, customerEmailsCollection, nil, nil),
	}, nil
}

func (r *CustomerRepository) Create(ctx context.Context, customer domain.Customer) error {
	email := strings.ToLower(strings.TrimSpace(customer.Email))
	if customer.ID == "" || email == "" {
		return errors.New("customer repository: id and email are required")
	}
	doc := customerDocument{
		Name:         customer.Name,
		Email:        email,
		Phone:        customer.Phone,
		Address:      customer.Address,
		PasswordHash: customer.PasswordHash,
		CreatedAt:    customer.CreatedAt.UTC(),
	}
	return createUnique(ctx, r.provider, r.customers, r.emails, customer.ID, email, doc, customer.CreatedAt)
}

func (r *CustomerRepository) FindByID(ctx context.Context, customerID string) (domain.Customer, error) {
	doc, err := r.customers.Get(ctx, strings.TrimSpace(customerID))
	if err != nil {
		return domain.Customer{}, err
	}
	return decodeCustomer(doc), nil
}

func (r *CustomerRepository) FindByEmail(ctx context.Context, email string) (domain.Customer, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	docs, err := r.customers.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("email", "==", email).Limit(1)
	})
	if err != nil {
		return domain.Customer{}, err
	}
	if len(docs) == 0 {
		return domain.Customer{}, pfirestore.NotFound("users.findByEmail", "customer")
	}
	return decodeCustomer(docs[0]), nil
}

func decodeCustomer(doc pfirestore.Document[customerDocument]) domain.Customer {
	return domain.Customer{
		ID:           doc.ID,
		Name:         doc.Data.Name,
		Email:        doc.Data.Email,
		Phone:        doc.Data.Phone,
		Address:      doc.Data.Address,
		PasswordHash: doc.Data.PasswordHash,
		CreatedAt:    doc.Data.CreatedAt,
	}
}

// AdminRepository stores back-office accounts with a unique username index.
type AdminRepository struct {
	provider  *pfirestore.Provider
	admins    *pfirestore.Collection[adminDocument]
	usernames *pfirestore.Collection[uniqueKey]
}

// NewAdminRepository constructs a Firestore-backed admin repository.
func NewAdminRepository(provider *pfirestore.Provider) (*AdminRepository, error) {
	if provider == nil {
		return nil, errors.New("admin repository requires firestore provider")
	}
	return &AdminRepository{
		provider:  provider,
		admins:    pfirestore.NewCollection[adminDocument](provider, adminsCollection, nil, nil),
		usernames: pfirestore.NewCollection[uniqueKey](provider, adminUsernamesCollection, nil, nil),
	}, nil
}

// usernameKey is the case-insensitive form of an admin username. It names the
// reservation document and is the only form lookups use.
func usernameKey(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

func (r *AdminRepository) Create(ctx context.Context, admin domain.Admin) error {
	username := strings.TrimSpace(admin.Username)
	if admin.ID == "" || username == "" {
		return errors.New("admin repository: id and username are required")
	}
	doc := adminDocument{
		Username:     username,
		Email:        strings.ToLower(strings.TrimSpace(admin.Email)),
		PasswordHash: admin.PasswordHash,
		CreatedAt:    admin.CreatedAt.UTC(),
	}
	return createUnique(ctx, r.provider, r.admins, r.usernames, admin.ID, usernameKey(username), doc, admin.CreatedAt)
}

// FindByUsername resolves the admin through the username reservation, so it
// matches regardless of case exactly like the uniqueness check in Create.
func (r *AdminRepository) FindByUsername(ctx context.Context, username string) (domain.Admin, error) {
	key := usernameKey(username)
	if key == "" {
		return domain.Admin{}, pfirestore.NotFound("admins.findByUsername", "admin")
	}
	reservation, err := r.usernames.Get(ctx, key)
	if err != nil {
		return domain.Admin{}, err
	}
	doc, err := r.admins.Get(ctx, reservation.Data.OwnerID)
	if err != nil {
		return domain.Admin{}, err
	}
	return domain.Admin{
		ID:           doc.ID,
		Username:     doc.Data.Username,
		Email:        doc.Data.Email,
		PasswordHash: doc.Data.PasswordHash,
		CreatedAt:    doc.Data.CreatedAt,
	}, nil
}

func (r *AdminRepository) Count(ctx context.Context) (int, error) {
	return r.admins.Count(ctx, nil)
}
