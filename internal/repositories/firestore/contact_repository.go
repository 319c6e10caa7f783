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

const contactsCollection = "contacts"

type contactDocument struct {
	Name      string    `firestore:"name"`
	Email     string    `firestore:"email"`
	Phone     string    `firestore:"phone"`
	Subject   string    `firestore:"subject"`
	Message   string    `firestore:"message"`
	Status    string    `firestore:"status"`
	CreatedAt time.Time `firestore:"createdAt"`
	UpdatedAt time.Time `firestore:"updatedAt"`
}

// ContactRepository persists contact form submissions.
type ContactRepository struct {
	contacts *pfirestore.Collection[contactDocument]
}

// NewContactRepository constructs a Firestore-backed contact repository.
func NewContactRepository(provider *pfirestore.Provider) (*ContactRepository, error) {
	if provider == nil {
		return nil, errors.New("contact repository requires firestore provider")
	}
	return &ContactRepository{
		contacts: pfirestore.NewCollection[contactDocument](provider, contactsCollection, nil, nil),
	}, nil
}

func (r *ContactRepository) Insert(ctx context.Context, contact domain.Contact) error {
	if strings.TrimSpace(contact.ID) == "" {
		return errors.New("contact repository: id is required")
	}
	return r.contacts.Create(ctx, contact.ID, contactDocument{
		Name:      contact.Name,
		Email:     contact.Email,
		Phone:     contact.Phone,
		Subject:   contact.Subject,
		Message:   contact.Message,
		Status:    string(contact.Status),
		CreatedAt: contact.CreatedAt.UTC(),
		UpdatedAt: contact.UpdatedAt.UTC(),
	})
}

func (r *ContactRepository) FindByID(ctx context.Context, contactID string) (domain.Contact, error) {
	doc, err := r.contacts.Get(ctx, strings.TrimSpace(contactID))
	if err != nil {
		return domain.Contact{}, err
	}
	return decodeContact(doc), nil
}

func (r *ContactRepository) List(ctx context.Context, filter repositories.ContactListFilter) (domain.PageResult[domain.Contact], error) {
	where := func(q firestore.Query) firestore.Query {
		if filter.Status != "" {
			q = q.Where("status", "==", string(filter.Status))
		}
		return q
	}
	total, err := r.contacts.Count(ctx, where)
	if err != nil {
		return domain.PageResult[domain.Contact]{}, err
	}
	docs, err := r.contacts.Query(ctx, func(q firestore.Query) firestore.Query {
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
		return domain.PageResult[domain.Contact]{}, err
	}
	items := make([]domain.Contact, 0, len(docs))
	for _, doc := range docs {
		items = append(items, decodeContact(doc))
	}
	return domain.NewPageResult(items, total, filter.Page), nil
}

func (r *ContactRepository) UpdateStatus(ctx context.Context, contact domain.Contact) error {
	return r.contacts.Update(ctx, contact.ID, []firestore.Update{
		{Path: "status", Value: string(contact.Status)},
		{Path: "updatedAt", Value: contact.UpdatedAt.UTC()},
	})
}

func (r *ContactRepository) Delete(ctx context.Context, contactID string) error {
	return r.contacts.Delete(ctx, strings.TrimSpace(contactID))
}

func (r *ContactRepository) Count(ctx context.Context, status domain.ContactStatus) (int, error) {
	return r.contacts.Count(ctx, func(q firestore.Query) firestore.Query {
		if status != "" {
			q = q.Where("status", "==", string(status))
		}
		return q
	})
}

func (r *ContactRepository) Recent(ctx context.Context, limit int) ([]domain.Contact, error) {
	if limit <= 0 {
		limit = 5
	}
	docs, err := r.contacts.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.OrderBy("createdAt", firestore.Desc).Limit(limit)
	})
	if err != nil {
		return nil, err
	}
	contacts := make([]domain.Contact, 0, len(docs))
	for _, doc := range docs {
		contacts = append(contacts, decodeContact(doc))
	}
	return contacts, nil
}

func decodeContact(doc pfirestore.Document[contactDocument]) domain.Contact {
	return domain.Contact{
		ID:        doc.ID,
		Name:      doc.Data.Name,
		Email:     doc.Data.Email,
		Phone:     doc.Data.Phone,
		Subject:   doc.Data.Subject,
		Message:   doc.Data.Message,
		Status:    domain.ContactStatus(doc.Data.Status),
		CreatedAt: doc.Data.CreatedAt,
		UpdatedAt: doc.Data.UpdatedAt,
	}
}
