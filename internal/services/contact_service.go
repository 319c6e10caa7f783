package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/trendhome-fenster/api/internal/domain"
	"github.com/trendhome-fenster/api/internal/platform/textutil"
	"github.com/trendhome-fenster/api/internal/repositories"
)

const maxContactMessageLength = 5000

// ErrContactNotFound indicates the contact request could not be located.
var ErrContactNotFound = fmt.Errorf("contact: %w", ErrNotFound)

// ContactNotifier forwards new contact requests to staff.
type ContactNotifier interface {
	NotifyContactSubmitted(ctx context.Context, contact domain.Contact) error
}

// SubmitContactCommand carries a public contact form submission.
type SubmitContactCommand struct {
	Name    string
	Email   string
	Phone   string
	Subject string
	Message string
}

// ContactListFilter narrows admin contact listings.
type ContactListFilter struct {
	Status domain.ContactStatus
	Page   domain.Page
}

// ContactServiceDeps bundles collaborators required to construct the contact service.
type ContactServiceDeps struct {
	Contacts    repositories.ContactRepository
	Notifier    ContactNotifier
	Clock       func() time.Time
	IDGenerator func() string
	Dispatch    func(task func())
	Logger      func(ctx context.Context, event string, fields map[string]any)
}

type contactService struct {
	contacts repositories.ContactRepository
	notifier ContactNotifier
	clock    func() time.Time
	newID    func() string
	dispatch func(func())
	logger   func(context.Context, string, map[string]any)
}

// NewContactService wires dependencies into a ContactService.
func NewContactService(deps ContactServiceDeps) (ContactService, error) {
	if deps.Contacts == nil {
		return nil, errors.New("contact service: contact repository is required")
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
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &contactService{
		contacts: deps.Contacts,
		notifier: deps.Notifier,
		clock:    func() time.Time { return clock().UTC() },
		newID:    idGen,
		dispatch: dispatch,
		logger:   logger,
	}, nil
}

func (s *contactService) Submit(ctx context.Context, cmd SubmitContactCommand) (domain.Contact, error) {
	contact := domain.Contact{
		Name:    textutil.Clean(cmd.Name),
		Email:   textutil.NormalizeEmail(cmd.Email),
		Phone:   textutil.Clean(cmd.Phone),
		Subject: textutil.Clean(cmd.Subject),
		Message: strings.TrimSpace(cmd.Message),
	}

	var missing []string
	for _, field := range []struct{ name, value string }{
		{"name", contact.Name},
		{"email", contact.Email},
		{"phone", contact.Phone},
		{"subject", contact.Subject},
		{"message", contact.Message},
	} {
		if field.value == "" {
			missing = append(missing, field.name)
		}
	}
	if err := newMissingFieldError(missing); err != nil {
		return domain.Contact{}, err
	}

	var issues issueList
	if !textutil.ValidEmail(contact.Email) {
		issues.add("email", "must be a valid email address")
	}
	if len(contact.Message) > maxContactMessageLength {
		issues.add("message", "must be at most %d characters", maxContactMessageLength)
	}
	if err := issues.err(); err != nil {
		return domain.Contact{}, err
	}

	now := s.clock()
	contact.ID = s.newID()
	contact.Status = domain.ContactStatusNew
	contact.CreatedAt = now
	contact.UpdatedAt = now
	if err := s.contacts.Insert(ctx, contact); err != nil {
		return domain.Contact{}, fmt.Errorf("contact: insert: %w", err)
	}
	s.logger(ctx, "contact.submitted", map[string]any{"contactId": contact.ID})

	if s.notifier != nil {
		detached := context.WithoutCancel(ctx)
		s.dispatch(func() {
			notifyCtx, cancel := context.WithTimeout(detached, defaultSideEffectTimeout)
			defer cancel()
			if err := s.notifier.NotifyContactSubmitted(notifyCtx, contact); err != nil {
				s.logger(notifyCtx, "contact.notify_failed", map[string]any{"contactId": contact.ID, "error": err.Error()})
			}
		})
	}
	return contact, nil
}

func (s *contactService) List(ctx context.Context, filter ContactListFilter) (domain.PageResult[domain.Contact], error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return domain.PageResult[domain.Contact]{}, &ValidationError{Issues: []FieldIssue{{Field: "status", Message: fmt.Sprintf("unknown status %q", filter.Status)}}}
	}
	return s.contacts.List(ctx, repositories.ContactListFilter{Status: filter.Status, Page: filter.Page})
}

func (s *contactService) Get(ctx context.Context, contactID string) (domain.Contact, error) {
	contactID = strings.TrimSpace(contactID)
	if contactID == "" {
		return domain.Contact{}, ErrContactNotFound
	}
	contact, err := s.contacts.FindByID(ctx, contactID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return domain.Contact{}, ErrContactNotFound
		}
		return domain.Contact{}, err
	}
	return contact, nil
}

// UpdateStatus moves a contact between triage states. Any known status may
// follow any other.
func (s *contactService) UpdateStatus(ctx context.Context, contactID string, status domain.ContactStatus) (domain.Contact, error) {
	if !status.Valid() {
		return domain.Contact{}, &ValidationError{Issues: []FieldIssue{{Field: "status", Message: fmt.Sprintf("unknown status %q", status)}}}
	}
	contact, err := s.Get(ctx, contactID)
	if err != nil {
		return domain.Contact{}, err
	}
	contact.Status = status
	contact.UpdatedAt = s.clock()
	if err := s.contacts.UpdateStatus(ctx, contact); err != nil {
		if repositories.IsNotFound(err) {
			return domain.Contact{}, ErrContactNotFound
		}
		return domain.Contact{}, fmt.Errorf("contact: update: %w", err)
	}
	return contact, nil
}

func (s *contactService) Delete(ctx context.Context, contactID string) error {
	contactID = strings.TrimSpace(contactID)
	if contactID == "" {
		return ErrContactNotFound
	}
	if err := s.contacts.Delete(ctx, contactID); err != nil {
		if repositories.IsNotFound(err) {
			return ErrContactNotFound
		}
		return fmt.Errorf("contact: delete: %w", err)
	}
	return nil
}
