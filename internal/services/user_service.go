package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/trendhome-fenster/api/internal/domain"
	"github.com/trendhome-fenster/api/internal/platform/auth"
	"github.com/trendhome-fenster/api/internal/platform/textutil"
	"github.com/trendhome-fenster/api/internal/repositories"
)

const minPasswordLength = 6

// ErrEmailTaken is returned when registering an address that already has an account.
var ErrEmailTaken = fmt.Errorf("account: email already registered: %w", ErrConflict)

// SessionIssuer signs bearer tokens for authenticated principals.
type SessionIssuer interface {
	Issue(identity auth.Identity) (auth.SessionToken, error)
}

// RegisterCustomerCommand carries a storefront sign-up.
type RegisterCustomerCommand struct {
	Name     string
	Email    string
	Phone    string
	Address  string
	Password string
}

// CustomerSession is returned after a successful customer login or registration.
type CustomerSession struct {
	Token    auth.SessionToken
	Customer domain.Customer
}

// AdminSession is returned after a successful admin login.
type AdminSession struct {
	Token auth.SessionToken
	Admin domain.Admin
}

// DefaultAdmin describes the bootstrap admin created on an empty installation.
type DefaultAdmin struct {
	Username string
	Email    string
	Password string
}

// UserServiceDeps bundles collaborators required to construct the account service.
type UserServiceDeps struct {
	Customers   repositories.CustomerRepository
	Admins      repositories.AdminRepository
	Sessions    SessionIssuer
	Clock       func() time.Time
	IDGenerator func() string
	Logger      func(ctx context.Context, event string, fields map[string]any)
}

type userService struct {
	customers repositories.CustomerRepository
	admins    repositories.AdminRepository
	sessions  SessionIssuer
	clock     func() time.Time
	newID     func() string
	logger    func(context.Context, string, map[string]any)

	dummyOnce sync.Once
	dummyHash string
}

// NewUserService wires account repositories and the token issuer into a UserService.
func NewUserService(deps UserServiceDeps) (UserService, error) {
	if deps.Customers == nil {
		return nil, errors.New("user service: customer repository is required")
	}
	if deps.Admins == nil {
		return nil, errors.New("user service: admin repository is required")
	}
	if deps.Sessions == nil {
		return nil, errors.New("user service: session issuer is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &userService{
		customers: deps.Customers,
		admins:    deps.Admins,
		sessions:  deps.Sessions,
		clock:     func() time.Time { return clock().UTC() },
		newID:     idGen,
		logger:    logger,
	}, nil
}

func (s *userService) Register(ctx context.Context, cmd RegisterCustomerCommand) (CustomerSession, error) {
	customer := domain.Customer{
		Name:    textutil.Clean(cmd.Name),
		Email:   textutil.NormalizeEmail(cmd.Email),
		Phone:   textutil.Clean(cmd.Phone),
		Address: textutil.Clean(cmd.Address),
	}

	var missing []string
	if customer.Name == "" {
		missing = append(missing, "name")
	}
	if customer.Email == "" {
		missing = append(missing, "email")
	}
	if cmd.Password == "" {
		missing = append(missing, "password")
	}
	if err := newMissingFieldError(missing); err != nil {
		return CustomerSession{}, err
	}
	var issues issueList
	if !textutil.ValidEmail(customer.Email) {
		issues.add("email", "must be a valid email address")
	}
	if len(cmd.Password) < minPasswordLength {
		issues.add("password", "must be at least %d characters", minPasswordLength)
	}
	if err := issues.err(); err != nil {
		return CustomerSession{}, err
	}

	hash, err := auth.HashPassword(cmd.Password)
	if err != nil {
		return CustomerSession{}, err
	}
	customer.ID = s.newID()
	customer.PasswordHash = hash
	customer.CreatedAt = s.clock()

	if err := s.customers.Create(ctx, customer); err != nil {
		if repositories.IsConflict(err) {
			return CustomerSession{}, ErrEmailTaken
		}
		return CustomerSession{}, fmt.Errorf("account: create customer: %w", err)
	}
	s.logger(ctx, "account.registered", map[string]any{"customerId": customer.ID})
	return s.customerSession(customer)
}

// LoginCustomer authenticates by email. Unknown addresses and wrong passwords
// both yield ErrUnauthorized after comparable work.
func (s *userService) LoginCustomer(ctx context.Context, email, password string) (CustomerSession, error) {
	customer, err := s.customers.FindByEmail(ctx, textutil.NormalizeEmail(email))
	if err != nil {
		if repositories.IsNotFound(err) {
			s.burnCompare(password)
			return CustomerSession{}, ErrUnauthorized
		}
		return CustomerSession{}, fmt.Errorf("account: find customer: %w", err)
	}
	if err := s.checkPassword(customer.PasswordHash, password); err != nil {
		return CustomerSession{}, err
	}
	return s.customerSession(customer)
}

func (s *userService) LoginAdmin(ctx context.Context, username, password string) (AdminSession, error) {
	admin, err := s.admins.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if repositories.IsNotFound(err) {
			s.burnCompare(password)
			return AdminSession{}, ErrUnauthorized
		}
		return AdminSession{}, fmt.Errorf("account: find admin: %w", err)
	}
	if err := s.checkPassword(admin.PasswordHash, password); err != nil {
		return AdminSession{}, err
	}
	token, err := s.sessions.Issue(auth.Identity{
		Subject: admin.ID,
		Role:    auth.RoleAdmin,
		Name:    admin.Username,
		Email:   admin.Email,
	})
	if err != nil {
		return AdminSession{}, err
	}
	s.logger(ctx, "account.admin_login", map[string]any{"adminId": admin.ID})
	return AdminSession{Token: token, Admin: admin}, nil
}

func (s *userService) Profile(ctx context.Context, customerID string) (domain.Customer, error) {
	if strings.TrimSpace(customerID) == "" {
		return domain.Customer{}, ErrUnauthorized
	}
	customer, err := s.customers.FindByID(ctx, customerID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return domain.Customer{}, fmt.Errorf("account: %w", ErrNotFound)
		}
		return domain.Customer{}, err
	}
	return customer, nil
}

// EnsureDefaultAdmin creates the bootstrap admin when no admin exists yet.
func (s *userService) EnsureDefaultAdmin(ctx context.Context, admin DefaultAdmin) (bool, error) {
	count, err := s.admins.Count(ctx)
	if err != nil {
		return false, fmt.Errorf("account: count admins: %w", err)
	}
	if count > 0 {
		return false, nil
	}
	if strings.TrimSpace(admin.Username) == "" || admin.Password == "" {
		return false, errors.New("account: default admin username and password are required")
	}
	hash, err := auth.HashPassword(admin.Password)
	if err != nil {
		return false, err
	}
	err = s.admins.Create(ctx, domain.Admin{
		ID:           s.newID(),
		Username:     strings.TrimSpace(admin.Username),
		Email:        textutil.NormalizeEmail(admin.Email),
		PasswordHash: hash,
		CreatedAt:    s.clock(),
	})
	if repositories.IsConflict(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("account: create default admin: %w", err)
	}
	s.logger(ctx, "account.default_admin_created", map[string]any{"username": admin.Username})
	return true, nil
}

func (s *userService) customerSession(customer domain.Customer) (CustomerSession, error) {
	token, err := s.sessions.Issue(auth.Identity{
		Subject: customer.ID,
		Role:    auth.RoleCustomer,
		Name:    customer.Name,
		Email:   customer.Email,
	})
	if err != nil {
		return CustomerSession{}, err
	}
	return CustomerSession{Token: token, Customer: customer}, nil
}

func (s *userService) checkPassword(hash, password string) error {
	if err := auth.ComparePassword(hash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return ErrUnauthorized
		}
		return err
	}
	return nil
}

// burnCompare spends a bcrypt comparison so unknown accounts take as long as
// wrong passwords.
func (s *userService) burnCompare(password string) {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = auth.HashPassword("not-a-real-password")
	})
	_ = auth.ComparePassword(s.dummyHash, password)
}
