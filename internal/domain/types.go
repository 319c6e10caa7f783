package domain

import (
	"time"
)

// Page describes 1-based offset pagination inputs for list operations.
type Page struct {
	Number int
	Limit  int
}

// Offset returns the number of records to skip.
func (p Page) Offset() int {
	if p.Number <= 1 || p.Limit <= 0 {
		return 0
	}
	return (p.Number - 1) * p.Limit
}

// PageResult wraps a page of items with totals used by list endpoints.
type PageResult[T any] struct {
	Items       []T
	Total       int
	CurrentPage int
	TotalPages  int
}

// NewPageResult computes page totals for the supplied slice.
func NewPageResult[T any](items []T, total int, page Page) PageResult[T] {
	totalPages := 0
	if page.Limit > 0 {
		totalPages = (total + page.Limit - 1) / page.Limit
	}
	current := page.Number
	if current <= 0 {
		current = 1
	}
	return PageResult[T]{
		Items:       items,
		Total:       total,
		CurrentPage: current,
		TotalPages:  totalPages,
	}
}

// OrderStatus enumerates valid lifecycle states for orders.
type OrderStatus string

const (
	// OrderStatusPending is the initial state of every submitted order.
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusProcessing indicates staff are preparing the quote or production.
	OrderStatusProcessing OrderStatus = "processing"
	// OrderStatusCompleted is terminal.
	OrderStatusCompleted OrderStatus = "completed"
	// OrderStatusCancelled is terminal.
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Valid reports whether the status is known.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusCompleted, OrderStatusCancelled:
		return true
	default:
		return false
	}
}

// Order is a submitted configuration with its quoted price. Only Status and Notes change after creation.
type Order struct {
	ID            string
	OrderNumber   string
	UserID        string
	CustomerInfo  CustomerInfo
	Configuration Configuration
	Pricing       Pricing
	Status        OrderStatus
	Notes         string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// OrderSummary is the projection shown on the admin dashboard.
type OrderSummary struct {
	ID           string
	OrderNumber  string
	CustomerName string
	Status       OrderStatus
	TotalPrice   float64
	CreatedAt    time.Time
}

// Summary projects the order onto its dashboard fields.
func (o Order) Summary() OrderSummary {
	return OrderSummary{
		ID:           o.ID,
		OrderNumber:  o.OrderNumber,
		CustomerName: o.CustomerInfo.Name,
		Status:       o.Status,
		TotalPrice:   o.Pricing.TotalPrice,
		CreatedAt:    o.CreatedAt,
	}
}

// ContactStatus enumerates the triage states of a contact request.
type ContactStatus string

const (
	ContactStatusNew     ContactStatus = "new"
	ContactStatusRead    ContactStatus = "read"
	ContactStatusReplied ContactStatus = "replied"
	ContactStatusClosed  ContactStatus = "closed"
)

// Valid reports whether the status is known.
func (s ContactStatus) Valid() bool {
	switch s {
	case ContactStatusNew, ContactStatusRead, ContactStatusReplied, ContactStatusClosed:
		return true
	default:
		return false
	}
}

// Contact is a message submitted through the public contact form.
type Contact struct {
	ID        string
	Name      string
	Email     string
	Phone     string
	Subject   string
	Message   string
	Status    ContactStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ContactSummary is the projection shown on the admin dashboard.
type ContactSummary struct {
	ID        string
	Name      string
	Email     string
	Subject   string
	Status    ContactStatus
	CreatedAt time.Time
}

// Summary projects the contact onto its dashboard fields.
func (c Contact) Summary() ContactSummary {
	return ContactSummary{
		ID:        c.ID,
		Name:      c.Name,
		Email:     c.Email,
		Subject:   c.Subject,
		Status:    c.Status,
		CreatedAt: c.CreatedAt,
	}
}

// Customer is a registered storefront account.
type Customer struct {
	ID           string
	Name         string
	Email        string
	Phone        string
	Address      string
	PasswordHash string
	CreatedAt    time.Time
}

// Info returns the customer's contact details in order form.
func (c Customer) Info() CustomerInfo {
	return CustomerInfo{
		Name:    c.Name,
		Email:   c.Email,
		Phone:   c.Phone,
		Address: c.Address,
	}
}

// Admin is a back-office account.
type Admin struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// DashboardStats aggregates order and contact counts for the admin overview.
type DashboardStats struct {
	TotalOrders      int
	PendingOrders    int
	ProcessingOrders int
	CompletedOrders  int
	CancelledOrders  int
	TotalContacts    int
	NewContacts      int
	RecentOrders     []OrderSummary
	RecentContacts   []ContactSummary
}

const (
	HealthStatusOK       = "ok"
	HealthStatusDegraded = "degraded"
	HealthStatusError    = "error"
)

// SystemHealthCheck is the outcome of one dependency check.
type SystemHealthCheck struct {
	Status    string
	Detail    string
	Error     string
	Latency   time.Duration
	CheckedAt time.Time
}

// SystemHealthReport aggregates dependency checks for the readiness endpoint.
type SystemHealthReport struct {
	Status      string
	Version     string
	CommitSHA   string
	Environment string
	Uptime      time.Duration
	Checks      map[string]SystemHealthCheck
	GeneratedAt time.Time
}
