package services

import (
	"context"
	"errors"
	"fmt"

	domain "github.com/trendhome-fenster/api/internal/domain"
	"github.com/trendhome-fenster/api/internal/repositories"
)

const dashboardRecentLimit = 5

// DashboardServiceDeps bundles collaborators required to construct the dashboard service.
type DashboardServiceDeps struct {
	Orders   repositories.OrderRepository
	Contacts repositories.ContactRepository
}

type dashboardService struct {
	orders   repositories.OrderRepository
	contacts repositories.ContactRepository
}

// NewDashboardService wires repositories into a DashboardService.
func NewDashboardService(deps DashboardServiceDeps) (DashboardService, error) {
	if deps.Orders == nil || deps.Contacts == nil {
		return nil, errors.New("dashboard service: order and contact repositories are required")
	}
	return &dashboardService{orders: deps.Orders, contacts: deps.Contacts}, nil
}

func (s *dashboardService) Stats(ctx context.Context) (domain.DashboardStats, error) {
	var stats domain.DashboardStats
	counts := []struct {
		target *int
		count  func(context.Context) (int, error)
	}{
		{&stats.TotalOrders, s.orderCount("")},
		{&stats.PendingOrders, s.orderCount(domain.OrderStatusPending)},
		{&stats.ProcessingOrders, s.orderCount(domain.OrderStatusProcessing)},
		{&stats.CompletedOrders, s.orderCount(domain.OrderStatusCompleted)},
		{&stats.CancelledOrders, s.orderCount(domain.OrderStatusCancelled)},
		{&stats.TotalContacts, s.contactCount("")},
		{&stats.NewContacts, s.contactCount(domain.ContactStatusNew)},
	}
	for _, c := range counts {
		n, err := c.count(ctx)
		if err != nil {
			return domain.DashboardStats{}, fmt.Errorf("dashboard: count: %w", err)
		}
		*c.target = n
	}

	orders, err := s.orders.Recent(ctx, dashboardRecentLimit)
	if err != nil {
		return domain.DashboardStats{}, fmt.Errorf("dashboard: recent orders: %w", err)
	}
	stats.RecentOrders = make([]domain.OrderSummary, 0, len(orders))
	for _, order := range orders {
		stats.RecentOrders = append(stats.RecentOrders, order.Summary())
	}

	contacts, err := s.contacts.Recent(ctx, dashboardRecentLimit)
	if err != nil {
		return domain.DashboardStats{}, fmt.Errorf("dashboard: recent contacts: %w", err)
	}
	stats.RecentContacts = make([]domain.ContactSummary, 0, len(contacts))
	for _, contact := range contacts {
		stats.RecentContacts = append(stats.RecentContacts, contact.Summary())
	}
	return stats, nil
}

func (s *dashboardService) orderCount(status domain.OrderStatus) func(context.Context) (int, error) {
	return func(ctx context.Context) (int, error) { return s.orders.Count(ctx, status) }
}

func (s *dashboardService) contactCount(status domain.ContactStatus) func(context.Context) (int, error) {
	return func(ctx context.Context) (int, error) { return s.contacts.Count(ctx, status) }
}
