package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	domain "github.com/trendhome-fenster/api/internal/domain"
)

type failingContactRepo struct {
	*memoryContactRepo
}

func (failingContactRepo) Count(context.Context, domain.ContactStatus) (int, error) {
	return 0, errors.New("deadline exceeded")
}

func TestDashboardServiceStats(t *testing.T) {
	orders := newMemoryOrderRepo()
	contacts := newMemoryContactRepo()
	base := time.Date(2025, time.August, 1, 8, 0, 0, 0, time.UTC)
	statuses := []domain.OrderStatus{
		domain.OrderStatusPending, domain.OrderStatusPending, domain.OrderStatusProcessing,
		domain.OrderStatusCompleted, domain.OrderStatusCancelled, domain.OrderStatusPending, domain.OrderStatusPending,
	}
	for i, status := range statuses {
		_ = orders.Insert(context.Background(), domain.Order{
			ID:          fmt.Sprintf("o%d", i),
			OrderNumber: fmt.Sprintf("WIN-20250801-%04d", i+1),
			Status:      status,
			Pricing:     domain.Pricing{TotalPrice: 100},
			CreatedAt:   base.Add(time.Duration(i) * time.Hour),
		})
	}
	_ = contacts.Insert(context.Background(), domain.Contact{ID: "c1", Status: domain.ContactStatusNew, CreatedAt: base})
	_ = contacts.Insert(context.Background(), domain.Contact{ID: "c2", Status: domain.ContactStatusClosed, CreatedAt: base.Add(time.Hour)})

	svc, err := NewDashboardService(DashboardServiceDeps{Orders: orders, Contacts: contacts})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	stats, err := svc.Stats(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if stats.TotalOrders != 7 || stats.PendingOrders != 4 || stats.ProcessingOrders != 1 || stats.CompletedOrders != 1 || stats.CancelledOrders != 1 {
		t.Fatalf("unexpected order counts: %+v", stats)
	}
	if stats.TotalContacts != 2 || stats.NewContacts != 1 {
		t.Fatalf("unexpected contact counts: %+v", stats)
	}
	if len(stats.RecentOrders) != 5 || stats.RecentOrders[0].ID != "o6" {
		t.Fatalf("expected the five newest orders, got %+v", stats.RecentOrders)
	}
	if len(stats.RecentContacts) != 2 || stats.RecentContacts[0].ID != "c2" {
		t.Fatalf("unexpected recent contacts: %+v", stats.RecentContacts)
	}
}

func TestDashboardServiceStatsPropagatesErrors(t *testing.T) {
	svc, _ := NewDashboardService(DashboardServiceDeps{
		Orders:   newMemoryOrderRepo(),
		Contacts: failingContactRepo{newMemoryContactRepo()},
	})
	if _, err := svc.Stats(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
}
