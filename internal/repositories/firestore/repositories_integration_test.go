//go:build integration

package firestore

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/trendhome-fenster/api/internal/domain"
	"github.com/trendhome-fenster/api/internal/platform/config"
	pfirestore "github.com/trendhome-fenster/api/internal/platform/firestore"
	"github.com/trendhome-fenster/api/internal/repositories"
)

func newEmulatorRegistry(t *testing.T) *Registry {
	t.Helper()
	host := os.Getenv("FIRESTORE_EMULATOR_HOST")
	if host == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set; skipping emulator tests")
	}
	provider := pfirestore.NewProvider(config.FirestoreConfig{
		ProjectID:    "fenster-test-" + ulid.Make().String()[:8],
		EmulatorHost: host,
	})
	reg, err := NewRegistry(provider)
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	t.Cleanup(func() { _ = reg.Close(context.Background()) })
	return reg
}

func TestCounterNextIsUniqueUnderConcurrency(t *testing.T) {
	reg := newEmulatorRegistry(t)
	ctx := context.Background()

	const workers = 8
	seen := make(map[int64]bool)
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			value, err := reg.Counters().Next(ctx, "orders-20250303", 1)
			if err != nil {
				t.Errorf("next: %v", err)
				return
			}
			mu.Lock()
			defer mu.Unlock()
			if seen[value] {
				t.Errorf("duplicate counter value %d", value)
			}
			seen[value] = true
		}()
	}
	wg.Wait()
	if len(seen) != workers {
		t.Fatalf("expected %d values, got %d", workers, len(seen))
	}
}

func TestCatalogReplaceThenGet(t *testing.T) {
	reg := newEmulatorRegistry(t)
	ctx := context.Background()

	if _, err := reg.Catalog().Get(ctx); !repositories.IsNotFound(err) {
		t.Fatalf("expected not found before seeding, got %v", err)
	}
	updated := time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)
	catalog := domain.Catalog{
		Materials: []domain.CatalogItem{{ID: "pvc", Name: "PVC", Price: 0}},
		UpdatedAt: updated,
	}
	if err := reg.Catalog().Replace(ctx, catalog); err != nil {
		t.Fatalf("replace: %v", err)
	}
	got, err := reg.Catalog().Get(ctx)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.Materials) != 1 || !got.UpdatedAt.Equal(updated) {
		t.Fatalf("unexpected catalog %+v", got)
	}
}

func TestCustomerEmailIsUnique(t *testing.T) {
	reg := newEmulatorRegistry(t)
	ctx := context.Background()
	now := time.Now().UTC()

	first := domain.Customer{ID: ulid.Make().String(), Email: "Kunde@Example.de", Name: "Kunde", CreatedAt: now}
	if err := reg.Customers().Create(ctx, first); err != nil {
		t.Fatalf("create: %v", err)
	}
	dup := domain.Customer{ID: ulid.Make().String(), Email: "kunde@example.de", CreatedAt: now}
	if err := reg.Customers().Create(ctx, dup); !repositories.IsConflict(err) {
		t.Fatalf("expected conflict, got %v", err)
	}
	found, err := reg.Customers().FindByEmail(ctx, "KUNDE@example.de")
	if err != nil || found.ID != first.ID {
		t.Fatalf("find by email: %+v %v", found, err)
	}
}

func TestAdminUsernameIsCaseInsensitive(t *testing.T) {
	reg := newEmulatorRegistry(t)
	ctx := context.Background()
	now := time.Now().UTC()

	admin := domain.Admin{ID: ulid.Make().String(), Username: "Admin", Email: "office@example.de", PasswordHash: "hash", CreatedAt: now}
	if err := reg.Admins().Create(ctx, admin); err != nil {
		t.Fatalf("create: %v", err)
	}
	dup := domain.Admin{ID: ulid.Make().String(), Username: "admin", CreatedAt: now}
	if err := reg.Admins().Create(ctx, dup); !repositories.IsConflict(err) {
		t.Fatalf("expected conflict for differently cased username, got %v", err)
	}
	for _, name := range []string{"Admin", "admin", " ADMIN "} {
		found, err := reg.Admins().FindByUsername(ctx, name)
		if err != nil || found.ID != admin.ID {
			t.Fatalf("find %q: %+v %v", name, found, err)
		}
		if found.Username != "Admin" {
			t.Fatalf("expected stored spelling to be kept, got %q", found.Username)
		}
	}
	if _, err := reg.Admins().FindByUsername(ctx, "other"); !repositories.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestOrderListFiltersByStatus(t *testing.T) {
	reg := newEmulatorRegistry(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)

	statuses := []domain.OrderStatus{domain.OrderStatusPending, domain.OrderStatusPending, domain.OrderStatusCompleted}
	for i, status := range statuses {
		order := domain.Order{
			ID:          ulid.Make().String(),
			OrderNumber: "WIN-20250303-" + string(rune('1'+i)),
			Status:      status,
			CreatedAt:   base.Add(time.Duration(i) * time.Minute),
			UpdatedAt:   base,
		}
		if err := reg.Orders().Insert(ctx, order); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	page, err := reg.Orders().List(ctx, repositories.OrderListFilter{
		Status: domain.OrderStatusPending,
		Page:   domain.Page{Number: 1, Limit: 1},
	})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 2 || page.TotalPages != 2 || len(page.Items) != 1 {
		t.Fatalf("unexpected page %+v", page)
	}
	if page.Items[0].OrderNumber != "WIN-20250303-2" {
		t.Fatalf("expected newest first, got %s", page.Items[0].OrderNumber)
	}
}
