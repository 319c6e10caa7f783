package di

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/trendhome-fenster/api/internal/platform/config"
	"github.com/trendhome-fenster/api/internal/platform/mail"
	"github.com/trendhome-fenster/api/internal/platform/observability"
	"github.com/trendhome-fenster/api/internal/repositories"
	"github.com/trendhome-fenster/api/internal/services"
)

// Services bundles the service-layer contracts that handlers rely upon.
type Services struct {
	Catalog       services.CatalogService
	Counters      services.CounterService
	Orders        services.OrderService
	Contacts      services.ContactService
	Users         services.UserService
	Dashboard     services.DashboardService
	System        services.SystemService
	Configurator  *services.Configurator
	Notifications *services.NotificationService
}

// Collaborators carries the infrastructure adapters built outside the container.
// Nil adapters disable the matching side effect.
type Collaborators struct {
	Sessions services.SessionIssuer
	Mail     mail.Sender
	Events   services.OrderEventPublisher
	Archiver services.OrderArchiver
	Meter    metric.Meter
	Logger   *zap.Logger
	Build    services.BuildInfo
}

// Container wires repositories and services for runtime use.
type Container struct {
	Config       config.Config
	Repositories repositories.Registry
	Services     Services

	dispatcher *services.Dispatcher
}

// NewContainer constructs the runtime dependencies. Tests can supply in-memory registries.
func NewContainer(ctx context.Context, cfg config.Config, reg repositories.Registry, collab Collaborators) (*Container, error) {
	if reg == nil {
		return nil, errors.New("repositories registry is required")
	}

	dispatcher := services.NewDispatcher()
	svc, err := buildServices(ctx, reg, cfg, collab, dispatcher)
	if err != nil {
		return nil, err
	}

	return &Container{
		Config:       cfg,
		Repositories: reg,
		Services:     svc,
		dispatcher:   dispatcher,
	}, nil
}

// Seed stores the default catalog and the bootstrap admin on an empty installation.
func (c *Container) Seed(ctx context.Context, logger *zap.Logger) error {
	if c == nil {
		return nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if c.Services.Catalog != nil {
		seeded, err := c.Services.Catalog.EnsureDefaults(ctx)
		if err != nil {
			return fmt.Errorf("seed catalog: %w", err)
		}
		if seeded {
			logger.Info("default catalog stored")
		}
	}
	password := strings.TrimSpace(c.Config.Auth.DefaultAdminPassword)
	if c.Services.Users == nil || password == "" {
		return nil
	}
	created, err := c.Services.Users.EnsureDefaultAdmin(ctx, services.DefaultAdmin{
		Username: c.Config.Auth.DefaultAdminUsername,
		Email:    c.Config.Auth.DefaultAdminEmail,
		Password: password,
	})
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	if created {
		logger.Info("default admin created", zap.String("username", c.Config.Auth.DefaultAdminUsername))
	}
	return nil
}

// Drain waits for order and contact side effects still running after their
// request returned. Call it before closing the clients those effects use.
func (c *Container) Drain(ctx context.Context) error {
	if c == nil || c.dispatcher == nil {
		return nil
	}
	return c.dispatcher.Wait(ctx)
}

// Close releases repository clients.
func (c *Container) Close(ctx context.Context) error {
	if c == nil || c.Repositories == nil {
		return nil
	}
	return c.Repositories.Close(ctx)
}

func buildServices(_ context.Context, reg repositories.Registry, cfg config.Config, collab Collaborators, dispatcher *services.Dispatcher) (Services, error) {
	base := collab.Logger
	if base == nil {
		base = zap.NewNop()
	}
	logFor := func(name string) func(context.Context, string, map[string]any) {
		return observability.EventLogger(base.Named(name))
	}

	svc := Services{
		Configurator: services.NewConfigurator(cfg.Configurator.MinDimension, cfg.Configurator.MaxDimension),
	}

	if collab.Mail != nil {
		notifications, err := services.NewNotificationService(services.NotificationServiceDeps{
			Sender:         collab.Mail,
			AdminRecipient: cfg.Mail.AdminRecipient,
			ShopName:       cfg.Mail.ShopName,
			ShopPhone:      cfg.Mail.ShopPhone,
			Logger:         logFor("notifications"),
		})
		if err != nil {
			return Services{}, fmt.Errorf("build notification service: %w", err)
		}
		svc.Notifications = notifications
	}

	catalogSvc, err := services.NewCatalogService(services.CatalogServiceDeps{
		Catalog: reg.Catalog(),
		Clock:   time.Now,
		Logger:  logFor("catalog"),
	})
	if err != nil {
		return Services{}, fmt.Errorf("build catalog service: %w", err)
	}
	svc.Catalog = catalogSvc

	counterSvc, err := services.NewCounterService(services.CounterServiceDeps{
		Repository: reg.Counters(),
		Clock:      time.Now,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build counter service: %w", err)
	}
	svc.Counters = counterSvc

	orderDeps := services.OrderServiceDeps{
		Orders:       reg.Orders(),
		Customers:    reg.Customers(),
		Catalog:      svc.Catalog,
		Configurator: svc.Configurator,
		Numbers:      svc.Counters,
		Events:       collab.Events,
		Archiver:     collab.Archiver,
		Meter:        collab.Meter,
		Clock:        time.Now,
		Dispatch:     dispatcher.Go,
		Logger:       logFor("orders"),
	}
	contactDeps := services.ContactServiceDeps{
		Contacts: reg.Contacts(),
		Clock:    time.Now,
		Dispatch: dispatcher.Go,
		Logger:   logFor("contacts"),
	}
	// Assigned only when present so the interfaces stay nil otherwise.
	if svc.Notifications != nil {
		orderDeps.Notifier = svc.Notifications
		contactDeps.Notifier = svc.Notifications
	}

	orderSvc, err := services.NewOrderService(orderDeps)
	if err != nil {
		return Services{}, fmt.Errorf("build order service: %w", err)
	}
	svc.Orders = orderSvc

	contactSvc, err := services.NewContactService(contactDeps)
	if err != nil {
		return Services{}, fmt.Errorf("build contact service: %w", err)
	}
	svc.Contacts = contactSvc

	if collab.Sessions != nil {
		userSvc, err := services.NewUserService(services.UserServiceDeps{
			Customers: reg.Customers(),
			Admins:    reg.Admins(),
			Sessions:  collab.Sessions,
			Clock:     time.Now,
			Logger:    logFor("accounts"),
		})
		if err != nil {
			return Services{}, fmt.Errorf("build user service: %w", err)
		}
		svc.Users = userSvc
	}

	dashboardSvc, err := services.NewDashboardService(services.DashboardServiceDeps{
		Orders:   reg.Orders(),
		Contacts: reg.Contacts(),
	})
	if err != nil {
		return Services{}, fmt.Errorf("build dashboard service: %w", err)
	}
	svc.Dashboard = dashboardSvc

	if healthRepo := reg.Health(); healthRepo != nil {
		build := collab.Build
		if build.StartedAt.IsZero() {
			build.StartedAt = time.Now().UTC()
		}
		systemSvc, err := services.NewSystemService(services.SystemServiceDeps{
			HealthRepository: healthRepo,
			Clock:            time.Now,
			Build:            build,
		})
		if err != nil {
			return Services{}, fmt.Errorf("build system service: %w", err)
		}
		svc.System = systemSvc
	}

	return svc, nil
}
