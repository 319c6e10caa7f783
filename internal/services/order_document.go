package services

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	domain "github.com/trendhome-fenster/api/internal/domain"
)

var germanPrinter = message.NewPrinter(language.German)

// FormatEuro renders an amount the way German customers read prices, e.g. "1.234,50 €".
func FormatEuro(amount float64) string {
	return germanPrinter.Sprintf("%v €", number.Decimal(amount, number.MinFractionDigits(2), number.MaxFractionDigits(2)))
}

// OrderDocumentName is the attachment and archive file name for an order.
func OrderDocumentName(orderNumber string) string {
	return "Order-" + orderNumber + ".txt"
}

// RenderOrderDocument produces the plain-text confirmation sent to customers,
// attached to staff mails and archived.
func RenderOrderDocument(order domain.Order, catalog domain.Catalog) []byte {
	var buf bytes.Buffer
	line := func(format string, args ...any) {
		fmt.Fprintf(&buf, format+"\n", args...)
	}
	name := func(kind domain.CategoryKind, id string) string {
		if item, ok := catalog.Lookup(kind, id); ok {
			return item.Name
		}
		if id == "" {
			return "-"
		}
		return id
	}

	line("ORDER CONFIRMATION")
	line("TrendHome Fenster")
	line("%s", strings.Repeat("=", 40))
	line("Order Number: %s", order.OrderNumber)
	line("Date: %s", order.CreatedAt.Format("02.01.2006"))
	line("")
	line("CUSTOMER INFORMATION")
	line("Name: %s", order.CustomerInfo.Name)
	line("Email: %s", order.CustomerInfo.Email)
	line("Phone: %s", order.CustomerInfo.Phone)
	line("Address: %s", order.CustomerInfo.Address)
	line("")

	cfg := order.Configuration
	line("CONFIGURATION DETAILS")
	line("Manufacturer: %s", name(domain.CategoryManufacturers, cfg.Manufacturer))
	line("Material: %s", name(domain.CategoryMaterials, cfg.Material))
	line("Window Type: %s", name(domain.CategoryWindowTypes, cfg.WindowType))
	line("Dimensions: %.0f x %.0f mm", cfg.Dimensions.Width, cfg.Dimensions.Height)
	line("Glass Type: %s", name(domain.CategoryGlassTypes, cfg.GlassType))
	line("Interior Color: %s", name(domain.CategoryColors, cfg.InteriorColor))
	line("Exterior Color: %s", name(domain.CategoryColors, cfg.ExteriorColor))
	if cfg.LeftOpening != "" {
		line("Left Opening: %s", name(domain.CategoryOpeningTypes, cfg.LeftOpening))
	}
	if cfg.RightOpening != "" {
		line("Right Opening: %s", name(domain.CategoryOpeningTypes, cfg.RightOpening))
	}
	line("Locking Option: %s", name(domain.CategoryLockingOptions, cfg.LockingOption))
	if cfg.RollerShutter {
		line("Roller Shutter: Yes (%s, %s)", name(domain.CategoryRollerShutterTypes, cfg.RollerShutterType), fallback(cfg.RollerShutterControl, "manual"))
	} else {
		line("Roller Shutter: No")
	}
	line("")

	if len(order.Pricing.Breakdown) > 0 {
		line("PRICE BREAKDOWN")
		for _, item := range order.Pricing.Breakdown {
			line("%s: %s", item.Item, FormatEuro(item.Price))
		}
		line("")
	}
	line("TOTAL PRICE: %s", FormatEuro(order.Pricing.TotalPrice))
	line("Estimated price (excluding VAT)")
	return buf.Bytes()
}

func fallback(value, def string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return value
}
