package storage

import (
	"fmt"
	"strings"
	"time"
)

// OrderDocumentPath returns the object key of an archived order document:
// orders/<yyyy>/<mm>/<orderNumber>/Order-<orderNumber>.txt.
func OrderDocumentPath(orderNumber string, createdAt time.Time) (string, error) {
	number, err := validateSegment("orderNumber", orderNumber)
	if err != nil {
		return "", err
	}
	if createdAt.IsZero() {
		return "", fmt.Errorf("storage: createdAt is required")
	}
	createdAt = createdAt.UTC()
	return fmt.Sprintf("orders/%04d/%02d/%s/%s", createdAt.Year(), int(createdAt.Month()), number, OrderDocumentName(number)), nil
}

// OrderDocumentName is the file name used both for the archive object and mail attachments.
func OrderDocumentName(orderNumber string) string {
	return "Order-" + strings.TrimSpace(orderNumber) + ".txt"
}

func validateSegment(name, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", fmt.Errorf("storage: %s is required", name)
	}
	if strings.ContainsAny(value, "/\\") {
		return "", fmt.Errorf("storage: %s contains invalid path characters", name)
	}
	if strings.Contains(value, "..") {
		return "", fmt.Errorf("storage: %s contains invalid traversal sequence", name)
	}
	return value, nil
}
