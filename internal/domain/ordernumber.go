package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

const orderNumberPrefix = "ORD-"

// NewOrderNumber returns ORD-<UTC yyyymmddhhmmss>-<8 hex chars>. The random
// suffix keeps numbers generated within the same second distinct; the
// database UNIQUE constraint catches the rest.
func NewOrderNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return orderNumberPrefix + now.UTC().Format("20060102150405") + "-" + suffix
}
