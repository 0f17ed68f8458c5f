package orders

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewOrderNumber generates the human-readable, unique order number assigned
// once at creation, e.g. "ESM-20260831-7F3A2C9B".
func NewOrderNumber(t time.Time) string {
	id := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return fmt.Sprintf("ESM-%s-%s", t.Format("20060102"), id[:8])
}
