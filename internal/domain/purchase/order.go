package purchase

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// GenerateOrderNumber returns ORD-{unix millis}-{4 upper hex}. Uniqueness is
// enforced by the purchases.order_id constraint, not here.
func GenerateOrderNumber() string {
	r := uuid.New()
	return fmt.Sprintf("ORD-%d-%02X%02X", time.Now().UnixMilli(), r[0], r[1])
}
