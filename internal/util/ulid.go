package util

import (
	"github.com/oklog/ulid/v2"
)

// NewID generates a new ULID string, used for campaign and notification ids.
// ulid.Make is monotonic within the process, so ids sort by creation order.
func NewID() string {
	return ulid.Make().String()
}
