// Package ids mints the request identifiers echoed in X-Request-ID, log lines and error bodies.
package ids

import (
	"strings"

	"github.com/oklog/ulid/v2"
)

// MaxClientIDLen bounds a caller supplied request id.
const MaxClientIDLen = 128

// NewRequestID returns a ULID; ids minted by one process sort in creation order.
func NewRequestID() string {
	return ulid.Make().String()
}

// RequestID keeps a caller supplied id when it is short printable ASCII and mints a new one otherwise.
func RequestID(supplied string) string {
	supplied = strings.TrimSpace(supplied)
	if supplied == "" || len(supplied) > MaxClientIDLen {
		return NewRequestID()
	}
	for i := 0; i < len(supplied); i++ {
		if c := supplied[i]; c < 0x21 || c > 0x7e {
			return NewRequestID()
		}
	}
	return supplied
}
