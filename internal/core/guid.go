package core

import (
	"crypto/rand"
	"fmt"
	"strings"

	"github.com/bizportal/portalchat/internal/types"
	"github.com/google/uuid"
)

const (
	guidAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	guidLength   = 8
)

// GenerateGUID creates a short server-side GUID with the provided prefix.
func GenerateGUID(prefix string) (string, error) {
	normalized := strings.TrimSuffix(prefix, "-")

	buf := make([]byte, guidLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate guid: %w", err)
	}

	id := make([]byte, guidLength)
	for i := 0; i < guidLength; i++ {
		id[i] = guidAlphabet[int(buf[i])%len(guidAlphabet)]
	}

	return fmt.Sprintf("%s-%s", normalized, string(id)), nil
}

// NewOptimisticID returns a temporary message id that can never collide with
// a server-issued one.
func NewOptimisticID() string {
	return types.OptimisticPrefix + uuid.NewString()
}

// NewClientID returns a correlation id attached to an outgoing send.
func NewClientID() string {
	return uuid.NewString()
}

// IsOptimisticID reports whether id was generated locally.
func IsOptimisticID(id string) bool {
	return strings.HasPrefix(id, types.OptimisticPrefix)
}

// ShortID returns the display prefix of a GUID, dropping its type prefix.
func ShortID(guid string, length int) string {
	base := guid
	if i := strings.IndexByte(base, '-'); i >= 0 && i < len(base)-1 {
		base = base[i+1:]
	}
	if length <= 0 {
		return ""
	}
	if length > len(base) {
		length = len(base)
	}
	return base[:length]
}
