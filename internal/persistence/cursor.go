// Package persistence contains helpers shared by repository implementations
// and the paginated read API.
package persistence

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/IvanSitnikov1/tracker-bot/internal/domain"
)

const cursorPrefix = "day"

// EncodeDayCursor serialises the next day of a paginated range into an opaque token.
func EncodeDayCursor(next time.Time) string {
	if next.IsZero() {
		return ""
	}
	raw := fmt.Sprintf("%s|%s", cursorPrefix, domain.Day(next).Format(domain.DayLayout))
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// DecodeDayCursor parses a token produced by EncodeDayCursor. An empty token
// yields the zero time and no error.
func DecodeDayCursor(token string) (time.Time, error) {
	if strings.TrimSpace(token) == "" {
		return time.Time{}, nil
	}
	decoded, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: malformed cursor", domain.ErrInvalidInput)
	}
	parts := strings.SplitN(string(decoded), "|", 2)
	if len(parts) != 2 || parts[0] != cursorPrefix {
		return time.Time{}, fmt.Errorf("%w: invalid cursor format", domain.ErrInvalidInput)
	}
	return domain.ParseDay(parts[1])
}
