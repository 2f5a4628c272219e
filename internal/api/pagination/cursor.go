package pagination

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var ErrInvalidCursor = errors.New("invalid cursor")

// ExpenseCursor encodes a creation timestamp + ULID for stable expense
// ordering (newest first, ULID as tiebreaker).
type ExpenseCursor struct {
	CreatedAt time.Time
	ULID      string
}

// EncodeExpenseCursor encodes the cursor as base64(ts_unix_nano:ULID).
func EncodeExpenseCursor(createdAt time.Time, ulid string) string {
	value := fmt.Sprintf("%d:%s", createdAt.UTC().UnixNano(), strings.ToUpper(strings.TrimSpace(ulid)))
	return base64.RawURLEncoding.EncodeToString([]byte(value))
}

// DecodeExpenseCursor decodes base64(ts_unix_nano:ULID) into an ExpenseCursor.
func DecodeExpenseCursor(cursor string) (ExpenseCursor, error) {
	cursor = strings.TrimSpace(cursor)
	if cursor == "" {
		return ExpenseCursor{}, ErrInvalidCursor
	}
	decoded, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return ExpenseCursor{}, ErrInvalidCursor
	}
	parts := strings.SplitN(string(decoded), ":", 2)
	if len(parts) != 2 {
		return ExpenseCursor{}, ErrInvalidCursor
	}
	unixNano, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return ExpenseCursor{}, ErrInvalidCursor
	}
	if strings.TrimSpace(parts[1]) == "" {
		return ExpenseCursor{}, ErrInvalidCursor
	}
	return ExpenseCursor{CreatedAt: time.Unix(0, unixNano).UTC(), ULID: strings.ToUpper(strings.TrimSpace(parts[1]))}, nil
}

// EncodeSeqCursor encodes a BIGSERIAL sequence number, used by the audit
// log listing.
func EncodeSeqCursor(sequence int64) string {
	value := fmt.Sprintf("seq_%d", sequence)
	return base64.RawURLEncoding.EncodeToString([]byte(value))
}

// DecodeSeqCursor decodes base64(seq_<number>) into a sequence number.
func DecodeSeqCursor(cursor string) (int64, error) {
	cursor = strings.TrimSpace(cursor)
	if cursor == "" {
		return 0, ErrInvalidCursor
	}
	decoded, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return 0, ErrInvalidCursor
	}
	value := string(decoded)
	if !strings.HasPrefix(value, "seq_") {
		return 0, ErrInvalidCursor
	}
	seq, err := strconv.ParseInt(strings.TrimPrefix(value, "seq_"), 10, 64)
	if err != nil || seq < 0 {
		return 0, ErrInvalidCursor
	}
	return seq, nil
}
