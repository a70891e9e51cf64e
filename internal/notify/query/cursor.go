// internal/notify/query/cursor.go
package query

import (
	"encoding/base64"
	"encoding/json"

	"journal-notifier/internal/common/errors"
	"journal-notifier/internal/notify/store"
)

// EncodeCursor serializes a keyset position for the client to echo back on the
// next page request.
func EncodeCursor(c store.FeedCursor) string {
	raw, _ := json.Marshal(c)
	return base64.RawURLEncoding.EncodeToString(raw)
}

// DecodeCursor parses a client-supplied cursor. An empty string means "start
// from the top" and yields a nil cursor.
func DecodeCursor(s string) (*store.FeedCursor, error) {
	if s == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, errors.NewInvalidCursorError(err.Error())
	}
	var c store.FeedCursor
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, errors.NewInvalidCursorError(err.Error())
	}
	if c.ID == "" || c.CreatedAt.IsZero() {
		return nil, errors.NewInvalidCursorError("cursor is missing position fields")
	}
	return &c, nil
}
