package ledger

import (
	"encoding/base64"
	"strconv"

	"chatcord-backend/internal/apperrors"
)

// The page cursor is the last-seen sequence position, base64-wrapped so
// clients treat it as opaque. Being a position rather than an offset keeps
// pages stable while new messages keep arriving.

func encodeCursor(seq int64) string {
	return base64.URLEncoding.EncodeToString([]byte(strconv.FormatInt(seq, 10)))
}

func decodeCursor(cursor string) (int64, error) {
	raw, err := base64.URLEncoding.DecodeString(cursor)
	if err != nil {
		return 0, apperrors.InvalidInput("malformed cursor")
	}

	seq, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil || seq < 1 {
		return 0, apperrors.InvalidInput("malformed cursor")
	}

	return seq, nil
}
