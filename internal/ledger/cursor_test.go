package ledger

import (
	"encoding/base64"
	"testing"

	"chatcord-backend/internal/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorRoundTrip(t *testing.T) {
	for _, seq := range []int64{1, 42, 1 << 40} {
		decoded, err := decodeCursor(encodeCursor(seq))
		require.NoError(t, err)
		assert.Equal(t, seq, decoded)
	}
}

func TestDecodeCursorRejectsGarbage(t *testing.T) {
	cases := []string{
		"not base64",
		base64.URLEncoding.EncodeToString([]byte("abc")),
		base64.URLEncoding.EncodeToString([]byte("0")),
		base64.URLEncoding.EncodeToString([]byte("-5")),
		base64.URLEncoding.EncodeToString([]byte("")),
	}

	for _, cursor := range cases {
		_, err := decodeCursor(cursor)
		assert.Equal(t, apperrors.CodeInvalidInput, apperrors.CodeOf(err), "cursor %q", cursor)
	}
}
