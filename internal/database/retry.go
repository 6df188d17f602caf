package database

import (
	"time"

	"chatcord-backend/internal/apperrors"
)

const readRetryBackoff = 100 * time.Millisecond

// RetryRead runs an idempotent read, retrying once after a short backoff if
// the first attempt timed out. Writes must never go through here.
func RetryRead(fn func() error) error {
	err := fn()
	if err != nil && apperrors.Is(err, apperrors.CodeTimeout) {
		time.Sleep(readRetryBackoff)
		err = fn()
	}
	return err
}
