// Package attachments validates attachment references. The bytes live in
// object storage elsewhere; messages carry only the opaque reference.
package attachments

import (
	"net/url"

	"chatcord-backend/internal/apperrors"
)

const maxRefLength = 512

// ValidateRef accepts an empty reference (no attachment) or an http(s)/cdn
// URL short enough to store inline with the message row.
func ValidateRef(ref string) error {
	if ref == "" {
		return nil
	}
	if len(ref) > maxRefLength {
		return apperrors.InvalidInput("attachment reference too long")
	}

	parsed, err := url.Parse(ref)
	if err != nil {
		return apperrors.InvalidInput("malformed attachment reference")
	}

	switch parsed.Scheme {
	case "http", "https", "cdn":
		return nil
	}
	return apperrors.InvalidInput("unsupported attachment reference scheme")
}
