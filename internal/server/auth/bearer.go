package auth

import (
	"strings"

	"github.com/dmitrijs2005/senas-auth/internal/common"
)

// ParseBearer extracts the credential from an Authorization header value of
// the form "Bearer <token>". The scheme is matched case-insensitively.
func ParseBearer(header string) (string, error) {
	if header == "" {
		return "", common.ErrMissingAuthorization
	}

	scheme, token, _ := strings.Cut(header, " ")
	token = strings.TrimSpace(token)
	if !strings.EqualFold(scheme, "bearer") || token == "" {
		return "", common.ErrMalformedAuthorization
	}

	return token, nil
}
