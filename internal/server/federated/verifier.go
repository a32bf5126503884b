// Package federated verifies identity tokens issued by an external provider
// (Firebase Authentication) and extracts the identity they assert.
package federated

import (
	"context"

	"github.com/dmitrijs2005/senas-auth/internal/common"
)

// Identity is what a verified federated token asserts about its subject.
// Email and DisplayName may be empty.
type Identity struct {
	ExternalID  string
	Email       string
	DisplayName string
}

// Verifier validates a federated identity token. Every failure is reported
// as common.ErrInvalidFederatedToken.
type Verifier interface {
	Verify(ctx context.Context, token string) (Identity, error)
}

// Disabled rejects every token. It stands in when no provider is configured.
type Disabled struct{}

func (Disabled) Verify(context.Context, string) (Identity, error) {
	return Identity{}, common.ErrInvalidFederatedToken
}
