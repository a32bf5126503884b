// Package cryptox implements the one-way hashing used for account passwords
// and for renewal tokens stored at rest.
package cryptox

import (
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/senas-auth/internal/common"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

// Params are the argon2id cost parameters used for new digests.
type Params struct {
	Memory      uint32 // KiB
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultParams are the production cost parameters.
var DefaultParams = Params{
	Memory:      64 * 1024,
	Iterations:  1,
	Parallelism: 4,
	SaltLength:  16,
	KeyLength:   32,
}

// Hasher produces salted argon2id digests in PHC string form:
//
//	$argon2id$v=19$m=65536,t=1,p=4$<salt>$<key>
//
// Verification reads the cost parameters back from the digest, so digests
// created with older Params remain verifiable.
type Hasher struct {
	params Params
}

func NewHasher(p Params) *Hasher {
	return &Hasher{params: p}
}

// Hash returns a fresh digest of secret. Two calls with the same secret
// produce different digests.
func (h *Hasher) Hash(secret string) (string, error) {
	salt := common.GenerateRandByteArray(int(h.params.SaltLength))
	key := argon2.IDKey([]byte(secret), salt, h.params.Iterations, h.params.Memory, h.params.Parallelism, h.params.KeyLength)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, h.params.Memory, h.params.Iterations, h.params.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify reports whether secret matches digest. A malformed or empty digest
// never matches. Legacy bcrypt digests are accepted.
func (h *Hasher) Verify(secret, digest string) bool {
	switch {
	case strings.HasPrefix(digest, "$argon2id$"):
		return verifyArgon2id(secret, digest)
	case strings.HasPrefix(digest, "$2a$"), strings.HasPrefix(digest, "$2b$"), strings.HasPrefix(digest, "$2y$"):
		return bcrypt.CompareHashAndPassword([]byte(digest), []byte(secret)) == nil
	default:
		return false
	}
}

func verifyArgon2id(secret, digest string) bool {
	parts := strings.Split(digest, "$")
	if len(parts) != 6 {
		return false
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return false
	}

	var p Params
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.Memory, &p.Iterations, &p.Parallelism); err != nil {
		return false
	}
	if p.Memory == 0 || p.Iterations == 0 || p.Parallelism == 0 {
		return false
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false
	}
	want, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(want) == 0 {
		return false
	}

	got := argon2.IDKey([]byte(secret), salt, p.Iterations, p.Memory, p.Parallelism, uint32(len(want)))
	return subtle.ConstantTimeCompare(got, want) == 1
}
