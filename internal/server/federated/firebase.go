package federated

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/senas-auth/internal/common"
	"github.com/dmitrijs2005/senas-auth/internal/logging"
	"github.com/golang-jwt/jwt/v5"
)

const (
	issuerPrefix   = "https://securetoken.google.com/"
	maxSubjectLen  = 128
	defaultCertTTL = 5 * time.Minute
	maxCertsBody   = 1 << 20

	// minRefetchInterval throttles refetches forced by an unknown key id.
	minRefetchInterval = time.Minute
)

// FirebaseConfig describes which Firebase project's ID tokens are accepted.
type FirebaseConfig struct {
	ProjectID string
	CertsURL  string
	Timeout   time.Duration
}

// FirebaseVerifier validates Firebase ID tokens against Google's published
// x509 signing certificates.
type FirebaseVerifier struct {
	projectID string
	certsURL  string
	timeout   time.Duration
	client    *http.Client
	cache     CertCache
	logger    logging.Logger
	now       func() time.Time

	mu          sync.Mutex
	lastRefetch time.Time
}

type firebaseClaims struct {
	jwt.RegisteredClaims
	AuthTime *jwt.NumericDate `json:"auth_time,omitempty"`
	Email    string           `json:"email,omitempty"`
	Name     string           `json:"name,omitempty"`
}

// NewFirebaseVerifier returns a Verifier for cfg.ProjectID, or Disabled when
// no project is configured. A nil cache means an in-process cache.
func NewFirebaseVerifier(cfg FirebaseConfig, cache CertCache, logger logging.Logger) Verifier {
	if cfg.ProjectID == "" {
		return Disabled{}
	}
	if cache == nil {
		cache = NewMemoryCertCache()
	}
	return &FirebaseVerifier{
		projectID: cfg.ProjectID,
		certsURL:  cfg.CertsURL,
		timeout:   cfg.Timeout,
		client:    &http.Client{Timeout: cfg.Timeout},
		cache:     cache,
		logger:    logger.With("module", "firebase"),
		now:       time.Now,
	}
}

func (v *FirebaseVerifier) Verify(ctx context.Context, token string) (Identity, error) {
	if token == "" {
		return Identity{}, common.ErrInvalidFederatedToken
	}

	if v.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, v.timeout)
		defer cancel()
	}

	certs, fresh, err := v.certificates(ctx)
	if err != nil {
		v.logger.Warn(ctx, "signing certificates unavailable", "error", err)
		return Identity{}, common.ErrInvalidFederatedToken
	}

	claims := &firebaseClaims{}
	_, err = jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		pemCert, found := certs[kid]
		if !found && !fresh {
			// Google may have rotated keys before the cached set expired.
			if refetched, ok := v.refetchCertificates(ctx); ok {
				pemCert, found = refetched[kid]
			}
		}
		if !found {
			return nil, fmt.Errorf("unknown key id %q", kid)
		}
		return jwt.ParseRSAPublicKeyFromPEM([]byte(pemCert))
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithAudience(v.projectID),
		jwt.WithIssuer(issuerPrefix+v.projectID),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		v.logger.Debug(ctx, "federated token rejected", "error", err)
		return Identity{}, common.ErrInvalidFederatedToken
	}

	if claims.Subject == "" || len(claims.Subject) > maxSubjectLen {
		return Identity{}, common.ErrInvalidFederatedToken
	}
	if claims.AuthTime == nil || claims.AuthTime.After(v.now()) {
		v.logger.Debug(ctx, "federated token rejected", "error", "auth_time missing or in the future")
		return Identity{}, common.ErrInvalidFederatedToken
	}

	return Identity{
		ExternalID:  claims.Subject,
		Email:       claims.Email,
		DisplayName: claims.Name,
	}, nil
}

// certificates returns the signing certificates and whether they were
// fetched by this call.
func (v *FirebaseVerifier) certificates(ctx context.Context) (map[string]string, bool, error) {
	if certs, ok := v.cache.Get(ctx); ok {
		return certs, false, nil
	}

	certs, err := v.loadCertificates(ctx)
	if err != nil {
		return nil, false, err
	}
	return certs, true, nil
}

// refetchCertificates bypasses the cache at most once per minRefetchInterval.
func (v *FirebaseVerifier) refetchCertificates(ctx context.Context) (map[string]string, bool) {
	v.mu.Lock()
	now := v.now()
	if !v.lastRefetch.IsZero() && now.Sub(v.lastRefetch) < minRefetchInterval {
		v.mu.Unlock()
		return nil, false
	}
	v.lastRefetch = now
	v.mu.Unlock()

	certs, err := v.loadCertificates(ctx)
	if err != nil {
		v.logger.Warn(ctx, "refetch signing certificates", "error", err)
		return nil, false
	}
	return certs, true
}

func (v *FirebaseVerifier) loadCertificates(ctx context.Context) (map[string]string, error) {
	certs, ttl, err := v.fetchCertificates(ctx)
	if err != nil {
		return nil, err
	}
	v.cache.Set(ctx, certs, ttl)
	return certs, nil
}

func (v *FirebaseVerifier) fetchCertificates(ctx context.Context) (map[string]string, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.certsURL, nil)
	if err != nil {
		return nil, 0, err
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("fetch certs: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, 0, fmt.Errorf("fetch certs: unexpected status %d", resp.StatusCode)
	}

	var certs map[string]string
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxCertsBody)).Decode(&certs); err != nil {
		return nil, 0, fmt.Errorf("decode certs: %w", err)
	}
	if len(certs) == 0 {
		return nil, 0, errors.New("decode certs: empty certificate set")
	}

	return certs, maxAge(resp.Header.Get("Cache-Control")), nil
}

// maxAge extracts the max-age directive from a Cache-Control header value.
func maxAge(header string) time.Duration {
	for _, directive := range strings.Split(header, ",") {
		name, value, ok := strings.Cut(strings.TrimSpace(directive), "=")
		if !ok || !strings.EqualFold(name, "max-age") {
			continue
		}
		seconds, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil || seconds <= 0 {
			break
		}
		return time.Duration(seconds) * time.Second
	}
	return defaultCertTTL
}
