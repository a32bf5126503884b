package federated

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/senas-auth/internal/logging"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCertCache(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	c := NewMemoryCertCache()
	c.now = func() time.Time { return now }

	_, ok := c.Get(ctx)
	assert.False(t, ok, "empty cache must miss")

	c.Set(ctx, map[string]string{"k": "pem"}, time.Minute)
	got, ok := c.Get(ctx)
	require.True(t, ok)
	assert.Equal(t, "pem", got["k"])

	now = now.Add(time.Minute)
	_, ok = c.Get(ctx)
	assert.False(t, ok, "entry must expire")
}

type fakeRedis struct {
	data    map[string]string
	ttl     time.Duration
	getErr  error
	setErr  error
	setKeys []string
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	if f.getErr != nil {
		return redis.NewStringResult("", f.getErr)
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	f.setKeys = append(f.setKeys, key)
	if f.setErr != nil {
		return redis.NewStatusResult("", f.setErr)
	}
	if f.data == nil {
		f.data = map[string]string{}
	}
	f.data[key] = string(value.([]byte))
	f.ttl = expiration
	return redis.NewStatusResult("OK", nil)
}

func TestRedisCertCache_RoundTrip(t *testing.T) {
	ctx := context.Background()
	kv := &fakeRedis{}
	c := NewRedisCertCache(kv, "", logging.Nop{})

	_, ok := c.Get(ctx)
	assert.False(t, ok)

	c.Set(ctx, map[string]string{"kid": "pem"}, 10*time.Minute)
	assert.Equal(t, []string{DefaultRedisCertKey}, kv.setKeys)
	assert.Equal(t, 10*time.Minute, kv.ttl)

	got, ok := c.Get(ctx)
	require.True(t, ok)
	assert.Equal(t, map[string]string{"kid": "pem"}, got)
}

func TestRedisCertCache_FailuresAreMisses(t *testing.T) {
	ctx := context.Background()

	c := NewRedisCertCache(&fakeRedis{getErr: errors.New("connection refused")}, "k", logging.Nop{})
	_, ok := c.Get(ctx)
	assert.False(t, ok)

	c = NewRedisCertCache(&fakeRedis{data: map[string]string{"k": "not json"}}, "k", logging.Nop{})
	_, ok = c.Get(ctx)
	assert.False(t, ok)

	kv := &fakeRedis{setErr: errors.New("read only")}
	c = NewRedisCertCache(kv, "k", logging.Nop{})
	c.Set(ctx, map[string]string{"kid": "pem"}, time.Minute)
	assert.Equal(t, []string{"k"}, kv.setKeys)
}

func TestFirebaseVerifier_UsesSharedCache(t *testing.T) {
	cs := newCertServer(t)
	kv := &fakeRedis{}
	cache := NewRedisCertCache(kv, "", logging.Nop{})

	v := NewFirebaseVerifier(FirebaseConfig{ProjectID: testProject, CertsURL: cs.srv.URL, Timeout: time.Second}, cache, logging.Nop{})
	_, err := v.Verify(context.Background(), cs.sign(t, validClaims(), testKid))
	require.NoError(t, err)
	assert.Equal(t, time.Hour, kv.ttl)

	// A second replica sharing the store never reaches the endpoint.
	other := NewFirebaseVerifier(FirebaseConfig{ProjectID: testProject, CertsURL: cs.srv.URL, Timeout: time.Second}, NewRedisCertCache(kv, "", logging.Nop{}), logging.Nop{})
	_, err = other.Verify(context.Background(), cs.sign(t, validClaims(), testKid))
	require.NoError(t, err)
	assert.Equal(t, int32(1), cs.hits.Load())
}
