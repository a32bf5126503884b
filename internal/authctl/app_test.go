package authctl

import (
	"bytes"
	"encoding/hex"
	"errors"
	"strings"
	"testing"

	"github.com/dmitrijs2005/senas-auth/internal/cryptox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testParams = cryptox.Params{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

func stubPasswords(t *testing.T, answers ...string) {
	t.Helper()
	old := readPassword
	t.Cleanup(func() { readPassword = old })

	i := 0
	readPassword = func(int) ([]byte, error) {
		if i >= len(answers) {
			return nil, errors.New("no more input")
		}
		pw := []byte(answers[i])
		i++
		return pw, nil
	}
}

func newTestApp() (*App, *bytes.Buffer, *bytes.Buffer) {
	var out, prompt bytes.Buffer
	return NewApp(&out, &prompt, testParams), &out, &prompt
}

func TestRun_Hash(t *testing.T) {
	stubPasswords(t, "s3cret", "s3cret")
	app, out, prompt := newTestApp()

	require.NoError(t, app.Run([]string{"hash"}))

	digest := strings.TrimSpace(out.String())
	assert.True(t, strings.HasPrefix(digest, "$argon2id$"))
	assert.True(t, cryptox.NewHasher(testParams).Verify("s3cret", digest))
	assert.Contains(t, prompt.String(), "Enter password: ")
	assert.Contains(t, prompt.String(), "Repeat password: ")
}

func TestRun_HashMismatch(t *testing.T) {
	stubPasswords(t, "one", "two")
	app, out, _ := newTestApp()

	err := app.Run([]string{"hash"})
	require.ErrorIs(t, err, ErrPasswordMismatch)
	assert.Empty(t, out.String())
}

func TestRun_HashEmpty(t *testing.T) {
	stubPasswords(t, "")
	app, _, _ := newTestApp()

	require.ErrorIs(t, app.Run([]string{"hash"}), ErrEmptyPassword)
}

func TestRun_HashReadError(t *testing.T) {
	stubPasswords(t)
	app, _, _ := newTestApp()

	require.Error(t, app.Run([]string{"hash"}))
}

func TestRun_Keygen(t *testing.T) {
	app, out, _ := newTestApp()

	require.NoError(t, app.Run([]string{"keygen"}))

	key := strings.TrimSpace(out.String())
	assert.Len(t, key, secretKeyBytes*2)
	_, err := hex.DecodeString(key)
	assert.NoError(t, err)
}

func TestRun_Usage(t *testing.T) {
	app, out, _ := newTestApp()

	require.ErrorIs(t, app.Run(nil), ErrUsage)
	require.ErrorIs(t, app.Run([]string{"frobnicate"}), ErrUsage)

	require.NoError(t, app.Run([]string{"help"}))
	assert.Contains(t, out.String(), "hash")
}

func TestGetPassword_Error(t *testing.T) {
	old := readPassword
	defer func() { readPassword = old }()
	readPassword = func(int) ([]byte, error) {
		return nil, errors.New("boom")
	}
	var out bytes.Buffer
	_, err := GetPassword(&out, "Enter password: ")
	require.Error(t, err)
	assert.Equal(t, "Enter password: \n", out.String())
}
