// Package authctl implements the operator command line for senas-auth:
// producing password digests for seeded accounts and signing secrets.
package authctl

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/dmitrijs2005/senas-auth/internal/common"
	"github.com/dmitrijs2005/senas-auth/internal/cryptox"
)

// secretKeyBytes is the entropy of a generated signing secret.
const secretKeyBytes = 32

var (
	ErrUsage            = errors.New("usage: authctl <hash|keygen|help>")
	ErrEmptyPassword    = errors.New("password must not be empty")
	ErrPasswordMismatch = errors.New("passwords do not match")
)

// App runs a single authctl command. Prompts go to Prompt, results to Out.
type App struct {
	Out    io.Writer
	Prompt io.Writer
	hasher *cryptox.Hasher
}

func NewApp(out, prompt io.Writer, params cryptox.Params) *App {
	return &App{Out: out, Prompt: prompt, hasher: cryptox.NewHasher(params)}
}

// Run dispatches args[0] to its command.
func (a *App) Run(args []string) error {
	if len(args) == 0 {
		return ErrUsage
	}

	switch args[0] {
	case "hash":
		return a.hash()
	case "keygen":
		return a.keygen()
	case "help", "-h", "--help":
		_, err := fmt.Fprintln(a.Out, "Available commands: hash, keygen")
		return err
	default:
		return fmt.Errorf("unknown command %q: %w", args[0], ErrUsage)
	}
}

func (a *App) hash() error {
	pw, err := GetPassword(a.Prompt, "Enter password: ")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(pw)

	if len(pw) == 0 {
		return ErrEmptyPassword
	}

	confirm, err := GetPassword(a.Prompt, "Repeat password: ")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(confirm)

	if !bytes.Equal(pw, confirm) {
		return ErrPasswordMismatch
	}

	digest, err := a.hasher.Hash(string(pw))
	if err != nil {
		return fmt.Errorf("hash: %w", err)
	}

	_, err = fmt.Fprintln(a.Out, digest)
	return err
}

func (a *App) keygen() error {
	key, err := common.MakeRandHexString(secretKeyBytes)
	if err != nil {
		return fmt.Errorf("keygen: %w", err)
	}
	_, err = fmt.Fprintln(a.Out, key)
	return err
}
