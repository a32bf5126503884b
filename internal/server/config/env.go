package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/caarlos0/env/v11"
	"github.com/dmitrijs2005/senas-auth/internal/flagx"
	"github.com/joho/godotenv"
)

// parseEnv loads the dotenv file named by -env-file (".env" by default) and
// then overlays every Config field whose environment variable is set.
// A missing dotenv file is not an error; variables already present in the
// process environment win over the file.
func parseEnv(config *Config) error {
	if err := godotenv.Load(flagx.EnvFileFlag()); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load env file: %w", err)
	}
	if err := env.Parse(config); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
