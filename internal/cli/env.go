package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// Environment variables read by the tools.
const (
	EnvAdminAPIKey = "ADMIN_API_KEY"
	EnvAPIURL      = "API_URL"

	DefaultAPIURL = "http://localhost:9080"
)

// ErrMissingAPIKey is returned when ADMIN_API_KEY is unset.
var ErrMissingAPIKey = errors.New("missing environment variable " + EnvAdminAPIKey)

// Env is the configuration shared by the admin tools.
type Env struct {
	APIURL      string
	AdminAPIKey string
}

// LoadEnv reads dotenv files (".env" when none are given) into the process
// environment, then builds an Env from it. Missing files are ignored and
// variables already set in the environment win.
func LoadEnv(files ...string) (*Env, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	env := &Env{
		APIURL:      os.Getenv(EnvAPIURL),
		AdminAPIKey: os.Getenv(EnvAdminAPIKey),
	}
	if env.APIURL == "" {
		env.APIURL = DefaultAPIURL
	}
	if env.AdminAPIKey == "" {
		return nil, ErrMissingAPIKey
	}
	return env, nil
}
