// Package config holds the options of a star count run and loads the
// environment (and an optional .env file) they are completed from.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/naka-gawa/github-stars/internal/domain"
)

// Default values of the core options.
const (
	DefaultPageSize           = 100
	DefaultRepoLimit          = 10
	DefaultStargazerThreshold = 1
)

// Credentials authenticate requests with HTTP basic auth.
type Credentials struct {
	Username string
	Password string
}

// Options are the knobs of one run.
type Options struct {
	IncludeOrganizations bool
	PageSize             int
	RepoLimit            int
	StargazerThreshold   int
	Credentials          *Credentials
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		IncludeOrganizations: true,
		PageSize:             DefaultPageSize,
		RepoLimit:            DefaultRepoLimit,
		StargazerThreshold:   DefaultStargazerThreshold,
	}
}

// Validate rejects options no run can succeed with.
func (o Options) Validate() error {
	if o.PageSize <= 0 {
		return fmt.Errorf("%w: page size must be greater than 0, got %d", domain.ErrInvalidConfiguration, o.PageSize)
	}
	if o.RepoLimit < 0 {
		return fmt.Errorf("%w: repo limit must not be negative, got %d", domain.ErrInvalidConfiguration, o.RepoLimit)
	}
	if o.StargazerThreshold < 0 {
		return fmt.Errorf("%w: stargazer threshold must not be negative, got %d", domain.ErrInvalidConfiguration, o.StargazerThreshold)
	}
	return nil
}

// Environment is the configuration read from environment variables.
type Environment struct {
	Token           string
	APIURL          string
	RequestUsername string
	RequestPassword string
	LogLevel        string
}

// Load reads the given env files into the process environment, then returns
// the variables the application uses. Without files, a .env in the working
// directory is loaded if it exists.
func Load(files ...string) (Environment, error) {
	if len(files) == 0 {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Environment{}, fmt.Errorf("failed to load .env: %w", err)
		}
	} else if err := godotenv.Load(files...); err != nil {
		return Environment{}, fmt.Errorf("failed to load env file: %w", err)
	}

	return Environment{
		Token:           getEnv("GITHUB_TOKEN", ""),
		APIURL:          getEnv("GITHUB_API_URL", ""),
		RequestUsername: getEnv("GITHUB_REQUEST_USERNAME", ""),
		RequestPassword: getEnv("GITHUB_REQUEST_PASSWORD", ""),
		LogLevel:        strings.ToLower(getEnv("STARS_LOG_LEVEL", "")),
	}, nil
}

// ResolveCredentials builds basic auth credentials. A password without a
// username authenticates as the queried user. No password and no username
// means anonymous requests.
func ResolveCredentials(username, password, queried string) *Credentials {
	switch {
	case username == "" && password == "":
		return nil
	case username == "":
		return &Credentials{Username: queried, Password: password}
	default:
		return &Credentials{Username: username, Password: password}
	}
}

// getEnv returns env[key] if set, otherwise defaultValue.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
