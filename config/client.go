package config

import (
	"strings"
	"time"
)

// ClientConfig configures the front-end auth flows and backend profile sync.
type ClientConfig struct {
	// BackendBaseURL is where POST /users is sent.
	BackendBaseURL string `env:"BACKEND_BASE_URL" envDefault:"http://localhost:8080"`

	// BackendRequestTimeout bounds each profile sync call. Zero disables the timeout.
	BackendRequestTimeout time.Duration `env:"BACKEND_REQUEST_TIMEOUT" envDefault:"0s"`

	// HomePath is the landing route after sign-in and registration.
	HomePath string `env:"APP_HOME_PATH" envDefault:"/"`

	// RepairProfileOnLogin re-syncs the backend profile after each password login.
	RepairProfileOnLogin bool `env:"AUTH_REPAIR_PROFILE_ON_LOGIN" envDefault:"true"`
}

// Sanitize applies guardrails to client configuration values.
func (c *ClientConfig) Sanitize() {
	c.BackendBaseURL = strings.TrimRight(strings.TrimSpace(c.BackendBaseURL), "/")
	if c.BackendRequestTimeout < 0 {
		c.BackendRequestTimeout = 0
	}
	if c.HomePath = strings.TrimSpace(c.HomePath); c.HomePath == "" {
		c.HomePath = "/"
	}
}
