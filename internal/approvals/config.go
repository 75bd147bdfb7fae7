package approvals

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"
)

// Config controls the moderation workflow.
type Config struct {
	// PendingTTL is how long a submission waits for a decision.
	PendingTTL string `toml:"pending_ttl"`
	// DecisionTTL is how long a decision tombstone outlives the decision.
	DecisionTTL string `toml:"decision_ttl"`
	// Approvers receive every approval request.
	Approvers []string `toml:"approvers"`
	// BaseURL is the public origin used for redirects and email links.
	BaseURL string `toml:"base_url"`
	// LinkSecret enables signed approve/deny links when set.
	LinkSecret string `toml:"link_secret"`
}

// Env maps environment variable names for approval configuration.
type Env struct {
	PendingTTL  string
	DecisionTTL string
	Approvers   string
	BaseURL     string
	LinkSecret  string
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.PendingTTL != "" {
		c.PendingTTL = overlay.PendingTTL
	}
	if overlay.DecisionTTL != "" {
		c.DecisionTTL = overlay.DecisionTTL
	}
	if len(overlay.Approvers) > 0 {
		c.Approvers = overlay.Approvers
	}
	if overlay.BaseURL != "" {
		c.BaseURL = overlay.BaseURL
	}
	if overlay.LinkSecret != "" {
		c.LinkSecret = overlay.LinkSecret
	}
}

// PendingTTLDuration returns PendingTTL as a time.Duration.
func (c *Config) PendingTTLDuration() time.Duration {
	d, _ := time.ParseDuration(c.PendingTTL)
	return d
}

// DecisionTTLDuration returns DecisionTTL as a time.Duration.
func (c *Config) DecisionTTLDuration() time.Duration {
	d, _ := time.ParseDuration(c.DecisionTTL)
	return d
}

func (c *Config) loadDefaults() {
	if c.PendingTTL == "" {
		c.PendingTTL = "720h"
	}
	if c.DecisionTTL == "" {
		c.DecisionTTL = "72h"
	}
	if c.BaseURL == "" {
		c.BaseURL = "http://localhost:8080"
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.PendingTTL != "" {
		if v := os.Getenv(env.PendingTTL); v != "" {
			c.PendingTTL = v
		}
	}
	if env.DecisionTTL != "" {
		if v := os.Getenv(env.DecisionTTL); v != "" {
			c.DecisionTTL = v
		}
	}
	if env.Approvers != "" {
		if v := os.Getenv(env.Approvers); v != "" {
			c.Approvers = splitList(v)
		}
	}
	if env.BaseURL != "" {
		if v := os.Getenv(env.BaseURL); v != "" {
			c.BaseURL = v
		}
	}
	if env.LinkSecret != "" {
		if v := os.Getenv(env.LinkSecret); v != "" {
			c.LinkSecret = v
		}
	}
}

func (c *Config) validate() error {
	for name, v := range map[string]string{"pending_ttl": c.PendingTTL, "decision_ttl": c.DecisionTTL} {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
		if d <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}

	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("base_url must be an absolute URL: %q", c.BaseURL)
	}
	c.BaseURL = strings.TrimSuffix(c.BaseURL, "/")

	for _, a := range c.Approvers {
		if !strings.Contains(a, "@") {
			return fmt.Errorf("invalid approver address %q", a)
		}
	}
	return nil
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
