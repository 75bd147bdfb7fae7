package storage

import (
	"fmt"
	"os"
	"strconv"
)

// Supported storage providers.
const (
	ProviderS3     = "s3"
	ProviderAzure  = "azure"
	ProviderMemory = "memory"
)

// Config holds object storage connection parameters for every supported provider.
// Bucket names the S3 bucket or Azure container.
type Config struct {
	Provider         string `toml:"provider"`
	Bucket           string `toml:"bucket"`
	Endpoint         string `toml:"endpoint"`
	Region           string `toml:"region"`
	AccessKey        string `toml:"access_key"`
	SecretKey        string `toml:"secret_key"`
	PathStyle        bool   `toml:"path_style"`
	ConnectionString string `toml:"connection_string"`
	AccountURL       string `toml:"account_url"`
	MaxListSize      int32  `toml:"max_list_size"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Provider         string
	Bucket           string
	Endpoint         string
	Region           string
	AccessKey        string
	SecretKey        string
	PathStyle        string
	ConnectionString string
	AccountURL       string
	MaxListSize      string
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
	if overlay.Provider != "" {
		c.Provider = overlay.Provider
	}
	if overlay.Bucket != "" {
		c.Bucket = overlay.Bucket
	}
	if overlay.Endpoint != "" {
		c.Endpoint = overlay.Endpoint
	}
	if overlay.Region != "" {
		c.Region = overlay.Region
	}
	if overlay.AccessKey != "" {
		c.AccessKey = overlay.AccessKey
	}
	if overlay.SecretKey != "" {
		c.SecretKey = overlay.SecretKey
	}
	if overlay.PathStyle {
		c.PathStyle = true
	}
	if overlay.ConnectionString != "" {
		c.ConnectionString = overlay.ConnectionString
	}
	if overlay.AccountURL != "" {
		c.AccountURL = overlay.AccountURL
	}
	if overlay.MaxListSize != 0 {
		c.MaxListSize = overlay.MaxListSize
	}
}

func (c *Config) loadDefaults() {
	if c.Provider == "" {
		c.Provider = ProviderS3
	}
	if c.Bucket == "" {
		c.Bucket = "casse"
	}
	if c.Region == "" {
		c.Region = "auto"
	}
	if c.MaxListSize == 0 {
		c.MaxListSize = 1000
	}
}

func (c *Config) loadEnv(env *Env) {
	setString := func(name string, target *string) {
		if name == "" {
			return
		}
		if v := os.Getenv(name); v != "" {
			*target = v
		}
	}

	setString(env.Provider, &c.Provider)
	setString(env.Bucket, &c.Bucket)
	setString(env.Endpoint, &c.Endpoint)
	setString(env.Region, &c.Region)
	setString(env.AccessKey, &c.AccessKey)
	setString(env.SecretKey, &c.SecretKey)
	setString(env.ConnectionString, &c.ConnectionString)
	setString(env.AccountURL, &c.AccountURL)

	if env.PathStyle != "" {
		if v := os.Getenv(env.PathStyle); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				c.PathStyle = b
			}
		}
	}
	if env.MaxListSize != "" {
		if v := os.Getenv(env.MaxListSize); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				c.MaxListSize = int32(n)
			}
		}
	}
}

func (c *Config) validate() error {
	if c.Bucket == "" {
		return fmt.Errorf("bucket required")
	}

	switch c.Provider {
	case ProviderS3:
		if c.Endpoint == "" {
			return fmt.Errorf("endpoint required for s3 provider")
		}
		if c.AccessKey == "" || c.SecretKey == "" {
			return fmt.Errorf("access_key and secret_key required for s3 provider")
		}
	case ProviderAzure:
		if c.ConnectionString == "" && c.AccountURL == "" {
			return fmt.Errorf("connection_string or account_url required for azure provider")
		}
	case ProviderMemory:
	default:
		return fmt.Errorf("unknown provider %q", c.Provider)
	}

	return nil
}
