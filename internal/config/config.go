package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Assessment struct {
		MaxPerDomain int    `yaml:"max_per_domain"`
		ProgressTTL  string `yaml:"progress_ttl"`
	} `yaml:"assessment"`
	Security struct {
		JWTSecret    string `yaml:"jwt_secret"`
		AES256KeyB64 string `yaml:"aes256_key_b64"`
		TokenTTL     string `yaml:"token_ttl"`
	} `yaml:"security"`
	Classifier struct {
		URL      string `yaml:"url"`
		Timeout  string `yaml:"timeout"`
		CacheTTL string `yaml:"cache_ttl"`
	} `yaml:"classifier"`
	CORS struct {
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"cors"`
	Metrics struct {
		Namespace string `yaml:"namespace"`
	} `yaml:"metrics"`
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot start with.
func (c Config) Validate() error {
	if c.Security.JWTSecret == "" {
		return fmt.Errorf("security.jwt_secret is required")
	}
	if c.Assessment.MaxPerDomain < 0 {
		return fmt.Errorf("assessment.max_per_domain must not be negative, got %d", c.Assessment.MaxPerDomain)
	}
	if key := c.Security.AES256KeyB64; key != "" {
		raw, err := base64.URLEncoding.DecodeString(key)
		if err != nil {
			raw, err = base64.StdEncoding.DecodeString(key)
		}
		if err != nil {
			return fmt.Errorf("security.aes256_key_b64: %w", err)
		}
		if len(raw) != 32 {
			return fmt.Errorf("security.aes256_key_b64 must decode to 32 bytes, got %d", len(raw))
		}
	}
	for _, raw := range []string{c.Assessment.ProgressTTL, c.Security.TokenTTL, c.Classifier.Timeout, c.Classifier.CacheTTL} {
		if raw == "" {
			continue
		}
		if _, err := time.ParseDuration(raw); err != nil {
			return fmt.Errorf("invalid duration %q: %w", raw, err)
		}
	}
	return nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
