package config

import (
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
)

// AppConfig is the root configuration container loaded by go-config from
// config files and SQZ_* environment overrides.
type AppConfig struct {
	Server   Server   `json:"server" koanf:"server"`
	Auth     Auth     `json:"auth" koanf:"auth"`
	Cache    Cache    `json:"cache" koanf:"cache"`
	Database Database `json:"database" koanf:"database"`
}

func (a *AppConfig) Validate() error {
	if err := a.Auth.Validate(); err != nil {
		return err
	}
	if err := a.Cache.Validate(); err != nil {
		return err
	}
	return a.Server.Validate()
}

func (a *AppConfig) GetServer() *Server     { return &a.Server }
func (a *AppConfig) GetAuth() *Auth         { return &a.Auth }
func (a *AppConfig) GetCache() *Cache       { return &a.Cache }
func (a *AppConfig) GetDatabase() *Database { return &a.Database }

type Server struct {
	Address string `json:"address" koanf:"address"`
}

func (s Server) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Address, validation.Required),
	)
}

func (s Server) GetAddress() string {
	if s.Address == "" {
		return ":8080"
	}
	return s.Address
}

// Auth satisfies the decoder and resolver Config contract.
type Auth struct {
	SigningKey       string   `json:"signing_key" koanf:"signing_key"`
	ProjectRef       string   `json:"project_ref" koanf:"project_ref"`
	Audience         []string `json:"audience" koanf:"audience"`
	VerifySignature  bool     `json:"verify_signature" koanf:"verify_signature"`
	VerifyExpiration bool     `json:"verify_expiration" koanf:"verify_expiration"`
	VerifyAudience   bool     `json:"verify_audience" koanf:"verify_audience"`
	JWKSetURLs       []string `json:"jwk_set_urls" koanf:"jwk_set_urls"`
}

func (a Auth) Validate() error {
	if a.VerifySignature && a.SigningKey == "" && len(a.JWKSetURLs) == 0 {
		return validation.Errors{
			"signing_key": fmt.Errorf("signature verification requires a signing key or JWK set URLs"),
		}
	}
	return nil
}

func (a Auth) GetSigningKey() string     { return a.SigningKey }
func (a Auth) GetProjectRef() string     { return a.ProjectRef }
func (a Auth) GetVerifySignature() bool  { return a.VerifySignature }
func (a Auth) GetVerifyExpiration() bool { return a.VerifyExpiration }
func (a Auth) GetVerifyAudience() bool   { return a.VerifyAudience }
func (a Auth) GetAudience() []string     { return a.Audience }
func (a Auth) GetJWKSetURLs() []string   { return a.JWKSetURLs }

type Cache struct {
	RedisURL                 string `json:"redis_url" koanf:"redis_url"`
	DefaultTTLExpression     string `json:"default_ttl" koanf:"default_ttl"`
	RangeTTLExpression       string `json:"range_ttl" koanf:"range_ttl"`
	WaitTimeoutExpression    string `json:"wait_timeout" koanf:"wait_timeout"`
	ComputeTimeoutExpression string `json:"compute_timeout" koanf:"compute_timeout"`
	StaleRetentionExpression string `json:"stale_retention" koanf:"stale_retention"`
	MemoryHorizonExpression  string `json:"memory_horizon" koanf:"memory_horizon"`
}

func (c Cache) Validate() error {
	fields := map[string]string{
		"default_ttl":     c.DefaultTTLExpression,
		"range_ttl":       c.RangeTTLExpression,
		"wait_timeout":    c.WaitTimeoutExpression,
		"compute_timeout": c.ComputeTimeoutExpression,
		"stale_retention": c.StaleRetentionExpression,
		"memory_horizon":  c.MemoryHorizonExpression,
	}
	errs := validation.Errors{}
	for name, expr := range fields {
		if expr == "" {
			continue
		}
		if _, err := time.ParseDuration(expr); err != nil {
			errs[name] = fmt.Errorf("must be a valid duration expression")
		}
	}
	if len(errs) > 0 {
		return errs
	}
	return validation.ValidateStruct(&c,
		validation.Field(&c.RedisURL, validation.Required),
	)
}

func (c Cache) GetRedisURL() string { return c.RedisURL }

func (c Cache) GetDefaultTTL() time.Duration {
	return c.duration(c.DefaultTTLExpression, 7*24*time.Hour)
}

func (c Cache) GetRangeTTL() time.Duration {
	return c.duration(c.RangeTTLExpression, 30*time.Minute)
}

func (c Cache) GetWaitTimeout() time.Duration {
	return c.duration(c.WaitTimeoutExpression, 30*time.Second)
}

func (c Cache) GetComputeTimeout() time.Duration {
	return c.duration(c.ComputeTimeoutExpression, 2*time.Minute)
}

func (c Cache) GetStaleRetention() time.Duration {
	return c.duration(c.StaleRetentionExpression, 24*time.Hour)
}

func (c Cache) GetMemoryHorizon() time.Duration {
	return c.duration(c.MemoryHorizonExpression, 5*time.Minute)
}

func (c Cache) duration(expr string, fallback time.Duration) time.Duration {
	if expr == "" {
		return fallback
	}
	dur, err := time.ParseDuration(expr)
	if err != nil {
		return fallback
	}
	return dur
}

type Database struct {
	DSN string `json:"dsn" koanf:"dsn"`
}

func (d Database) GetDSN() string {
	if d.DSN == "" {
		return "file:squeeze.db?cache=shared&mode=rwc"
	}
	return d.DSN
}
