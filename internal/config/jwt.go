package config

import (
	"fmt"
	"time"
)

const (
	defaultTokenHours  = 24
	defaultTokenIssuer = "autoleech"
	minSecretLength    = 16
)

// JWTConfig holds what the operator API needs to mint and verify tokens.
// It is kept out of Config so the secret never reaches a JSON file.
type JWTConfig struct {
	Secret          string
	ExpirationHours int
	// Issuer is stamped into minted tokens and, when set, required on
	// verification.
	Issuer string
}

// NewJWTConfig reads JWT_SECRET (required), JWT_EXPIRATION_HOURS
// (default 24) and JWT_ISSUER (default "autoleech").
func NewJWTConfig() (*JWTConfig, error) {
	c := &JWTConfig{
		Secret:          env("JWT_SECRET"),
		ExpirationHours: defaultTokenHours,
		Issuer:          env("JWT_ISSUER"),
	}
	if c.Secret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required but not set")
	}
	if env("JWT_EXPIRATION_HOURS") != "" {
		hours, err := envInt("JWT_EXPIRATION_HOURS")
		if err != nil {
			return nil, err
		}
		c.ExpirationHours = hours
	}
	mergeString(&c.Issuer, defaultTokenIssuer)

	if err := c.check(); err != nil {
		return nil, err
	}
	return c, nil
}

// Expiration returns the token lifetime.
func (c *JWTConfig) Expiration() time.Duration {
	return time.Duration(c.ExpirationHours) * time.Hour
}

func (c *JWTConfig) check() error {
	if len(c.Secret) < minSecretLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters", minSecretLength)
	}
	if c.ExpirationHours < 1 {
		return fmt.Errorf("JWT_EXPIRATION_HOURS must be at least 1 hour, got: %d", c.ExpirationHours)
	}
	return nil
}
