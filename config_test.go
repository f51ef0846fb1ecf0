package authgate

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"
	"time"
)

func validHSConfig() Config {
	cfg := DefaultConfig()
	cfg.JWT.SigningMethod = "hs256"
	cfg.JWT.PrivateKey = []byte("0123456789abcdef0123456789abcdef")
	return cfg
}

func TestDefaultConfigValidatesWithKeys(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey failed: %v", err)
	}

	cfg := DefaultConfig()
	cfg.JWT.PrivateKey = priv
	cfg.JWT.PublicKey = pub

	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config with keys must validate: %v", err)
	}
}

func TestConfigValidateRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero access ttl", func(c *Config) { c.JWT.AccessTTL = 0 }},
		{"zero refresh ttl", func(c *Config) { c.JWT.RefreshTTL = 0 }},
		{"refresh not longer than access", func(c *Config) {
			c.JWT.AccessTTL = time.Hour
			c.JWT.RefreshTTL = time.Hour
		}},
		{"unsupported method", func(c *Config) { c.JWT.SigningMethod = "rs256" }},
		{"short hs256 key", func(c *Config) { c.JWT.PrivateKey = []byte("too-short") }},
		{"ed25519 missing private key", func(c *Config) {
			c.JWT.SigningMethod = "ed25519"
			c.JWT.PrivateKey = nil
		}},
		{"ed25519 missing public key", func(c *Config) {
			c.JWT.SigningMethod = "ed25519"
			c.JWT.PublicKey = nil
		}},
		{"negative leeway", func(c *Config) { c.JWT.Leeway = -time.Second }},
		{"excessive leeway", func(c *Config) { c.JWT.Leeway = 3 * time.Minute }},
		{"empty blacklist prefix", func(c *Config) { c.Blacklist.KeyPrefix = "" }},
		{"zero password reset ttl", func(c *Config) { c.Action.PasswordResetTTL = 0 }},
		{"zero email verification ttl", func(c *Config) { c.Action.EmailVerificationTTL = 0 }},
		{"zero signup verification ttl", func(c *Config) { c.Action.SignupVerificationTTL = 0 }},
		{"audit enabled without buffer", func(c *Config) {
			c.Audit.Enabled = true
			c.Audit.BufferSize = 0
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validHSConfig()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation failure")
			}
		})
	}
}

func TestCloneConfigCopiesKeys(t *testing.T) {
	cfg := validHSConfig()
	cfg.JWT.PublicKey = []byte("public-material")

	clone := cloneConfig(cfg)
	clone.JWT.PrivateKey[0] = 'X'
	clone.JWT.PublicKey[0] = 'X'

	if cfg.JWT.PrivateKey[0] == 'X' || cfg.JWT.PublicKey[0] == 'X' {
		t.Fatal("clone must not share key material with the source")
	}
}
