package devtoken

import (
	"bytes"
	"flag"
	"strings"
	"testing"
	"time"

	"github.com/louisbranch/classroom.space/internal/services/rooms/identity"
)

var fixedNow = time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)

func testSecret() string {
	return strings.Repeat("5a", identity.MinSecretBytes)
}

func TestParseConfigReadsEnvAndFlags(t *testing.T) {
	t.Setenv("CLASSROOM_SPACE_ROOMS_TOKEN_SECRET", testSecret())
	t.Setenv("CLASSROOM_SPACE_ROOMS_TOKEN_ISSUER", "env-issuer")

	fs := flag.NewFlagSet("devtoken", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{"-user", "student-ana", "-role", "student", "-ttl", "1h"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Secret != testSecret() {
		t.Fatalf("expected env secret, got %q", cfg.Secret)
	}
	if cfg.Issuer != "env-issuer" {
		t.Fatalf("expected env issuer, got %q", cfg.Issuer)
	}
	if cfg.Audience != "rooms" {
		t.Fatalf("expected default audience, got %q", cfg.Audience)
	}
	if cfg.UserID != "student-ana" || cfg.Role != "student" || cfg.TTL != time.Hour {
		t.Fatalf("unexpected flag values: %+v", cfg)
	}
}

func TestRunMintsVerifiableToken(t *testing.T) {
	cfg := Config{
		Secret:   testSecret(),
		Issuer:   "classroom.space",
		Audience: "rooms",
		UserID:   "teacher-rivera",
		Name:     "Ms. Rivera",
		Role:     "teacher",
		TTL:      time.Hour,
	}
	buf := &bytes.Buffer{}
	now := func() time.Time { return fixedNow }
	if err := Run(cfg, buf, now); err != nil {
		t.Fatalf("run: %v", err)
	}

	secret, err := identity.DecodeSecret(testSecret())
	if err != nil {
		t.Fatalf("decode secret: %v", err)
	}
	verifier, err := identity.NewVerifier(identity.Config{
		Issuer:   cfg.Issuer,
		Audience: cfg.Audience,
		Secret:   secret,
		Now:      func() time.Time { return fixedNow.Add(time.Minute) },
	})
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}
	who, err := verifier.Verify(strings.TrimSpace(buf.String()))
	if err != nil {
		t.Fatalf("verify minted token: %v", err)
	}
	if who.UserID != "teacher-rivera" || who.Role != "teacher" || who.Name != "Ms. Rivera" {
		t.Fatalf("identity = %+v", who)
	}
}

func TestRunRejectsBadInput(t *testing.T) {
	base := Config{Secret: testSecret(), Issuer: "i", Audience: "a", UserID: "u", Role: "teacher", TTL: time.Hour}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "missing user", mutate: func(c *Config) { c.UserID = " " }},
		{name: "missing secret", mutate: func(c *Config) { c.Secret = "" }},
		{name: "short secret", mutate: func(c *Config) { c.Secret = "abcd" }},
		{name: "missing role", mutate: func(c *Config) { c.Role = "" }},
		{name: "zero ttl", mutate: func(c *Config) { c.TTL = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			if err := Run(cfg, &bytes.Buffer{}, nil); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestRunNilOutput(t *testing.T) {
	if err := Run(Config{UserID: "u"}, nil, nil); err == nil {
		t.Fatal("expected error for nil output")
	}
}
