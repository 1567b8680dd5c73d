// Package devtoken mints rooms bearer tokens for local development.
package devtoken

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	entrypoint "github.com/louisbranch/classroom.space/internal/platform/cmd"
	"github.com/louisbranch/classroom.space/internal/platform/requestctx"
	"github.com/louisbranch/classroom.space/internal/services/rooms/identity"
)

// Config holds token minting configuration. The signing settings share the
// rooms service environment so a minted token verifies against it.
type Config struct {
	Secret   string `env:"ROOMS_TOKEN_SECRET"`
	Issuer   string `env:"ROOMS_TOKEN_ISSUER"   envDefault:"classroom.space"`
	Audience string `env:"ROOMS_TOKEN_AUDIENCE" envDefault:"rooms"`

	UserID string
	Name   string
	Role   string
	TTL    time.Duration
}

// ParseConfig loads signing settings from env and the caller from flags.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := Config{Role: "teacher", TTL: 12 * time.Hour}
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.UserID, "user", cfg.UserID, "user id carried as the token subject")
	fs.StringVar(&cfg.Name, "name", cfg.Name, "display name")
	fs.StringVar(&cfg.Role, "role", cfg.Role, "platform role: teacher, admin, student or assistant")
	fs.DurationVar(&cfg.TTL, "ttl", cfg.TTL, "token lifetime")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run signs a token for the configured caller and writes it to out.
func Run(cfg Config, out io.Writer, now func() time.Time) error {
	if out == nil {
		return errors.New("output is required")
	}
	if strings.TrimSpace(cfg.UserID) == "" {
		return errors.New("user is required")
	}
	secret, err := identity.DecodeSecret(cfg.Secret)
	if err != nil {
		return err
	}
	issuer, err := identity.NewIssuer(identity.Config{
		Issuer:   cfg.Issuer,
		Audience: cfg.Audience,
		Secret:   secret,
		Now:      now,
	})
	if err != nil {
		return err
	}
	token, err := issuer.Issue(requestctx.Identity{
		UserID: cfg.UserID,
		Name:   cfg.Name,
		Role:   cfg.Role,
	}, cfg.TTL)
	if err != nil {
		return fmt.Errorf("issue token: %w", err)
	}
	_, err = fmt.Fprintln(out, token)
	return err
}
