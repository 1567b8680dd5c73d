// Package rooms parses rooms command flags and composes the service entrypoint.
package rooms

import (
	"context"
	"flag"
	"fmt"

	entrypoint "github.com/louisbranch/classroom.space/internal/platform/cmd"
	server "github.com/louisbranch/classroom.space/internal/services/rooms/app"
	"github.com/louisbranch/classroom.space/internal/services/rooms/identity"
)

// Config holds rooms command configuration.
type Config struct {
	HTTPAddr      string `env:"ROOMS_HTTP_ADDR"      envDefault:":8090"`
	GRPCAddr      string `env:"ROOMS_GRPC_ADDR"      envDefault:":8091"`
	DBPath        string `env:"ROOMS_DB_PATH"        envDefault:"data/rooms.db"`
	Seed          bool   `env:"ROOMS_SEED"           envDefault:"true"`
	TokenSecret   string `env:"ROOMS_TOKEN_SECRET"`
	TokenIssuer   string `env:"ROOMS_TOKEN_ISSUER"   envDefault:"classroom.space"`
	TokenAudience string `env:"ROOMS_TOKEN_AUDIENCE" envDefault:"rooms"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}

	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "rooms HTTP listen address")
	fs.StringVar(&cfg.GRPCAddr, "grpc-addr", cfg.GRPCAddr, "rooms gRPC health listen address")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "rooms SQLite database path")
	fs.BoolVar(&cfg.Seed, "seed", cfg.Seed, "seed fixture rooms into an empty database")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) tokenConfig() (identity.Config, error) {
	secret, err := identity.DecodeSecret(c.TokenSecret)
	if err != nil {
		return identity.Config{}, err
	}
	return identity.Config{
		Issuer:   c.TokenIssuer,
		Audience: c.TokenAudience,
		Secret:   secret,
	}, nil
}

// Run builds the rooms app and serves it until ctx ends.
func Run(ctx context.Context, cfg Config) error {
	token, err := cfg.tokenConfig()
	if err != nil {
		return fmt.Errorf("token config: %w", err)
	}
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceRooms, func(ctx context.Context) error {
		if err := server.Run(ctx, server.Config{
			HTTPAddr: cfg.HTTPAddr,
			GRPCAddr: cfg.GRPCAddr,
			DBPath:   cfg.DBPath,
			Seed:     cfg.Seed,
			Token:    token,
		}); err != nil {
			return fmt.Errorf("serve rooms: %w", err)
		}
		return nil
	})
}
