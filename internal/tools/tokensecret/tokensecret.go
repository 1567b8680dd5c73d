// Package tokensecret generates the signing secret for rooms bearer tokens.
package tokensecret

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/louisbranch/classroom.space/internal/services/rooms/identity"
)

// EnvName is the variable the rooms service reads the secret from.
const EnvName = "CLASSROOM_SPACE_ROOMS_TOKEN_SECRET"

// Config holds configuration for secret generation.
type Config struct {
	Bytes int
}

// ParseConfig parses flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := Config{Bytes: identity.MinSecretBytes}
	fs.IntVar(&cfg.Bytes, "bytes", cfg.Bytes, "number of random bytes")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run generates the secret and writes it to out as an env assignment.
func Run(cfg Config, out io.Writer, reader io.Reader) error {
	if cfg.Bytes < identity.MinSecretBytes {
		return fmt.Errorf("bytes must be at least %d", identity.MinSecretBytes)
	}
	if out == nil {
		return errors.New("output is required")
	}
	if reader == nil {
		reader = rand.Reader
	}

	buf := make([]byte, cfg.Bytes)
	if _, err := io.ReadFull(reader, buf); err != nil {
		return fmt.Errorf("generate random bytes: %w", err)
	}
	_, err := fmt.Fprintf(out, "%s=%s\n", EnvName, hex.EncodeToString(buf))
	return err
}
