// Command cryptotopic creates, reads and administers encrypted topics on a
// local or shared ledger.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/alexflint/go-arg"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	cryptotopic "github.com/cryptotopic/client-go"
)

// Config holds the I/O streams of the command.
type Config struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// DefaultConfig returns a Config bound to the process streams.
func DefaultConfig() *Config {
	return &Config{
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
}

// exitFunc is os.Exit; tests replace it.
var exitFunc = os.Exit

// ledgerFactory opens the ledger a profile names; tests replace it.
var ledgerFactory = openLedger

// envFile is loaded before parsing so that it can supply CRYPTOTOPIC_*
// variables.
var envFile = ".env"

func run(args []string, cfg *Config) error {
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load %s: %w", envFile, err)
	}

	var a cliArgs
	p, err := arg.NewParser(arg.Config{Program: "cryptotopic"}, &a)
	if err != nil {
		return err
	}
	if len(args) < 2 {
		p.WriteUsage(cfg.Stderr)
		return errors.New("usage: cryptotopic <command> [args]")
	}
	switch err := p.Parse(args[1:]); {
	case errors.Is(err, arg.ErrHelp):
		p.WriteHelpForSubcommand(cfg.Stdout, p.SubcommandNames()...)
		return nil
	case err != nil:
		return err
	}
	if p.Subcommand() == nil {
		return errors.New("usage: cryptotopic <command> [args]")
	}

	log := logrus.New()
	log.SetOutput(cfg.Stderr)
	log.SetLevel(logrus.WarnLevel)
	if a.Verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	if a.Keygen != nil {
		return runKeygen(a.Keygen, a.Passphrase, cfg)
	}

	profile, err := LoadProfile(a.Profile)
	if err != nil {
		return err
	}
	if a.Identity != "" {
		profile.Identity = a.Identity
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	l, closer, err := ledgerFactory(ctx, profile, log)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	defer closer.Close()

	opts := []cryptotopic.Option{cryptotopic.WithLogger(log)}
	if d := profile.pollInterval(); d > 0 {
		opts = append(opts, cryptotopic.WithPollingInitialInterval(d))
	}
	client, err := cryptotopic.New(l, opts...)
	if err != nil {
		return err
	}

	if a.Create != nil {
		return runCreate(ctx, client, a.Create, cfg)
	}

	identity, err := loadIdentity(profile.Identity, a.Passphrase)
	if err != nil {
		return err
	}

	switch {
	case a.Submit != nil:
		return runSubmit(ctx, client, identity, a.Submit, cfg)
	case a.Read != nil:
		return runRead(ctx, client, identity, a.Read, cfg)
	case a.Add != nil:
		return runAdd(ctx, client, identity, a.Add, cfg)
	case a.Rotate != nil:
		return runRotate(ctx, client, identity, a.Rotate, cfg)
	case a.Participants != nil:
		return runParticipants(ctx, client, identity, a.Participants, cfg)
	case a.Migrate != nil:
		return runMigrate(ctx, client, identity, a.Migrate, cfg)
	case a.Generation != nil:
		return runGeneration(ctx, client, identity, a.Generation, cfg)
	case a.Watch != nil:
		return runWatch(ctx, client, identity, a.Watch, cfg)
	}
	return fmt.Errorf("unknown command: %s", strings.Join(p.SubcommandNames(), " "))
}

func loadIdentity(path, passphrase string) (*cryptotopic.KeyPair, error) {
	if path == "" {
		return nil, errors.New("no identity: pass --identity or set identity in the profile")
	}
	kp, err := cryptotopic.ImportKeyPairFromFile(path, passphrase)
	if err != nil {
		return nil, fmt.Errorf("load identity %s: %w", path, err)
	}
	return kp, nil
}

// resolveKey returns key, or the public key of the identity file it names
// when prefixed with '@'. Reading a public key needs no passphrase.
func resolveKey(key string) (string, error) {
	path, ok := strings.CutPrefix(key, "@")
	if !ok {
		return key, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read identity: %w", err)
	}
	var exported cryptotopic.ExportedKeyPair
	if err := json.Unmarshal(data, &exported); err != nil {
		return "", fmt.Errorf("parse identity %s: %w", path, err)
	}
	if err := exported.Validate(); err != nil {
		return "", fmt.Errorf("identity %s: %w", path, err)
	}
	return exported.PublicKey, nil
}

func resolveKeys(keys []string) ([]string, error) {
	out := make([]string, 0, len(keys))
	for _, key := range keys {
		resolved, err := resolveKey(key)
		if err != nil {
			return nil, err
		}
		out = append(out, resolved)
	}
	return out, nil
}

func writeJSON(w io.Writer, v any) error {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	exitFunc(1)
}
