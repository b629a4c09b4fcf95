package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	cryptotopic "github.com/cryptotopic/client-go"
	"github.com/cryptotopic/client-go/ledger"
	"github.com/cryptotopic/client-go/ledger/memledger"
)

// useMemoryLedger points the command at one shared in-memory ledger for the
// duration of the test.
func useMemoryLedger(t *testing.T) {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	l := memledger.New(memledger.WithLogger(logger))

	originalFactory := ledgerFactory
	originalEnv := envFile
	t.Cleanup(func() {
		ledgerFactory = originalFactory
		envFile = originalEnv
	})
	ledgerFactory = func(context.Context, *Profile, *logrus.Logger) (ledger.Ledger, io.Closer, error) {
		return l, noopCloser{}, nil
	}
	envFile = filepath.Join(t.TempDir(), ".env")
}

func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cfg := &Config{
		Stdin:  strings.NewReader(stdin),
		Stdout: &out,
		Stderr: io.Discard,
	}
	err := run(append([]string{"cryptotopic"}, args...), cfg)
	return out.String(), err
}

func decode[T any](t *testing.T, s string) T {
	t.Helper()

	var v T
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		t.Fatalf("json.Unmarshal(%q) error = %v", s, err)
	}
	return v
}

func keygen(t *testing.T, dir, name string) string {
	t.Helper()

	path := filepath.Join(dir, name+".json")
	if _, err := runCLI(t, "", "keygen", "-a", "Kyber-512", "-o", path, "--passphrase", "pw"); err != nil {
		t.Fatalf("keygen error = %v", err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Stdin != os.Stdin {
		t.Error("DefaultConfig().Stdin should be os.Stdin")
	}
	if cfg.Stdout != os.Stdout {
		t.Error("DefaultConfig().Stdout should be os.Stdout")
	}
	if cfg.Stderr != os.Stderr {
		t.Error("DefaultConfig().Stderr should be os.Stderr")
	}
}

func TestRun_NoArgs(t *testing.T) {
	useMemoryLedger(t)

	err := run([]string{"cryptotopic"}, &Config{Stdout: &bytes.Buffer{}, Stderr: io.Discard})
	if err == nil {
		t.Fatal("run() should return error with no args")
	}
	if !strings.Contains(err.Error(), "usage") {
		t.Errorf("error should contain 'usage', got %v", err)
	}
}

func TestRun_UnknownCommand(t *testing.T) {
	useMemoryLedger(t)

	if _, err := runCLI(t, "", "unknown-command"); err == nil {
		t.Error("run() should return error for unknown command")
	}
}

func TestRun_Help(t *testing.T) {
	useMemoryLedger(t)

	out, err := runCLI(t, "", "--help")
	if err != nil {
		t.Fatalf("run(--help) error = %v", err)
	}
	if !strings.Contains(out, "keygen") {
		t.Errorf("help output should list subcommands, got %q", out)
	}
}

func TestKeygen_Print(t *testing.T) {
	useMemoryLedger(t)

	out, err := runCLI(t, "", "keygen", "-a", "RSA-2048")
	if err != nil {
		t.Fatalf("keygen error = %v", err)
	}
	got := decode[KeygenOutput](t, out)
	if got.Algorithm != "RSA-2048" {
		t.Errorf("Algorithm = %q, want RSA-2048", got.Algorithm)
	}
	if got.PublicKey == "" || got.PrivateKey == "" {
		t.Error("keygen should print both keys without --out")
	}
}

func TestKeygen_Errors(t *testing.T) {
	useMemoryLedger(t)
	dir := t.TempDir()

	if _, err := runCLI(t, "", "keygen", "-a", "DSA-1024"); !errors.Is(err, cryptotopic.ErrUnsupportedAlgorithm) {
		t.Errorf("keygen error = %v, want ErrUnsupportedAlgorithm", err)
	}
	t.Setenv("CRYPTOTOPIC_PASSPHRASE", "")
	_, err := runCLI(t, "", "keygen", "-o", filepath.Join(dir, "id.json"))
	if err == nil || !strings.Contains(err.Error(), "passphrase") {
		t.Errorf("keygen error = %v, want passphrase error", err)
	}
}

func TestRun_MissingIdentity(t *testing.T) {
	useMemoryLedger(t)
	t.Setenv("CRYPTOTOPIC_IDENTITY", "")

	_, err := runCLI(t, "", "--profile", filepath.Join(t.TempDir(), "none.yaml"), "read", "0.0.1001", "2")
	if err == nil || !strings.Contains(err.Error(), "identity") {
		t.Errorf("read error = %v, want identity error", err)
	}
}

func TestRun_TopicLifecycle(t *testing.T) {
	useMemoryLedger(t)
	dir := t.TempDir()
	alice := keygen(t, dir, "alice")
	bob := keygen(t, dir, "bob")
	profile := filepath.Join(dir, "cryptotopic.yaml")

	as := func(identity string, args ...string) []string {
		return append([]string{"--profile", profile, "--identity", identity, "--passphrase", "pw"}, args...)
	}

	out, err := runCLI(t, "", "--profile", profile, "create", "@"+alice, "@"+bob, "-a", "Kyber-512")
	if err != nil {
		t.Fatalf("create error = %v", err)
	}
	topicID := decode[map[string]string](t, out)["topicId"]
	if topicID == "" {
		t.Fatalf("create output = %q, want topicId", out)
	}

	out, err = runCLI(t, "hello from stdin", as(alice, "submit", topicID)...)
	if err != nil {
		t.Fatalf("submit error = %v", err)
	}
	first := decode[map[string]int64](t, out)["sequenceNumber"]

	out, err = runCLI(t, "", as(bob, "read", topicID, "1")...)
	if err != nil {
		t.Fatalf("read error = %v", err)
	}
	if out != "hello from stdin" || first != 1 {
		t.Errorf("read = %q at %d, want %q at 1", out, first, "hello from stdin")
	}

	out, err = runCLI(t, "", as(alice, "participants", topicID)...)
	if err != nil {
		t.Fatalf("participants error = %v", err)
	}
	if got := decode[map[string][]string](t, out)["participants"]; len(got) != 2 {
		t.Errorf("participants = %d keys, want 2", len(got))
	}

	out, err = runCLI(t, "", as(alice, "rotate", topicID, "--exclude", "@"+bob)...)
	if err != nil {
		t.Fatalf("rotate error = %v", err)
	}
	if gen := decode[map[string]int](t, out)["generation"]; gen != 1 {
		t.Errorf("rotate generation = %d, want 1", gen)
	}

	if _, err := runCLI(t, "", as(alice, "submit", topicID, "secret")...); err != nil {
		t.Fatalf("submit error = %v", err)
	}
	if _, err := runCLI(t, "", as(bob, "read", topicID, "2")...); !errors.Is(err, cryptotopic.ErrAccessDenied) {
		t.Errorf("read error = %v, want ErrAccessDenied", err)
	}

	out, err = runCLI(t, "", as(alice, "watch", topicID, "--from", "1", "--timeout", "300ms")...)
	if err != nil {
		t.Fatalf("watch error = %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("watch printed %d lines, want 2: %q", len(lines), out)
	}
	if msg := decode[MessageOutput](t, lines[1]); msg.Message != "secret" || msg.Generation != 1 {
		t.Errorf("watch line = %+v", msg)
	}

	if _, err := runCLI(t, "", as(alice, "add", topicID, "@"+bob)...); err != nil {
		t.Fatalf("add error = %v", err)
	}
	out, err = runCLI(t, "", as(bob, "read", topicID, "2")...)
	if err != nil {
		t.Fatalf("read after add error = %v", err)
	}
	if out != "secret" {
		t.Errorf("read after add = %q, want %q", out, "secret")
	}
}

func TestRun_WatchMissingTopic(t *testing.T) {
	useMemoryLedger(t)
	dir := t.TempDir()
	alice := keygen(t, dir, "alice")
	profile := filepath.Join(dir, "cryptotopic.yaml")

	_, err := runCLI(t, "", "--profile", profile, "--identity", alice, "--passphrase", "pw", "watch", "0.0.9999", "--timeout", "5s")
	if !errors.Is(err, cryptotopic.ErrTopicNotFound) {
		t.Errorf("watch error = %v, want ErrTopicNotFound", err)
	}
}

func TestRun_Migrate(t *testing.T) {
	useMemoryLedger(t)
	dir := t.TempDir()
	alice := keygen(t, dir, "alice")
	profile := filepath.Join(dir, "cryptotopic.yaml")

	out, err := runCLI(t, "", "--profile", profile, "create", "@"+alice, "-a", "Kyber-512", "--config-storage", "message")
	if err != nil {
		t.Fatalf("create error = %v", err)
	}
	topicID := decode[map[string]string](t, out)["topicId"]

	args := []string{"--profile", profile, "--identity", alice, "--passphrase", "pw", "migrate", topicID}
	out, err = runCLI(t, "", args...)
	if err != nil {
		t.Fatalf("migrate error = %v", err)
	}
	if decode[map[string]string](t, out)["fileId"] == "" {
		t.Errorf("migrate output = %q, want fileId", out)
	}
	if _, err := runCLI(t, "", args...); !errors.Is(err, cryptotopic.ErrRedundantMigration) {
		t.Errorf("second migrate error = %v, want ErrRedundantMigration", err)
	}
}

func TestRun_EnvFile(t *testing.T) {
	useMemoryLedger(t)
	dir := t.TempDir()
	alice := keygen(t, dir, "alice")

	out, err := runCLI(t, "", "create", "@"+alice, "-a", "Kyber-512")
	if err != nil {
		t.Fatalf("create error = %v", err)
	}
	topicID := decode[map[string]string](t, out)["topicId"]

	env := "CRYPTOTOPIC_IDENTITY=" + alice + "\nCRYPTOTOPIC_PASSPHRASE=pw\nCRYPTOTOPIC_PROFILE=" + filepath.Join(dir, "none.yaml") + "\n"
	if err := os.WriteFile(envFile, []byte(env), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	for _, key := range []string{"CRYPTOTOPIC_IDENTITY", "CRYPTOTOPIC_PASSPHRASE", "CRYPTOTOPIC_PROFILE"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	out, err = runCLI(t, "", "generation", topicID)
	if err != nil {
		t.Fatalf("generation error = %v", err)
	}
	if gen := decode[map[string]int](t, out)["generation"]; gen != 0 {
		t.Errorf("generation = %d, want 0", gen)
	}
}

func TestResolveKey(t *testing.T) {
	dir := t.TempDir()
	kp, err := cryptotopic.GenerateKeyPair(cryptotopic.Kyber512)
	if err != nil {
		t.Fatalf("GenerateKeyPair() error = %v", err)
	}
	path := filepath.Join(dir, "id.json")
	if err := kp.ExportToFile(path, "pw"); err != nil {
		t.Fatalf("ExportToFile() error = %v", err)
	}

	got, err := resolveKey("@" + path)
	if err != nil {
		t.Fatalf("resolveKey() error = %v", err)
	}
	if got != kp.PublicKey {
		t.Error("resolveKey() did not return the identity's public key")
	}
	if got, _ := resolveKey("literal"); got != "literal" {
		t.Errorf("resolveKey(literal) = %q", got)
	}
	if _, err := resolveKey("@" + filepath.Join(dir, "missing.json")); err == nil {
		t.Error("resolveKey() expected error for missing file")
	}
}

func TestFatal(t *testing.T) {
	originalExitFunc := exitFunc
	defer func() { exitFunc = originalExitFunc }()

	var exitCode int
	exitFunc = func(code int) {
		exitCode = code
	}

	oldStderr := os.Stderr
	r, w, _ := os.Pipe()
	os.Stderr = w

	fatal("error %d: %s", 42, "something went wrong")

	w.Close()
	os.Stderr = oldStderr
	var buf bytes.Buffer
	buf.ReadFrom(r)

	if exitCode != 1 {
		t.Errorf("exitCode = %d, want 1", exitCode)
	}
	if want := "error 42: something went wrong\n"; buf.String() != want {
		t.Errorf("output = %q, want %q", buf.String(), want)
	}
}
