package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"igclog/internal/testsupport"
)

// runCLI executes the command tree with the given args against a config
// file written for the test, returning combined output.
func runCLI(t *testing.T, args []string, configPath string, stdin string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	if configPath != "" {
		args = append([]string{"--config", configPath}, args...)
	}
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeTestConfig(t *testing.T) string {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	content := "[paths]\ndirectory = \"" + cfg.Paths.Directory + "\"\n\n" +
		"[enrichment]\nbase_url = \"http://127.0.0.1:1\"\n\n" +
		"[journal]\nenabled = false\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func requireContains(t *testing.T, out, want string) {
	t.Helper()
	if !strings.Contains(out, want) {
		t.Fatalf("output %q does not contain %q", out, want)
	}
}

func TestHelpListsCommands(t *testing.T) {
	out, err := runCLI(t, []string{"--help"}, "", "")
	if err != nil {
		t.Fatal(err)
	}
	for _, sub := range []string{"process", "watch", "list", "clean", "auth", "history", "config"} {
		requireContains(t, out, sub)
	}
}

func TestConfigInitAndValidate(t *testing.T) {
	configPath := writeTestConfig(t)

	out, err := runCLI(t, []string{"config", "validate"}, configPath, "")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")

	target := filepath.Join(t.TempDir(), "config.toml")
	out, err = runCLI(t, []string{"config", "init", "--path", target}, "", "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	// A second init without --overwrite refuses.
	if _, err := runCLI(t, []string{"config", "init", "--path", target}, "", ""); err == nil {
		t.Fatal("expected error when config already exists")
	}
}

func TestProcessAndListRoundTrip(t *testing.T) {
	configPath := writeTestConfig(t)

	// Resolve the directory the config points at and seed one track.
	out, err := runCLI(t, []string{"config", "validate"}, configPath, "")
	if err != nil {
		t.Fatal(err)
	}
	var dir string
	for _, line := range strings.Split(out, "\n") {
		if rest, ok := strings.CutPrefix(line, "Track directory: "); ok {
			dir = strings.TrimSpace(rest)
		}
	}
	if dir == "" {
		t.Fatalf("could not resolve track directory from %q", out)
	}
	testsupport.WriteTrack(t, dir, "flight.igc", testsupport.TrackSpec{Glider: "Test Wing"})

	out, err = runCLI(t, []string{"process"}, configPath, "")
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	requireContains(t, out, "1 computed")

	out, err = runCLI(t, []string{"list"}, configPath, "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	requireContains(t, out, "Test Wing")
	requireContains(t, out, "Flights: 1")
}

func TestCleanRequiresConfirmation(t *testing.T) {
	configPath := writeTestConfig(t)

	out, err := runCLI(t, []string{"clean"}, configPath, "n\n")
	if err != nil {
		t.Fatalf("clean: %v", err)
	}
	requireContains(t, out, "Aborted")

	out, err = runCLI(t, []string{"clean", "--yes"}, configPath, "")
	if err != nil {
		t.Fatalf("clean --yes: %v", err)
	}
	requireContains(t, out, "Removed 0 artifact files")
}

func TestHistoryDisabledJournal(t *testing.T) {
	configPath := writeTestConfig(t)
	if _, err := runCLI(t, []string{"history"}, configPath, ""); err == nil {
		t.Fatal("expected error when journal is disabled")
	}
}
