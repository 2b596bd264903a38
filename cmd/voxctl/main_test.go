package main

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
)

func TestResolveScript(t *testing.T) {
	t.Parallel()

	// Inline script wins when only it is set.
	script, err := resolveScript(appFlags{script: "hello there"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if script != "hello there" {
		t.Errorf("expected inline script, got %q", script)
	}

	// Both forms at once is an error.
	_, err = resolveScript(appFlags{script: "a", file: "b.txt"})
	if err == nil {
		t.Error("expected error when both --script and --file are set")
	}

	// Neither form is an error.
	_, err = resolveScript(appFlags{})
	if err == nil {
		t.Error("expected error when no script source is given")
	}
}

func TestResolveScriptFromFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "script.txt")
	if err := os.WriteFile(path, []byte("script from a file"), 0o644); err != nil {
		t.Fatalf("failed to write script file: %v", err)
	}

	script, err := resolveScript(appFlags{file: path})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if script != "script from a file" {
		t.Errorf("unexpected script contents: %q", script)
	}
}

func TestFlagParsing(t *testing.T) {
	oldArgs := os.Args

	t.Cleanup(func() { os.Args = oldArgs })

	flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	os.Args = []string{"voxctl", "--script", "Hello, world!", "--voice", "kabir", "--preview"}

	flags := parseFlags()

	if flags.script != "Hello, world!" {
		t.Errorf("expected script flag %q, got %q", "Hello, world!", flags.script)
	}

	if flags.voice != "kabir" {
		t.Errorf("expected voice flag %q, got %q", "kabir", flags.voice)
	}

	if !flags.preview {
		t.Error("expected preview flag to be set")
	}
}
