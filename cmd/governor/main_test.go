package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestRun_VersionAndHelp(t *testing.T) {
	var stdout, stderr bytes.Buffer

	if code := Run([]string{"governor", "version"}, &stdout, &stderr); code != 0 {
		t.Fatalf("version exit code = %d, want 0", code)
	}
	if !strings.Contains(stdout.String(), "actiongov governor") {
		t.Errorf("version output = %q, want it to mention actiongov governor", stdout.String())
	}

	stdout.Reset()
	if code := Run([]string{"governor", "help"}, &stdout, &stderr); code != 0 {
		t.Fatalf("help exit code = %d, want 0", code)
	}
	if !strings.Contains(stdout.String(), "USAGE") {
		t.Errorf("help output = %q, want a USAGE section", stdout.String())
	}
}

func TestRun_UnknownCommand(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := Run([]string{"governor", "bogus"}, &stdout, &stderr)
	if code != 2 {
		t.Fatalf("unknown command exit code = %d, want 2", code)
	}
	if !strings.Contains(stderr.String(), "Unknown command") {
		t.Errorf("stderr = %q, want it to report an unknown command", stderr.String())
	}
}
