package main

import (
	"testing"
)

func TestSetVersion(t *testing.T) {
	SetVersion("1.2.3-test")
	if rootCmd.Version != "1.2.3-test" {
		t.Errorf("expected version to be 1.2.3-test, got %s", rootCmd.Version)
	}
}

func TestRootCommand(t *testing.T) {
	if rootCmd.Use != "mcpfed" {
		t.Errorf("expected Use to be 'mcpfed', got %s", rootCmd.Use)
	}
	if !rootCmd.SilenceUsage {
		t.Error("expected SilenceUsage to be true")
	}
}

func TestSubcommandsAreRegistered(t *testing.T) {
	expected := []string{"serve", "status", "reload"}
	found := make(map[string]bool)
	for _, cmd := range rootCmd.Commands() {
		found[cmd.Name()] = true
	}
	for _, name := range expected {
		if !found[name] {
			t.Errorf("expected subcommand %s to be registered", name)
		}
	}
}
