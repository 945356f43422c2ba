package registry

import (
	"sync"
	"testing"

	"mcpfed/internal/client"
	"mcpfed/internal/config"
)

// disabledCfg builds a ServerConfig that settles into status=disabled
// immediately, with no background process or network I/O, so registry
// mechanics can be exercised without a real Transport.
func disabledCfg(label, command string) config.ServerConfig {
	return config.ServerConfig{
		Label:     label,
		Enabled:   false,
		Transport: config.Transport{Type: config.TransportStdio, Command: command},
	}
}

func TestRegisterAddsAndGetReturnsClient(t *testing.T) {
	r := New(nil)
	r.Register("s1", disabledCfg("Server One", "cmd1"))

	mc, ok := r.Get("s1")
	if !ok {
		t.Fatalf("expected s1 to be registered")
	}
	if mc == nil {
		t.Fatalf("expected non-nil ManagedClient")
	}
}

func TestGetUnknownKeyReturnsFalse(t *testing.T) {
	r := New(nil)
	_, ok := r.Get("missing")
	if ok {
		t.Fatalf("expected ok=false for an unregistered key")
	}
}

func TestRemoveIsIdempotent(t *testing.T) {
	r := New(nil)
	r.Remove("never-registered")

	r.Register("s1", disabledCfg("S1", "cmd1"))
	r.Remove("s1")
	r.Remove("s1")

	if _, ok := r.Get("s1"); ok {
		t.Fatalf("expected s1 to be gone after Remove")
	}
}

func TestRegisterReplacesPriorEntryForSameKey(t *testing.T) {
	r := New(nil)
	r.Register("s1", disabledCfg("Old Label", "cmd1"))
	first, _ := r.Get("s1")

	r.Register("s1", disabledCfg("New Label", "cmd2"))
	second, ok := r.Get("s1")
	if !ok {
		t.Fatalf("expected s1 still registered")
	}
	if first == second {
		t.Fatalf("expected Register to replace the Managed Client instance")
	}
}

func TestDiffAndApplyAddsRemovesAndModifies(t *testing.T) {
	r := New(nil)
	r.Register("keep", disabledCfg("Keep", "cmd-keep"))
	r.Register("gone", disabledCfg("Gone", "cmd-gone"))
	r.Register("change", disabledCfg("Change Old", "cmd-old"))

	changeClientBefore, _ := r.Get("change")

	newConfig := config.AppConfig{MCPServers: map[string]config.ServerConfig{
		"keep":   disabledCfg("Keep", "cmd-keep"),
		"change": disabledCfg("Change New", "cmd-new"),
		"added":  disabledCfg("Added", "cmd-added"),
	}}

	r.DiffAndApply(newConfig)

	if _, ok := r.Get("gone"); ok {
		t.Fatalf("expected 'gone' to be removed")
	}
	if _, ok := r.Get("added"); !ok {
		t.Fatalf("expected 'added' to be registered")
	}

	keepClient, ok := r.Get("keep")
	if !ok || keepClient == nil {
		t.Fatalf("expected 'keep' to remain registered and unchanged")
	}

	changeClientAfter, ok := r.Get("change")
	if !ok {
		t.Fatalf("expected 'change' to remain registered")
	}
	if changeClientAfter == changeClientBefore {
		t.Fatalf("expected a significant change (label+transport) to replace the Managed Client")
	}
}

func TestDiffAndApplyLeavesUnchangedKeyAlone(t *testing.T) {
	r := New(nil)
	r.Register("s1", disabledCfg("S1", "cmd1"))
	before, _ := r.Get("s1")

	r.DiffAndApply(config.AppConfig{MCPServers: map[string]config.ServerConfig{
		"s1": disabledCfg("S1", "cmd1"),
	}})

	after, ok := r.Get("s1")
	if !ok {
		t.Fatalf("expected s1 still registered")
	}
	if before != after {
		t.Fatalf("expected an unchanged config to leave the Managed Client instance untouched")
	}
}

func TestKeysReturnsSnapshot(t *testing.T) {
	r := New(nil)
	r.Register("a", disabledCfg("A", "cmd-a"))
	r.Register("b", disabledCfg("B", "cmd-b"))

	keys := r.Keys()
	if len(keys) != 2 {
		t.Fatalf("expected 2 keys, got %d", len(keys))
	}
}

func TestConcurrentRegisterOnDistinctKeysDoesNotRace(t *testing.T) {
	r := New(nil)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := string(rune('a' + n%20))
			r.Register(key, disabledCfg(key, "cmd"))
		}(i)
	}
	wg.Wait()

	if len(r.Keys()) == 0 {
		t.Fatalf("expected at least one registered key")
	}
}

func TestNewWithClientFactoryUsesProvidedConstructor(t *testing.T) {
	var built []string
	r := newWithClientFactory(nil, func(key string, cfg config.ServerConfig) *client.ManagedClient {
		built = append(built, key)
		return client.New(key, cfg, nil)
	})
	r.Register("s1", disabledCfg("S1", "cmd1"))

	if len(built) != 1 || built[0] != "s1" {
		t.Fatalf("expected factory to be invoked once for s1, got %v", built)
	}
}
