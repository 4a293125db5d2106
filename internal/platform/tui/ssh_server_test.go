package tui

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
)

func TestNewSSHServerCreatesHostKey(t *testing.T) {
	cfg := DefaultSSHServerConfig()
	cfg.Address = "127.0.0.1:0"
	cfg.HostKeyPath = filepath.Join(t.TempDir(), "keys", "host_key")

	srv, err := NewSSHServer(cfg, log.NewWithOptions(io.Discard, log.Options{}))
	if err != nil {
		t.Fatalf("NewSSHServer() failed: %v", err)
	}
	if srv.Addr() != "127.0.0.1:0" {
		t.Errorf("Addr() = %q", srv.Addr())
	}
	if _, err := os.Stat(cfg.HostKeyPath); err != nil {
		t.Errorf("Host key not created: %v", err)
	}
}
