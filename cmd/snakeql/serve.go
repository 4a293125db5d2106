package main

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/vovakirdan/snakeql/internal/platform/tui"
	"github.com/vovakirdan/snakeql/internal/storage"
)

var (
	flagSSHAddr     string
	flagHostKey     string
	flagIdleTimeout int
	flagServeStore  bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the snakeql SSH server",
	Long: `Start an SSH server where every connection watches its own fresh
agent train and then play, with the same controls as 'snakeql watch'.

Host key handling:
  - If --host-key is provided, uses that key file
  - Otherwise, auto-generates a key at ~/.snakeql/host_key

Examples:
  snakeql serve                           # Listen on :23234 with auto-generated key
  snakeql serve --ssh :2222               # Listen on port 2222
  snakeql serve --listen :8080            # Also stream every visitor's episodes
  snakeql serve --games 100 --store       # Shorter runs, recorded in the database

Users can connect with:
  ssh localhost -p 23234`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	addRunFlags(serveCmd)
	addDisplayFlags(serveCmd)
	serveCmd.Flags().StringVar(&flagSSHAddr, "ssh", ":23234", "SSH server address (host:port)")
	serveCmd.Flags().StringVar(&flagHostKey, "host-key", "", "Path to host key file (auto-generated if not specified)")
	serveCmd.Flags().IntVar(&flagIdleTimeout, "idle-timeout", 30, "Idle timeout in minutes before disconnecting")
	serveCmd.Flags().BoolVar(&flagServeStore, "store", false, "Record every visitor's run in the database")
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sshCfg := tui.SSHServerConfig{
		Address:     flagSSHAddr,
		HostKeyPath: flagHostKey,
		IdleTimeout: time.Duration(flagIdleTimeout) * time.Minute,
		App:         cfg,
	}

	if flagServeStore {
		store, err := storage.Open(cfg.Storage.DBPath)
		if err != nil {
			return err
		}
		defer store.Close()
		sshCfg.Store = store
	}

	group, ctx := errgroup.WithContext(ctx)
	hub, stopTelemetry := startTelemetry(ctx, group, cfg.Telemetry.Addr)
	defer stopTelemetry()
	sshCfg.Hub = hub

	server, err := tui.NewSSHServer(sshCfg, logger.WithPrefix("ssh"))
	if err != nil {
		return err
	}

	fmt.Printf("Starting snakeql SSH server on %s\n", server.Addr())
	fmt.Printf("Connect with: ssh localhost -p %s\n", portOf(server.Addr()))
	fmt.Println("Press Ctrl+C to stop")

	group.Go(func() error {
		return server.ListenAndServe(ctx)
	})
	return group.Wait()
}

// portOf returns the port part of a host:port address.
func portOf(addr string) string {
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return port
}
