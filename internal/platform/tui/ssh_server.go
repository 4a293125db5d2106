package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	"github.com/charmbracelet/wish/bubbletea"

	"github.com/vovakirdan/snakeql/internal/config"
	"github.com/vovakirdan/snakeql/internal/recorder"
	"github.com/vovakirdan/snakeql/internal/session"
	"github.com/vovakirdan/snakeql/internal/storage"
	"github.com/vovakirdan/snakeql/internal/telemetry"
)

// SSHServerConfig holds configuration for the SSH server.
type SSHServerConfig struct {
	// Address is the host:port to listen on (e.g., ":23234").
	Address string

	// HostKeyPath is the path to the host key file.
	// If empty, a key will be auto-generated at ~/.snakeql/host_key.
	HostKeyPath string

	// IdleTimeout is how long to wait before closing idle connections.
	IdleTimeout time.Duration

	// App configures the agent and games every visitor watches.
	App config.Config

	// Store and Hub receive the episodes of every visitor's run.
	// Both are optional.
	Store *storage.Store
	Hub   *telemetry.Hub
}

// DefaultSSHServerConfig returns a config with sensible defaults.
func DefaultSSHServerConfig() SSHServerConfig {
	return SSHServerConfig{
		Address:     ":23234",
		IdleTimeout: 30 * time.Minute,
		App:         config.Default(),
	}
}

// SSHServer wraps a Wish SSH server that shows each visitor a fresh
// agent learning to play.
type SSHServer struct {
	config SSHServerConfig
	server *ssh.Server
	logger *log.Logger
}

// NewSSHServer creates a new SSH server with the given configuration.
func NewSSHServer(cfg SSHServerConfig, logger *log.Logger) (*SSHServer, error) {
	if logger == nil {
		logger = log.NewWithOptions(os.Stderr, log.Options{
			ReportTimestamp: true,
			Prefix:          "snakeql-ssh",
		})
	}

	srv := &SSHServer{
		config: cfg,
		logger: logger,
	}

	hostKeyPath := cfg.HostKeyPath
	if hostKeyPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("tui: cannot get home directory: %w", err)
		}
		hostKeyPath = filepath.Join(home, ".snakeql", "host_key")
	}

	if err := os.MkdirAll(filepath.Dir(hostKeyPath), 0o700); err != nil {
		return nil, fmt.Errorf("tui: cannot create host key directory: %w", err)
	}

	server, err := wish.NewServer(
		wish.WithAddress(cfg.Address),
		wish.WithHostKeyPath(hostKeyPath),
		wish.WithIdleTimeout(cfg.IdleTimeout),
		wish.WithMiddleware(
			bubbletea.Middleware(srv.teaHandler),
			srv.loggingMiddleware,
		),
	)
	if err != nil {
		return nil, fmt.Errorf("tui: cannot create SSH server: %w", err)
	}

	srv.server = server
	return srv, nil
}

// teaHandler creates a watch program for each SSH session. Every visitor
// gets a new agent, so the table always starts empty.
func (s *SSHServer) teaHandler(sshSession ssh.Session) (tea.Model, []tea.ProgramOption) {
	if _, _, ok := sshSession.Pty(); !ok {
		s.logger.Warn("No PTY requested", "user", sshSession.User())
		wish.Fatalln(sshSession, "snakeql needs an interactive terminal, try ssh -t")
		return nil, nil
	}

	app := s.config.App
	seed := app.Seed()

	sess, err := session.NewSeeded(app.SessionConfig(), app.AgentParams(), app.AgentRewards(), seed)
	if err != nil {
		s.logger.Error("Cannot start session", "user", sshSession.User(), "err", err)
		wish.Fatalln(sshSession, "cannot start session:", err)
		return nil, nil
	}

	rec, err := recorder.Start(s.config.Store, s.config.Hub, s.logger, recorder.RunFromConfig("serve", app, seed))
	if err != nil {
		s.logger.Warn("Episodes of this session will not be stored", "user", sshSession.User(), "err", err)
		rec, _ = recorder.Start(nil, s.config.Hub, s.logger, storage.Run{})
	}
	go func() {
		<-sshSession.Context().Done()
		if err := rec.Close(); err != nil {
			s.logger.Warn("Cannot finish run", "run", rec.RunID(), "err", err)
		}
	}()

	model := NewWatchModel(sess, WatchConfigFrom(app), rec.Record).
		WithTitle("SNAKEQL @ " + sshSession.User())

	return model, []tea.ProgramOption{
		tea.WithAltScreen(),
	}
}

// loggingMiddleware logs SSH session events.
func (s *SSHServer) loggingMiddleware(next ssh.Handler) ssh.Handler {
	return func(sshSession ssh.Session) {
		s.logger.Info("Session started",
			"user", sshSession.User(),
			"remote", sshSession.RemoteAddr().String(),
		)
		next(sshSession)
		s.logger.Info("Session ended",
			"user", sshSession.User(),
			"remote", sshSession.RemoteAddr().String(),
		)
	}
}

// ListenAndServe starts the SSH server and blocks until ctx is cancelled.
func (s *SSHServer) ListenAndServe(ctx context.Context) error {
	s.logger.Info("Starting SSH server", "address", s.config.Address)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, ssh.ErrServerClosed) {
			errCh <- fmt.Errorf("tui: ssh serve: %w", err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down SSH server")
	return s.Shutdown()
}

// Shutdown gracefully stops the server.
func (s *SSHServer) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return s.server.Shutdown(ctx)
}

// Addr returns the server's listen address string.
func (s *SSHServer) Addr() string {
	return s.config.Address
}
