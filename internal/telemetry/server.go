package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	channerics "github.com/niceyeti/channerics/channels"
	"golang.org/x/sync/errgroup"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 1 * time.Second
	// Maximum message size allowed from peer.
	maxMessageSize = 512
	// Send pings to peer with this period.
	pingPeriod = 5 * time.Second
	// Number of lost pongs tolerated before the peer is considered gone.
	pongWait = pingPeriod * 4
	// Time allowed for in-flight requests on shutdown.
	shutdownTimeout = 5 * time.Second
	// Events buffered per websocket client.
	clientBuffer = 256
)

// ErrPongDeadlineExceeded is returned when a websocket peer stops answering pings.
var ErrPongDeadlineExceeded = errors.New("telemetry: client disconnect, pong deadline exceeded")

var upgrader = websocket.Upgrader{}

// Server exposes a Hub over HTTP:
//
//	GET /healthz   liveness and counters
//	GET /episodes  recent events as JSON (?limit=N)
//	GET /ws        live event stream
type Server struct {
	addr   string
	hub    *Hub
	logger *log.Logger
	router *mux.Router
}

// NewServer creates a server for hub listening on addr.
func NewServer(addr string, hub *Hub, logger *log.Logger) *Server {
	s := &Server{
		addr:   addr,
		hub:    hub,
		logger: logger,
		router: mux.NewRouter(),
	}
	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/episodes", s.handleEpisodes).Methods(http.MethodGet)
	s.router.HandleFunc("/ws", s.handleWebsocket)
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Telemetry server listening", "addr", s.addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("telemetry: serve: %w", err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("telemetry: shutdown: %w", err)
	}
	s.logger.Info("Telemetry server stopped")
	return nil
}

type healthResponse struct {
	Status      string `json:"status"`
	Subscribers int    `json:"subscribers"`
	Published   int    `json:"published"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, healthResponse{
		Status:      "ok",
		Subscribers: s.hub.Count(),
		Published:   s.hub.Published(),
	})
}

func (s *Server) handleEpisodes(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}
	writeJSON(w, s.hub.Recent(limit))
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// handleWebsocket replays the history, then streams live events until the
// peer leaves or the request context ends.
func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("Websocket upgrade failed", "remote", r.RemoteAddr, "err", err)
		return
	}
	defer ws.Close()

	sub, history := s.hub.Subscribe(clientBuffer)
	defer s.hub.Unsubscribe(sub)

	s.logger.Debug("Websocket client connected", "remote", r.RemoteAddr)

	group, ctx := errgroup.WithContext(r.Context())
	group.Go(func() error {
		return readMessages(ws)
	})
	group.Go(func() error {
		return pingPong(ctx, ws)
	})
	group.Go(func() error {
		return publish(ctx, ws, sub, history)
	})
	group.Go(func() error {
		// Unblocks readMessages once any pump stops or the server shuts down.
		<-ctx.Done()
		_ = ws.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
		_ = ws.Close()
		return nil
	})

	if err := group.Wait(); err != nil && isError(err) {
		s.logger.Warn("Websocket client error", "remote", r.RemoteAddr, "err", err)
	}
	s.logger.Debug("Websocket client disconnected", "remote", r.RemoteAddr)
}

// readMessages drains the peer so control frames are processed.
// Any read error is permanent.
func readMessages(ws *websocket.Conn) error {
	ws.SetReadLimit(maxMessageSize)
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			return err
		}
	}
}

// pingPong checks peer liveness. readMessages must be running for the
// pong handler to fire.
func pingPong(ctx context.Context, ws *websocket.Conn) error {
	pong := make(chan struct{}, 1)
	ws.SetPongHandler(func(string) error {
		select {
		case pong <- struct{}{}:
		default:
		}
		return nil
	})

	pinger := channerics.NewTicker(ctx.Done(), pingPeriod)
	lastPong := time.Now()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-pinger:
			if time.Since(lastPong) > pongWait {
				return ErrPongDeadlineExceeded
			}
			if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return fmt.Errorf("telemetry: ping failed: %w", err)
			}
		case <-pong:
			lastPong = time.Now()
		}
	}
}

func publish(ctx context.Context, ws *websocket.Conn, sub *Subscriber, history []Event) error {
	write := func(evt Event) error {
		if err := ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
			return fmt.Errorf("telemetry: failed to set deadline: %w", err)
		}
		return ws.WriteJSON(evt)
	}

	for _, evt := range history {
		if err := write(evt); err != nil {
			return err
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-sub.Done():
			return nil
		case evt := <-sub.Events():
			if err := write(evt); err != nil {
				return err
			}
		}
	}
}

func isError(err error) bool {
	if errors.Is(err, ErrPongDeadlineExceeded) {
		return true
	}
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		return websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway)
	}
	return false
}
