// Package server exposes the bot status, positions and backtest scores over
// HTTP, accepts explicit close and recompute requests, and serves the live
// event websocket.
package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rxtech-lab/argo-futures/internal/backtest"
	"github.com/rxtech-lab/argo-futures/internal/logger"
	"github.com/rxtech-lab/argo-futures/internal/types"
	"github.com/rxtech-lab/argo-futures/pkg/errors"
	"go.uber.org/zap"
)

// Controller is the part of the bot the server reads and drives. *bot.Bot satisfies it.
type Controller interface {
	Snapshot() types.BotSnapshot
	Positions() []types.Position
	History() []types.Position
	Backtests() []backtest.Entry
	ClosePosition(ctx context.Context, symbol string) (types.Position, error)
	TriggerBacktest() bool
}

// Server is the status HTTP server.
type Server struct {
	controller Controller
	events     http.Handler
	log        *logger.Logger

	router     *mux.Router
	httpServer *http.Server
	listener   net.Listener
}

type errorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code,omitempty"`
}

type positionsResponse struct {
	Open   []types.Position `json:"open"`
	Recent []types.Position `json:"recent"`
}

// New creates a server. events serves GET /ws and may be nil.
func New(controller Controller, events http.Handler, log *logger.Logger) *Server {
	s := &Server{
		controller: controller,
		events:     events,
		log:        log,
		router:     mux.NewRouter(),
		httpServer: nil,
		listener:   nil,
	}

	s.routes()

	return s
}

func (s *Server) routes() {
	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	s.router.HandleFunc("/positions", s.handlePositions).Methods(http.MethodGet)
	s.router.HandleFunc("/positions/{symbol}/close", s.handleClose).Methods(http.MethodPost)
	s.router.HandleFunc("/backtests", s.handleBacktests).Methods(http.MethodGet)
	s.router.HandleFunc("/backtests/recompute", s.handleRecompute).Methods(http.MethodPost)

	if s.events != nil {
		s.router.Handle("/ws", s.events)
	}
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens on address and serves in the background. An empty address picks a free port.
func (s *Server) Start(address string) error {
	if address == "" {
		address = ":0"
	}

	listener, err := net.Listen("tcp", address)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeServerFailed, err, "failed to listen on %s", address)
	}

	s.listener = listener
	s.httpServer = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.log.Error("Status server stopped", zap.Error(err))
		}
	}()

	s.log.Info("Status server listening", zap.String("address", listener.Addr().String()))

	return nil
}

// Address returns the listening address.
func (s *Server) Address() string {
	if s.listener == nil {
		return ""
	}

	return s.listener.Addr().String()
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return errors.Wrap(errors.ErrCodeServerFailed, "failed to stop status server", err)
	}

	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.controller.Snapshot())
}

func (s *Server) handlePositions(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, positionsResponse{
		Open:   nonNil(s.controller.Positions()),
		Recent: nonNil(s.controller.History()),
	})
}

func (s *Server) handleBacktests(w http.ResponseWriter, _ *http.Request) {
	entries := s.controller.Backtests()
	if entries == nil {
		entries = []backtest.Entry{}
	}

	s.writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleClose(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(mux.Vars(r)["symbol"])

	pos, err := s.controller.ClosePosition(r.Context(), symbol)
	if err != nil {
		s.log.Warn("Close request failed", zap.String("symbol", symbol), zap.Error(err))
		s.writeError(w, err)

		return
	}

	s.writeJSON(w, http.StatusOK, pos)
}

func (s *Server) handleRecompute(w http.ResponseWriter, _ *http.Request) {
	if !s.controller.TriggerBacktest() {
		s.writeJSON(w, http.StatusConflict, errorResponse{Error: "backtests are disabled", Code: 0})

		return
	}

	s.writeJSON(w, http.StatusAccepted, map[string]string{"status": "scheduled"})
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.HasCode(err, errors.ErrCodePositionNotFound):
		status = http.StatusNotFound
	case errors.IsRiskRejectedError(err):
		status = http.StatusConflict
	default:
		if _, ok := errors.AsExchangeError(err); ok {
			status = http.StatusBadGateway
		}
	}

	s.writeJSON(w, status, errorResponse{Error: err.Error(), Code: int(errors.GetCode(err))})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.log.Warn("Failed to encode response", zap.Error(err))
	}
}

func nonNil(positions []types.Position) []types.Position {
	if positions == nil {
		return []types.Position{}
	}

	return positions
}
