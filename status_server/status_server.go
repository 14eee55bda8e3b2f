package status_server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"voice-drive/command_interpreter"
	"voice-drive/drive_state"
)

const shutdownTimeout = 5 * time.Second

type serverImpl struct {
	state       StateReader
	interpreter command_interpreter.Interface
	dispatcher  Submitter
	router      *chi.Mux
	logger      *log.Logger
}

type Config struct {
	State       StateReader
	Interpreter command_interpreter.Interface
	Dispatcher  Submitter
	Logger      *log.Logger
}

func New(cfg *Config) (Interface, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	if cfg.State == nil {
		return nil, fmt.Errorf("state is nil")
	}

	if cfg.Interpreter == nil {
		return nil, fmt.Errorf("interpreter is nil")
	}

	if cfg.Dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is nil")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	s := &serverImpl{
		state:       cfg.State,
		interpreter: cfg.Interpreter,
		dispatcher:  cfg.Dispatcher,
		logger:      logger,
	}

	r := chi.NewRouter()
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/state", s.handleState)
	r.Post("/command", s.handleCommand)

	s.router = r

	return s, nil
}

func (s *serverImpl) Handler() http.Handler {
	return s.router
}

func (s *serverImpl) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errs := make(chan error, 1)

	go func() {
		s.logger.Info("http", "url", fmt.Sprintf("http://%s", addr))
		errs <- srv.ListenAndServe()
	}()

	select {
	case err := <-errs:
		return fmt.Errorf("status server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err := srv.Shutdown(shutdownCtx)
	if err != nil {
		return fmt.Errorf("shutting down status server: %w", err)
	}

	err = <-errs
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("status server: %w", err)
	}

	return nil
}

func (s *serverImpl) handleState(w http.ResponseWriter, r *http.Request) {
	current := s.state.Current()

	resp := StateResponse{State: current}
	if cmd, ok := drive_state.CommandFor(current); ok {
		resp.Command = cmd.String()
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *serverImpl) handleCommand(w http.ResponseWriter, r *http.Request) {
	var req CommandRequest

	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "malformed request body"})
		return
	}

	cmd, ok := s.interpreter.Interpret(req.Text)
	if !ok {
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{Error: "no command in text"})
		return
	}

	s.logger.Info("command over http", "command", cmd, "text", req.Text)

	s.dispatcher.Submit(cmd)

	writeJSON(w, http.StatusAccepted, CommandResponse{Command: cmd.String()})
}

func (s *serverImpl) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		defer func() {
			s.logger.Debug("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(body)
}
