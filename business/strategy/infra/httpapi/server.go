// Package httpapi exposes the strategy service over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/fd1az/dma-strategies/internal/apperror"
	"github.com/fd1az/dma-strategies/internal/logger"
)

const (
	requestLimit   = 1 << 20
	requestTimeout = 30 * time.Second
)

// Server serves strategy builds and position reads.
type Server struct {
	port       int
	dispatcher *Dispatcher
	log        logger.LoggerInterface
	server     *http.Server
}

// NewServer creates a Server listening on port.
func NewServer(port int, d *Dispatcher, log logger.LoggerInterface) *Server {
	return &Server{port: port, dispatcher: d, log: log}
}

// Router returns the HTTP routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))

	r.Route("/v1", func(r chi.Router) {
		r.Post("/strategies/{protocol}/{action}", s.handleStrategy)
		r.Get("/positions/{protocol}", s.handlePosition)
	})
	return r
}

// Start starts serving in the background.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error(context.Background(), "strategy api stopped", "error", err)
		}
	}()

	s.log.Info(context.Background(), "strategy api listening", "port", s.port)
	return nil
}

// Stop gracefully stops the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) handleStrategy(w http.ResponseWriter, r *http.Request) {
	var req Request
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	res, err := s.dispatcher.Dispatch(r.Context(), chi.URLParam(r, "protocol"), chi.URLParam(r, "action"), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, NewResponse(res))
}

func (s *Server) handlePosition(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := Request{
		CollateralToken: q.Get("collateral"),
		DebtToken:       q.Get("debt"),
		Proxy:           q.Get("proxy"),
		MarketID:        q.Get("marketId"),
	}
	if v := q.Get("eModeCategory"); v != "" {
		var id uint8
		if _, err := fmt.Sscanf(v, "%d", &id); err != nil {
			s.writeError(w, r, apperror.Validation(apperror.CodeInvalidFormat, "eModeCategory must be a number"))
			return
		}
		req.EModeCategory = id
	}

	view, err := s.dispatcher.View(r.Context(), chi.URLParam(r, "protocol"), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, NewViewResponse(view))
}

func decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, requestLimit))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apperror.Validation(apperror.CodeInvalidFormat, fmt.Sprintf("decode request: %v", err))
	}
	return nil
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	appErr := apperror.Wrap(err, apperror.CodeInternalError, "")
	if id := logger.OtelTraceID(r.Context()); id != "" {
		appErr.WithTraceID(id)
	}
	if appErr.StatusCode >= http.StatusInternalServerError {
		s.log.Error(r.Context(), "strategy request failed",
			"path", r.URL.Path, "request_id", middleware.GetReqID(r.Context()), "error", appErr)
	}
	writeJSON(w, appErr.StatusCode, appErr.ToResponse())
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
