package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/develotters/wiretap/internal/logging"
)

// okBody is returned for every non-WebSocket request, whatever the method or path.
const okBody = "ok"

func (s *Server) newHTTPServer() *http.Server {
	return &http.Server{
		Handler:           s.routes(),
		ReadHeaderTimeout: s.config.ConnectTimeout,
		IdleTimeout:       s.config.ReadTimeout,
		ConnContext:       withConnID,
		ErrorLog:          zap.NewStdLog(logging.GetLogger()),
	}
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.HandleFunc("/ws", s.handleWebSocket)
	r.HandleFunc("/*", handleOK)
	// chi only routes the methods it knows; everything else lands here
	r.MethodNotAllowed(handleOK)

	return r
}

func (s *Server) serveHTTP() error {
	err := s.httpServer.Serve(s.listener)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func handleOK(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(okBody))
}

// requestLogger logs each request once the handler returns.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 && websocket.IsWebSocketUpgrade(r) {
			// the upgrade response is written on the hijacked conn
			status = http.StatusSwitchingProtocols
		}
		logging.LogHTTPRequest(r.RemoteAddr, r.Method, r.URL.Path, status, ww.BytesWritten(),
			zap.String("conn_id", connIDFrom(r.Context())),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
}
