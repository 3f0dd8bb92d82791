package metrics

import (
	"context"
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tigerroll/scorin/pkg/assess/support/util/logger"
)

// Server serves the /metrics exposition endpoint.
type Server struct {
	server   *http.Server
	listener net.Listener
}

// NewServer creates an exposition server for the recorder's registry on
// addr.
func NewServer(addr string, recorder *PrometheusRecorder) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(recorder.GetRegistry(), promhttp.HandlerOpts{}))
	return &Server{server: &http.Server{Addr: addr, Handler: mux}}
}

// Start binds the listener and serves in the background.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return err
	}
	s.listener = listener
	logger.Infof("Metrics endpoint listening on %s/metrics.", listener.Addr())

	go func() {
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			logger.Errorf("Metrics server stopped: %v", err)
		}
	}()
	return nil
}

// Stop shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
