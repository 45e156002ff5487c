package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Server struct {
	srv *http.Server
}

// New mount навешивает прикладные маршруты (api, оплаты) на общий роутер.
func New(addr string, exposeMetrics bool, mount func(r *mux.Router)) *Server {
	return &Server{srv: &http.Server{
		Addr:              addr,
		Handler:           NewRouter(exposeMetrics, mount),
		ReadHeaderTimeout: 10 * time.Second,
	}}
}

func NewRouter(exposeMetrics bool, mount func(r *mux.Router)) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}).Methods(http.MethodGet)

	if exposeMetrics {
		r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	}
	if mount != nil {
		mount(r)
	}
	return r
}

func (s *Server) Start() error {
	return s.srv.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
