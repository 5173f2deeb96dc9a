package diagserver

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/synnergy-network/sto-engine/core/ledger"
	"github.com/synnergy-network/sto-engine/core/store"
)

// Server is the diagnostic HTTP server. Its handlers report on the store
// and ledger; the only writes they cause are GetOrCreate rows for unknown
// accounts or tokens and the cap table's RecomputeDirty refresh.
type Server struct {
	cfg Config
	log *logrus.Logger
	srv *http.Server
}

func New(cfg Config, st store.Store, lg *ledger.Ledger, log *logrus.Logger) *Server {
	if log == nil {
		log = logrus.StandardLogger()
	}
	ctrl := NewController(st, lg)

	r := mux.NewRouter()
	r.Use(requestLogger(log))
	r.HandleFunc("/healthz", ctrl.Healthz).Methods(http.MethodGet)
	r.HandleFunc("/accounts/{network}/{address}", ctrl.Account).Methods(http.MethodGet)
	r.HandleFunc("/scans/{network}/{token}", ctrl.Scan).Methods(http.MethodGet)
	r.HandleFunc("/scans/{network}/{token}/captable", ctrl.CapTable).Methods(http.MethodGet)

	return &Server{
		cfg: cfg,
		log: log,
		srv: &http.Server{Addr: ":" + cfg.Port, Handler: r},
	}
}

// ListenAndServe blocks until the server stops or errors.
func (s *Server) ListenAndServe() error {
	s.log.WithField("port", s.cfg.Port).Info("diagserver listening")
	return s.srv.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
