package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/SmithaBalakrishna/AI-Doctor-Voicebot/pkg/core/config"
	"github.com/SmithaBalakrishna/AI-Doctor-Voicebot/pkg/gateway/handlers"
	"github.com/SmithaBalakrishna/AI-Doctor-Voicebot/pkg/gateway/metrics"
	"github.com/SmithaBalakrishna/AI-Doctor-Voicebot/pkg/gateway/mw"
)

// Version is reported by /healthz and stamped on every response.
const Version = "0.1.0"

type Server struct {
	cfg     config.Config
	logger  *slog.Logger
	mux     *http.ServeMux
	metrics *metrics.Metrics
	started time.Time
}

func New(cfg config.Config, pipeline handlers.Consulter, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		cfg:     cfg,
		logger:  logger,
		mux:     http.NewServeMux(),
		metrics: metrics.New("voicebot"),
		started: time.Now(),
	}

	s.routes(pipeline)
	return s
}

func (s *Server) routes(pipeline handlers.Consulter) {
	s.mux.Handle("/healthz", handlers.HealthHandler{Version: Version, Started: s.started})
	s.mux.Handle("/metrics", s.metrics.Handler())

	s.mux.Handle("/v1/consultations", handlers.ConsultationsHandler{
		Config:   s.cfg,
		Pipeline: pipeline,
		Metrics:  s.metrics,
	})
	s.mux.Handle("/v1/audio/", handlers.AudioHandler{Config: s.cfg})

	s.mux.Handle("/", handlers.NotFoundHandler{})
}

func (s *Server) Handler() http.Handler {
	var h http.Handler = s.mux
	h = mw.CORS(s.cfg, h)
	h = mw.ServiceVersion(Version, h)
	h = mw.Recover(s.logger, h)
	h = mw.AccessLog(s.logger, h)
	h = mw.RequestID(h)
	return h
}
