// Package httpapi exposes staging, archives, contracts and integrity checks
// over HTTP.
package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/contractdocs/internal/logging"
	"github.com/dmitrijs2005/contractdocs/internal/server/services"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Services groups what the handlers call into.
type Services struct {
	Staging   *services.StagingService
	Archives  *services.ArchiveService
	Contracts *services.ContractService
	Integrity *services.IntegrityService
}

type HTTPServer struct {
	address string
	svc     Services
	maxBody int64
	logger  logging.Logger
}

// NewHTTPServer builds the server. maxUpload is the per-file ceiling; request
// bodies may exceed it by the multipart framing overhead only.
func NewHTTPServer(address string, l logging.Logger, svc Services, maxUpload int64) *HTTPServer {
	return &HTTPServer{
		address: address,
		svc:     svc,
		maxBody: maxUpload + multipartOverhead,
		logger:  l.With("module", "http_server"),
	}
}

// Routes returns the router, ready to be served or tested with httptest.
func (s *HTTPServer) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/health", s.health)

	r.Route("/api", func(api chi.Router) {
		api.Route("/staging/{sessionID}", func(st chi.Router) {
			st.Post("/files", s.stageFile)
			st.Get("/files", s.listStaged)
			st.Delete("/", s.clearSession)
		})

		api.Post("/archives", s.storeArchive)
		api.Get("/archives/{id}", s.getArchive)
		api.Get("/archives/{id}/content", s.archiveContent)

		api.Post("/contracts", s.createContract)
		api.Get("/contracts", s.listContracts)
		api.Get("/contracts/{id}", s.getContract)
		api.Post("/contracts/{id}/archives", s.attachArchive)
		api.Post("/contracts/{id}/attachments", s.uploadAttachment)
		api.Delete("/contracts/{id}/archives/{archiveID}", s.detachArchive)
		api.Post("/contracts/{id}/pdf", s.generatePDF)

		api.Get("/attachment-types", s.attachmentTypes)
		api.Get("/contract-types", s.contractTypes)
		api.Post("/integrity/validate", s.validatePDF)
	})
	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *HTTPServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(context.Background(), "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
