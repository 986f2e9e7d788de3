package web

import (
	"os"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/faceid/internal/web/handlers"
	"github.com/kozaktomas/faceid/internal/web/middleware"
	"github.com/kozaktomas/faceid/internal/web/static"
)

func (s *Server) setupRoutes() {
	a := s.app

	var notifier handlers.Dispatcher
	if a.Notifier != nil {
		notifier = a.Notifier
	}

	healthHandler := handlers.NewHealthHandler(a.Store, s.logger)
	recognizeHandler := handlers.NewRecognizeHandler(a.Recognizer, notifier, a.Config.Web.ReturnEmbedding, s.logger)
	identitiesHandler := handlers.NewIdentitiesHandler(a.Store, s.logger)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/health", healthHandler.Get)
		r.Get("/identities", identitiesHandler.List)
		r.Get("/identities/{id}", identitiesHandler.Get)

		r.Group(func(r chi.Router) {
			if s.limiter != nil {
				r.Use(middleware.RateLimit(s.limiter, time.Minute, s.logger))
			}

			r.Post("/recognize", recognizeHandler.Recognize)
			if a.Advisor != nil {
				r.Post("/ask", handlers.NewAskHandler(a.Advisor, s.logger).Ask)
			}
		})
	})

	// Front-end (the API is JSON only)
	if dir := a.Config.Web.StaticDir; dir != "" {
		s.router.Handle("/*", static.Handler(os.DirFS(dir)))
	} else {
		s.router.Handle("/*", static.Handler(nil))
	}
}
