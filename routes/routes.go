package routes

import (
	"github.com/Dosada05/arena-engine/handlers"
	"github.com/Dosada05/arena-engine/middleware"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// SetupRoutes mounts the public and admin API surfaces. Reads are public and
// go through the reveal gate; writes that drive the competition are admin-only.
func SetupRoutes(
	router *chi.Mux,
	auth *middleware.Auth,
	authHandler *handlers.AuthHandler,
	eventHandler *handlers.EventHandler,
	teamHandler *handlers.TeamHandler,
	matchHandler *handlers.MatchHandler,
	webSocketHandler *handlers.WebSocketHandler,
) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	// Valid admin tokens mark the context so reads skip the reveal gate.
	router.Use(auth.Annotate)

	router.Post("/auth/login", authHandler.LoginHandler)

	router.Route("/events", func(r chi.Router) {
		r.Get("/", eventHandler.ListHandler)
		r.Get("/{eventID}", eventHandler.GetByIDHandler)
		r.Get("/{eventID}/phase", eventHandler.PhaseHandler)
		r.Get("/{eventID}/standings", eventHandler.StandingsHandler)
		r.Get("/{eventID}/teams", teamHandler.ListByEventHandler)
		r.Get("/{eventID}/matches", matchHandler.ListPhaseHandler)
		r.Get("/{eventID}/queue-matches", matchHandler.ListRecentQueueHandler)

		// Open registration; the service closes it once teams are locked.
		r.Post("/{eventID}/teams", teamHandler.CreateHandler)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAdmin)

			r.Post("/", eventHandler.CreateHandler)
			r.Post("/{eventID}/lock", eventHandler.LockTeamsHandler)
			r.Post("/{eventID}/queue", eventHandler.EnterQueueingHandler)
			r.Post("/{eventID}/swiss", eventHandler.AdvanceToSwissHandler)
			r.Post("/{eventID}/swiss/next-round", eventHandler.AdvanceRoundHandler)
			r.Post("/{eventID}/bracket", eventHandler.BuildBracketHandler)
			r.Post("/{eventID}/finish", eventHandler.FinishHandler)
			r.Post("/{eventID}/reveal", matchHandler.RevealAllHandler)
		})
	})

	router.Route("/teams", func(r chi.Router) {
		r.Get("/{teamID}", teamHandler.GetByIDHandler)
		r.Get("/{teamID}/matches", matchHandler.ListForTeamHandler)
		r.Post("/{teamID}/ready", teamHandler.MarkReadyHandler)
		r.Put("/{teamID}/logo", teamHandler.UploadLogoHandler)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAdmin)
			r.Delete("/{teamID}", teamHandler.WithdrawHandler)
		})
	})

	router.Route("/matches", func(r chi.Router) {
		r.Get("/{matchID}", matchHandler.GetByIDHandler)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAdmin)
			r.Post("/{matchID}/start", matchHandler.StartHandler)
			r.Post("/{matchID}/result", matchHandler.ReportResultHandler)
			r.Post("/{matchID}/reveal", matchHandler.RevealHandler)
		})
	})

	router.Get("/ws/events/{eventID}", webSocketHandler.ServeWs)
}
