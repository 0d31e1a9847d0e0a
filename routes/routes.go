package routes

import (
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/openbracket/progression-engine/handlers"
)

func SetupRoutes(
	matchHandler *handlers.MatchHandler,
	bracketHandler *handlers.BracketHandler,
	wsHandler *handlers.WebSocketHandler,
) *chi.Mux {
	router := chi.NewRouter()

	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Route("/matches", func(r chi.Router) {
		r.Get("/{matchID}", matchHandler.GetMatch)
		r.Post("/{matchID}/result", matchHandler.SubmitResult)
	})

	router.Route("/tournaments/{tournamentID}", func(r chi.Router) {
		r.Get("/bracket", bracketHandler.GetBracket)
		r.Post("/knockout", bracketHandler.CreateKnockout)
		r.Post("/swiss", bracketHandler.CreateSwiss)
	})

	router.Get("/players/{playerID}/elo-history", matchHandler.GetPlayerEloHistory)
	router.Get("/ws/tournaments/{tournamentID}", wsHandler.ServeWs)

	return router
}
