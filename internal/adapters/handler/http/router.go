package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type RouterConfig struct {
	JWTSecret      []byte
	AllowedOrigins []string
	Metrics        http.Handler
}

func NewHandler(cfg RouterConfig, electionHandler *ElectionHandler, voteHandler *VoteHandler, resultHandler *ResultHandler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	if len(cfg.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(Authenticate(cfg.JWTSecret))

		r.Route("/elections", func(r chi.Router) {
			r.Get("/", electionHandler.ListElections)
			r.Post("/", electionHandler.CreateElection)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", electionHandler.GetElection)
				r.Get("/status", electionHandler.GetElectionStatus)
				r.Post("/start", electionHandler.StartElection)
				r.Post("/end", electionHandler.EndElection)
				r.Post("/positions", electionHandler.AddPosition)

				r.Post("/votes", voteHandler.CastVote)
				r.Post("/ballots", voteHandler.CastBallot)
				r.Get("/my-votes", voteHandler.MyVotes)

				r.Get("/results", resultHandler.ElectionResults)
			})
		})

		r.Route("/positions/{id}", func(r chi.Router) {
			r.Delete("/", electionHandler.RemovePosition)
			r.Post("/candidates", electionHandler.AddCandidate)
			r.Get("/tally", resultHandler.PositionTally)
		})

		r.Delete("/candidates/{id}", electionHandler.RemoveCandidate)
	})

	return r
}
