package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/vocdoni/zkballot/election"
	stg "github.com/vocdoni/zkballot/storage"
	"go.vocdoni.io/dvote/log"
)

// APIConfig type represents the configuration for the API HTTP server.
// It includes the host, port, the election instance and its storage.
type APIConfig struct {
	Host     string
	Port     int
	Election *election.Election
	Storage  *stg.Storage
}

// API type represents the API HTTP server exposing the election operations.
type API struct {
	router   *chi.Mux
	election *election.Election
	storage  *stg.Storage
}

// New creates a new API instance with the given configuration.
// It also initializes the router and starts the HTTP server.
func New(conf *APIConfig) (*API, error) {
	if conf == nil {
		return nil, fmt.Errorf("missing API configuration")
	}
	if conf.Election == nil {
		return nil, fmt.Errorf("missing election instance")
	}
	if conf.Storage == nil {
		return nil, fmt.Errorf("missing storage instance")
	}
	a := &API{
		election: conf.Election,
		storage:  conf.Storage,
	}

	// Initialize router
	a.initRouter()
	go func() {
		log.Infow("Starting API server", "host", conf.Host, "port", conf.Port)
		if err := http.ListenAndServe(fmt.Sprintf("%s:%d", conf.Host, conf.Port), a.router); err != nil {
			log.Fatalf("failed to start the API server: %v", err)
		}
	}()
	return a, nil
}

// Router returns the chi router for testing purposes
func (a *API) Router() *chi.Mux {
	return a.router
}

// registerHandlers registers all the API handlers.
func (a *API) registerHandlers() {
	log.Infow("register handler", "endpoint", PingEndpoint, "method", "GET")
	a.router.Get(PingEndpoint, func(w http.ResponseWriter, r *http.Request) {
		httpWriteOK(w)
	})
	log.Infow("register handler", "endpoint", ElectionEndpoint, "method", "GET")
	a.router.Get(ElectionEndpoint, a.electionInfo)
	log.Infow("register handler", "endpoint", CandidatesEndpoint, "method", "POST")
	a.router.Post(CandidatesEndpoint, a.addCandidate)
	log.Infow("register handler", "endpoint", CandidatesEndpoint, "method", "GET")
	a.router.Get(CandidatesEndpoint, a.candidates)
	log.Infow("register handler", "endpoint", CandidateVotesEndpoint, "method", "GET")
	a.router.Get(CandidateVotesEndpoint, a.candidateVotes)
	log.Infow("register handler", "endpoint", StartVotingEndpoint, "method", "POST")
	a.router.Post(StartVotingEndpoint, a.startVoting)
	log.Infow("register handler", "endpoint", FinalizeEndpoint, "method", "POST")
	a.router.Post(FinalizeEndpoint, a.finalize)
	log.Infow("register handler", "endpoint", VotesEndpoint, "method", "POST")
	a.router.Post(VotesEndpoint, a.newVote)
	log.Infow("register handler", "endpoint", VotesCountEndpoint, "method", "GET")
	a.router.Get(VotesCountEndpoint, a.votesCount)
	log.Infow("register handler", "endpoint", BallotEndpoint, "method", "GET")
	a.router.Get(BallotEndpoint, a.ballot)
	log.Infow("register handler", "endpoint", CensusesEndpoint, "method", "POST")
	a.router.Post(CensusesEndpoint, a.newCensus)
	log.Infow("register handler", "endpoint", CensusesEndpoint, "method", "DELETE")
	a.router.Delete(CensusesEndpoint, a.deleteCensus)
	log.Infow("register handler", "endpoint", CensusParticipantsEndpoint, "method", "POST")
	a.router.Post(CensusParticipantsEndpoint, a.addCensusParticipants)
	log.Infow("register handler", "endpoint", CensusParticipantsEndpoint, "method", "GET")
	a.router.Get(CensusParticipantsEndpoint, a.getCensusParticipants)
	log.Infow("register handler", "endpoint", CensusRootEndpoint, "method", "GET")
	a.router.Get(CensusRootEndpoint, a.getCensusRoot)
	log.Infow("register handler", "endpoint", CensusSizeEndpoint, "method", "GET")
	a.router.Get(CensusSizeEndpoint, a.getCensusSize)
	log.Infow("register handler", "endpoint", CensusProofEndpoint, "method", "GET")
	a.router.Get(CensusProofEndpoint, a.getCensusProof)
}

// initRouter creates the router with all the routes and middleware.
func (a *API) initRouter() {
	// Create the router with a basic middleware stack
	a.router = chi.NewRouter()
	a.router.Use(cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}).Handler)
	a.router.Use(middleware.Logger)
	a.router.Use(middleware.Recoverer)
	a.router.Use(middleware.Throttle(100))
	a.router.Use(middleware.ThrottleBacklog(5000, 40000, 60*time.Second))
	a.router.Use(middleware.Timeout(45 * time.Second))

	// Register the API handlers
	a.registerHandlers()
}
