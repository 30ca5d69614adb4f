package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/vocdoni/zkballot/storage"
	"github.com/vocdoni/zkballot/types"
	"go.vocdoni.io/dvote/log"
)

// newVote runs the admission path for a ballot and returns its receipt
// POST /votes
func (a *API) newVote(w http.ResponseWriter, r *http.Request) {
	vote := &Vote{}
	if err := json.NewDecoder(r.Body).Decode(vote); err != nil {
		ErrMalformedBody.Withf("could not decode request body: %v", err).Write(w)
		return
	}
	voteID, err := a.election.Vote(vote.CandidateID, &vote.BallotProof, vote.CensusProof)
	if err != nil {
		electionError(err).Write(w)
		return
	}
	log.Infow("vote admitted", "candidateId", vote.CandidateID, "voteId", voteID.String())
	httpWriteJSON(w, &VoteResponse{VoteID: voteID})
}

// votesCount returns the total amount of admitted ballots
// GET /votes/count
func (a *API) votesCount(w http.ResponseWriter, r *http.Request) {
	httpWriteJSON(w, &VotesCount{Count: a.election.TotalVoteCount()})
}

// ballot returns the stored ballot record admitted under a nullifier
// GET /votes/{nullifier}
func (a *API) ballot(w http.ResponseWriter, r *http.Request) {
	nullifier := types.HexBytes{}
	if err := nullifier.FromString(chi.URLParam(r, NullifierURLParam)); err != nil {
		ErrMalformedBody.Withf("could not decode nullifier: %v", err).Write(w)
		return
	}
	record, err := a.election.AdmittedBallot(nullifier)
	if err != nil {
		if err == storage.ErrNotFound {
			ErrBallotNotFound.Write(w)
			return
		}
		ErrGenericInternalServerError.WithErr(err).Write(w)
		return
	}
	httpWriteJSON(w, record)
}
