package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/vocdoni/zkballot/crypto/ethereum"
	"go.vocdoni.io/dvote/log"
)

// electionInfo returns the election record with its candidate registry
// GET /election
func (a *API) electionInfo(w http.ResponseWriter, r *http.Request) {
	info := &ElectionInfo{
		Owner:      a.election.Owner().Bytes(),
		Status:     a.election.Status(),
		CensusRoot: a.election.CensusRoot(),
		Candidates: a.candidateList(),
		TotalVotes: a.election.TotalVoteCount(),
	}
	start, end := a.election.Window()
	if !start.IsZero() {
		info.StartTime = start.Unix()
		info.EndTime = end.Unix()
	}
	httpWriteJSON(w, info)
}

// addCandidate registers a candidate in the election
// POST /election/candidates
func (a *API) addCandidate(w http.ResponseWriter, r *http.Request) {
	req := &AddCandidate{}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		ErrMalformedBody.Withf("could not decode request body: %v", err).Write(w)
		return
	}
	caller, err := ethereum.AddrFromSignature(CandidateMessage(req.Name), req.Signature)
	if err != nil {
		ErrInvalidSignature.Withf("could not extract address from signature: %v", err).Write(w)
		return
	}
	id, err := a.election.AddCandidate(caller, req.Name)
	if err != nil {
		electionError(err).Write(w)
		return
	}
	httpWriteJSON(w, &AddCandidateResponse{CandidateID: id})
}

// candidates lists the candidate registry with the current tallies
// GET /election/candidates
func (a *API) candidates(w http.ResponseWriter, r *http.Request) {
	httpWriteJSON(w, a.candidateList())
}

// candidateVotes returns the tally of a single candidate
// GET /election/candidates/{candidateId}/votes
func (a *API) candidateVotes(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, CandidateURLParam))
	if err != nil {
		ErrCandidateNotFound.Withf("malformed candidate id: %v", err).Write(w)
		return
	}
	count, err := a.election.VoteCount(id)
	if err != nil {
		electionError(err).Write(w)
		return
	}
	httpWriteJSON(w, &VotesCount{Count: count})
}

// startVoting opens the voting window
// POST /election/start
func (a *API) startVoting(w http.ResponseWriter, r *http.Request) {
	req := &StartVoting{}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		ErrMalformedBody.Withf("could not decode request body: %v", err).Write(w)
		return
	}
	msg := StartVotingMessage(req.StartTime, req.EndTime, req.CensusRoot)
	caller, err := ethereum.AddrFromSignature(msg, req.Signature)
	if err != nil {
		ErrInvalidSignature.Withf("could not extract address from signature: %v", err).Write(w)
		return
	}
	start := time.Unix(req.StartTime, 0)
	end := time.Unix(req.EndTime, 0)
	if err := a.election.StartVoting(caller, start, end, req.CensusRoot); err != nil {
		electionError(err).Write(w)
		return
	}
	log.Infow("voting window opened", "start", start, "end", end)
	httpWriteOK(w)
}

// finalize closes the election
// POST /election/finalize
func (a *API) finalize(w http.ResponseWriter, r *http.Request) {
	req := &Finalize{}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		ErrMalformedBody.Withf("could not decode request body: %v", err).Write(w)
		return
	}
	caller, err := ethereum.AddrFromSignature(FinalizeMessage(), req.Signature)
	if err != nil {
		ErrInvalidSignature.Withf("could not extract address from signature: %v", err).Write(w)
		return
	}
	if err := a.election.Finalize(caller); err != nil {
		electionError(err).Write(w)
		return
	}
	httpWriteOK(w)
}

func (a *API) candidateList() []CandidateInfo {
	candidates := a.election.Candidates()
	list := make([]CandidateInfo, len(candidates))
	for i, cand := range candidates {
		list[i] = CandidateInfo{
			ID:        i,
			Name:      cand.Name,
			VoteCount: cand.VoteCount,
		}
	}
	return list
}
