package api

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/vocdoni/zkballot/types"
)

// ElectionInfo is the response to an election info request.
type ElectionInfo struct {
	Owner      types.HexBytes       `json:"owner"`
	Status     types.ElectionStatus `json:"status"`
	StartTime  int64                `json:"startTime,omitempty"`
	EndTime    int64                `json:"endTime,omitempty"`
	CensusRoot types.HexBytes       `json:"censusRoot,omitempty"`
	Candidates []CandidateInfo      `json:"candidates"`
	TotalVotes uint64               `json:"totalVotes"`
}

// CandidateInfo is a single entry of the candidate registry.
type CandidateInfo struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	VoteCount uint64 `json:"voteCount"`
}

// AddCandidate is the request to register a candidate. The signature must be
// produced by the election owner over CandidateMessage(Name).
type AddCandidate struct {
	Name      string         `json:"name"`
	Signature types.HexBytes `json:"signature"`
}

// AddCandidateResponse is the response to a candidate registration request.
type AddCandidateResponse struct {
	CandidateID int `json:"candidateId"`
}

// StartVoting is the request to open the voting window. Times are unix
// seconds. The signature must be produced by the election owner over
// StartVotingMessage(StartTime, EndTime, CensusRoot).
type StartVoting struct {
	StartTime  int64          `json:"startTime"`
	EndTime    int64          `json:"endTime"`
	CensusRoot types.HexBytes `json:"censusRoot"`
	Signature  types.HexBytes `json:"signature"`
}

// Finalize is the request to close the election. The signature must be
// produced by the election owner over FinalizeMessage().
type Finalize struct {
	Signature types.HexBytes `json:"signature"`
}

// Vote is the struct to represent a vote in the system. It will be provided
// by the user to cast a ballot for a candidate. The embedded proof is
// flattened into proofA, proofB, proofC and publicInputs fields.
type Vote struct {
	CandidateID int `json:"candidateId"`
	types.BallotProof
	CensusProof *types.CensusProof `json:"censusProof"`
}

// VoteResponse is the admission receipt returned on a successful vote.
type VoteResponse struct {
	VoteID types.HexBytes `json:"voteId"`
}

// VotesCount is the response to a total vote count request.
type VotesCount struct {
	Count uint64 `json:"count"`
}

// NewCensus is the response to a new census creation request.
type NewCensus struct {
	Census uuid.UUID `json:"census"`
}

// CensusRoot is the response to a census root request.
type CensusRoot struct {
	Root types.HexBytes `json:"root"`
}

// CensusParticipant is a participant in a census.
type CensusParticipant struct {
	Key    types.HexBytes `json:"key"`
	Weight *types.BigInt  `json:"weight,omitempty"`
}

// CensusParticipants is a list of participants in a census.
type CensusParticipants struct {
	Participants []*CensusParticipant `json:"participants"`
}

// CandidateMessage builds the payload the owner signs to register a
// candidate.
func CandidateMessage(name string) []byte {
	return []byte(fmt.Sprintf("addCandidate:%s", name))
}

// StartVotingMessage builds the payload the owner signs to open the voting
// window. Times are unix seconds.
func StartVotingMessage(start, end int64, censusRoot types.HexBytes) []byte {
	return []byte(fmt.Sprintf("startVoting:%d:%d:%s", start, end, censusRoot.String()))
}

// FinalizeMessage builds the payload the owner signs to close the election.
func FinalizeMessage() []byte {
	return []byte("finalizeElection")
}
