package storage

import (
	"time"

	"github.com/vocdoni/zkballot/types"
)

// ElectionRecord is the persistent state of the election: lifecycle status,
// owner, voting window, census root and the candidate registry with its
// tallies.
type ElectionRecord struct {
	Owner      types.HexBytes       `json:"owner"      cbor:"0,keyasint"`
	Status     types.ElectionStatus `json:"status"     cbor:"1,keyasint"`
	StartTime  time.Time            `json:"startTime"  cbor:"2,keyasint,omitempty"`
	EndTime    time.Time            `json:"endTime"    cbor:"3,keyasint,omitempty"`
	CensusRoot types.HexBytes       `json:"censusRoot" cbor:"4,keyasint,omitempty"`
	Candidates []*types.Candidate   `json:"candidates" cbor:"5,keyasint,omitempty"`
}

// AdmittedBallot is a single entry of the admission ledger: the accepted
// proof bundle, the declared candidate and the admission timestamp, kept for
// later audit.
type AdmittedBallot struct {
	VoteID      types.HexBytes     `json:"voteId"      cbor:"0,keyasint"`
	Nullifier   types.HexBytes     `json:"nullifier"   cbor:"1,keyasint"`
	CandidateID int                `json:"candidateId" cbor:"2,keyasint"`
	Proof       *types.BallotProof `json:"proof"       cbor:"3,keyasint"`
	CensusProof *types.CensusProof `json:"censusProof" cbor:"4,keyasint,omitempty"`
	Timestamp   time.Time          `json:"timestamp"   cbor:"5,keyasint"`
}
