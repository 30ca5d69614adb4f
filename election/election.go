// Package election implements the admission-control state machine of the
// bulletin-board election: the lifecycle transitions, the owner gate on
// administrative operations, the candidate registry and the vote admission
// path composing the ballot and census verification capabilities with the
// append-only admission ledger.
//
// The lifecycle is monotonic: preVoting -> voting -> postVoting -> finished.
// postVoting is derived from the clock once the window has elapsed and is
// never persisted. All public operations are serialized by an internal
// mutex and are all-or-nothing: a failing precondition leaves no partial
// mutation behind.
package election

import (
	"bytes"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/iden3/go-iden3-crypto/poseidon"
	"github.com/vocdoni/zkballot/storage"
	"github.com/vocdoni/zkballot/storage/census"
	"github.com/vocdoni/zkballot/types"
	"github.com/vocdoni/zkballot/zk"
	"go.vocdoni.io/dvote/log"
)

// Config is the election configuration.
type Config struct {
	// Owner is the only identity allowed to perform administrative
	// operations.
	Owner common.Address
	// Storage persists the election record and the admission ledger.
	Storage *storage.Storage
	// BallotVerifier is the external ballot proof verification capability.
	BallotVerifier zk.BallotVerifier
	// Now supplies the current time; defaults to time.Now. The value is
	// treated as untrusted but monotonic.
	Now func() time.Time
}

// Election is the single election instance of the deployment.
type Election struct {
	mu       sync.Mutex
	record   *storage.ElectionRecord
	owner    common.Address
	storage  *storage.Storage
	verifier zk.BallotVerifier
	now      func() time.Time
}

// New creates the election, loading its persisted state if present. If the
// storage already holds an election owned by a different identity, it fails.
func New(cfg *Config) (*Election, error) {
	if cfg == nil {
		return nil, fmt.Errorf("missing election configuration")
	}
	if cfg.Storage == nil {
		return nil, fmt.Errorf("missing storage instance")
	}
	if cfg.BallotVerifier == nil {
		return nil, fmt.Errorf("missing ballot verifier")
	}
	if cfg.Owner == (common.Address{}) {
		return nil, fmt.Errorf("missing owner address")
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	e := &Election{
		owner:    cfg.Owner,
		storage:  cfg.Storage,
		verifier: cfg.BallotVerifier,
		now:      now,
	}
	record, err := cfg.Storage.Election()
	switch err {
	case nil:
		if !bytes.Equal(record.Owner, cfg.Owner.Bytes()) {
			return nil, fmt.Errorf("election already initialized with owner %s", record.Owner)
		}
		e.record = record
	case storage.ErrNotFound:
		e.record = &storage.ElectionRecord{
			Owner:  cfg.Owner.Bytes(),
			Status: types.ElectionStatusPreVoting,
		}
		if err := cfg.Storage.SetElection(e.record); err != nil {
			return nil, err
		}
		log.Infow("election created", "owner", cfg.Owner.Hex())
	default:
		return nil, err
	}
	return e, nil
}

// Owner returns the election owner address.
func (e *Election) Owner() common.Address {
	return e.owner
}

// Status returns the current lifecycle status. While the stored status is
// voting but the window has already elapsed, it reports postVoting.
func (e *Election) Status() types.ElectionStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status()
}

func (e *Election) status() types.ElectionStatus {
	if e.record.Status == types.ElectionStatusVoting && e.now().After(e.record.EndTime) {
		return types.ElectionStatusPostVoting
	}
	return e.record.Status
}

// Window returns the voting window bounds. Both are zero until StartVoting
// succeeds.
func (e *Election) Window() (time.Time, time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.record.StartTime, e.record.EndTime
}

// CensusRoot returns the census root the election was started with.
func (e *Election) CensusRoot() types.HexBytes {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append(types.HexBytes{}, e.record.CensusRoot...)
}

// Candidates returns a snapshot of the candidate registry.
func (e *Election) Candidates() []*types.Candidate {
	e.mu.Lock()
	defer e.mu.Unlock()
	candidates := make([]*types.Candidate, len(e.record.Candidates))
	for i, cand := range e.record.Candidates {
		c := *cand
		candidates[i] = &c
	}
	return candidates
}

// AddCandidate appends a candidate to the registry and returns its index.
// Owner only, preVoting only.
func (e *Election) AddCandidate(caller common.Address, name string) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if caller != e.owner {
		return 0, ErrNotOwner
	}
	if e.record.Status != types.ElectionStatusPreVoting {
		return 0, fmt.Errorf("%w: %s", ErrInvalidStatus, e.record.Status)
	}
	if name == "" {
		return 0, ErrEmptyCandidateName
	}
	if len(e.record.Candidates) >= types.MaxCandidates {
		return 0, ErrTooManyCandidates
	}
	e.record.Candidates = append(e.record.Candidates, &types.Candidate{Name: name})
	if err := e.storage.SetElection(e.record); err != nil {
		e.record.Candidates = e.record.Candidates[:len(e.record.Candidates)-1]
		return 0, err
	}
	id := len(e.record.Candidates) - 1
	log.Infow("candidate added", "id", id, "name", name)
	return id, nil
}

// StartVoting validates the window bounds, records them together with the
// census root and moves the election to voting. Owner only, preVoting only.
// The window must start strictly in the future and span at least
// types.MinVotingPeriod.
func (e *Election) StartVoting(caller common.Address, start, end time.Time, censusRoot types.HexBytes) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if caller != e.owner {
		return ErrNotOwner
	}
	if e.record.Status != types.ElectionStatusPreVoting {
		return fmt.Errorf("%w: %s", ErrInvalidStatus, e.record.Status)
	}
	now := e.now()
	if !start.After(now) {
		return fmt.Errorf("%w: start time is not in the future", ErrInvalidTimeWindow)
	}
	if !end.After(start) {
		return fmt.Errorf("%w: end time is not after start time", ErrInvalidTimeWindow)
	}
	if end.Sub(start) < types.MinVotingPeriod {
		return fmt.Errorf("%w: voting period is shorter than %s",
			ErrInvalidTimeWindow, types.MinVotingPeriod)
	}
	if len(censusRoot) == 0 {
		return fmt.Errorf("%w: missing census root", ErrInvalidCensusProof)
	}
	prevStatus, prevStart, prevEnd, prevRoot := e.record.Status,
		e.record.StartTime, e.record.EndTime, e.record.CensusRoot
	e.record.Status = types.ElectionStatusVoting
	e.record.StartTime = start
	e.record.EndTime = end
	e.record.CensusRoot = censusRoot
	if err := e.storage.SetElection(e.record); err != nil {
		e.record.Status = prevStatus
		e.record.StartTime = prevStart
		e.record.EndTime = prevEnd
		e.record.CensusRoot = prevRoot
		return err
	}
	log.Infow("voting started",
		"start", start,
		"end", end,
		"censusRoot", censusRoot.String(),
		"candidates", len(e.record.Candidates))
	return nil
}

// Finalize moves the election to its terminal status. Owner only, voting
// only, and only once the voting window has elapsed.
func (e *Election) Finalize(caller common.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if caller != e.owner {
		return ErrNotOwner
	}
	if e.record.Status != types.ElectionStatusVoting {
		return fmt.Errorf("%w: %s", ErrInvalidStatus, e.record.Status)
	}
	if !e.now().After(e.record.EndTime) {
		return fmt.Errorf("%w: window ends at %s", ErrVotingNotEnded, e.record.EndTime)
	}
	prev := e.record.Status
	e.record.Status = types.ElectionStatusFinished
	if err := e.storage.SetElection(e.record); err != nil {
		e.record.Status = prev
		return err
	}
	log.Infow("election finalized", "totalVotes", e.totalVoteCount())
	return nil
}

// Vote runs the admission path for a ballot: lifecycle and timing gates,
// shape validation, replay check against the nullifier, census membership
// verification, ballot proof verification and finally the atomic admission
// (ledger append plus tally increment). It returns the vote id, a poseidon
// digest of the choice and nullifier signals that acts as an audit receipt.
func (e *Election) Vote(candidateID int, proof *types.BallotProof, censusProof *types.CensusProof) (types.HexBytes, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.record.Status != types.ElectionStatusVoting {
		return nil, fmt.Errorf("%w: %s", ErrInvalidStatus, e.record.Status)
	}
	if candidateID < 0 || candidateID >= len(e.record.Candidates) {
		return nil, fmt.Errorf("%w: id %d", ErrCandidateNotFound, candidateID)
	}
	if err := proof.Valid(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedBallot, err)
	}
	if err := censusProof.Valid(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCensusProof, err)
	}
	now := e.now()
	if !now.After(e.record.StartTime) || !now.Before(e.record.EndTime.Add(-types.MinVotePostingTime)) {
		return nil, fmt.Errorf("%w: window is %s to %s", ErrOutsideVotingWindow,
			e.record.StartTime, e.record.EndTime.Add(-types.MinVotePostingTime))
	}
	nullifier := types.HexBytes(proof.Nullifier().Bytes())
	if len(nullifier) == 0 {
		return nil, fmt.Errorf("%w: zero nullifier", ErrMalformedBallot)
	}
	voted, err := e.storage.HasBallot(nullifier)
	if err != nil {
		return nil, err
	}
	if voted {
		return nil, ErrAlreadyVoted
	}
	if !bytes.Equal(censusProof.Root, e.record.CensusRoot) {
		return nil, fmt.Errorf("%w: root does not match the election census", ErrInvalidCensusProof)
	}
	if valid, err := census.VerifyProof(censusProof); err != nil || !valid {
		return nil, fmt.Errorf("%w: inclusion proof does not verify", ErrInvalidCensusProof)
	}
	if proof.Choice().MathBigInt().Cmp(big.NewInt(int64(candidateID))) != 0 {
		return nil, fmt.Errorf("%w: candidate %d, signal %s",
			ErrChoiceMismatch, candidateID, proof.Choice())
	}
	if err := e.verifier.Verify(proof); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBallotProofInvalid, err)
	}
	voteID, err := poseidon.Hash([]*big.Int{
		proof.Choice().MathBigInt(),
		proof.Nullifier().MathBigInt(),
	})
	if err != nil {
		return nil, fmt.Errorf("could not compute vote id: %w", err)
	}
	ballot := &storage.AdmittedBallot{
		VoteID:      voteID.Bytes(),
		Nullifier:   nullifier,
		CandidateID: candidateID,
		Proof:       proof,
		CensusProof: censusProof,
		Timestamp:   now,
	}
	e.record.Candidates[candidateID].VoteCount++
	if err := e.storage.AdmitBallot(ballot, e.record); err != nil {
		e.record.Candidates[candidateID].VoteCount--
		if err == storage.ErrBallotExists {
			return nil, ErrAlreadyVoted
		}
		return nil, err
	}
	log.Infow("ballot admitted",
		"candidateId", candidateID,
		"nullifier", nullifier.String(),
		"voteId", ballot.VoteID.String())
	return ballot.VoteID, nil
}

// VoteCount returns the tally of a single candidate.
func (e *Election) VoteCount(candidateID int) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if candidateID < 0 || candidateID >= len(e.record.Candidates) {
		return 0, fmt.Errorf("%w: id %d", ErrCandidateNotFound, candidateID)
	}
	return e.record.Candidates[candidateID].VoteCount, nil
}

// TotalVoteCount returns the number of admitted ballots, recomputed as the
// sum of all candidate tallies.
func (e *Election) TotalVoteCount() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.totalVoteCount()
}

func (e *Election) totalVoteCount() uint64 {
	var total uint64
	for _, cand := range e.record.Candidates {
		total += cand.VoteCount
	}
	return total
}

// AdmittedBallot returns the stored ballot record admitted under the given
// nullifier.
func (e *Election) AdmittedBallot(nullifier types.HexBytes) (*storage.AdmittedBallot, error) {
	return e.storage.Ballot(nullifier)
}
