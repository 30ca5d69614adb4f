package election

import "fmt"

var (
	// ErrNotOwner is returned when an administrative operation is attempted
	// by an identity other than the election owner.
	ErrNotOwner = fmt.Errorf("caller is not the election owner")
	// ErrInvalidStatus is returned when an operation is invoked outside the
	// lifecycle status it requires.
	ErrInvalidStatus = fmt.Errorf("operation not allowed in the current election status")
	// ErrInvalidTimeWindow is returned by StartVoting when the window bounds
	// violate the minimum period rules.
	ErrInvalidTimeWindow = fmt.Errorf("invalid voting time window")
	// ErrVotingNotEnded is returned by Finalize while the voting window is
	// still open.
	ErrVotingNotEnded = fmt.Errorf("voting window has not ended yet")
	// ErrOutsideVotingWindow is returned when a ballot arrives before the
	// window opens or after the vote posting deadline.
	ErrOutsideVotingWindow = fmt.Errorf("current time is outside the vote admission window")
	// ErrEmptyCandidateName is returned when registering a candidate with an
	// empty name.
	ErrEmptyCandidateName = fmt.Errorf("candidate name is empty")
	// ErrTooManyCandidates is returned when the candidate registry is full.
	ErrTooManyCandidates = fmt.Errorf("maximum number of candidates reached")
	// ErrCandidateNotFound is returned when the candidate id is not a valid
	// registry index.
	ErrCandidateNotFound = fmt.Errorf("candidate not found")
	// ErrMalformedBallot is returned when the ballot proof shape is invalid.
	ErrMalformedBallot = fmt.Errorf("malformed ballot")
	// ErrChoiceMismatch is returned when the declared candidate does not
	// match the proof's public choice signal.
	ErrChoiceMismatch = fmt.Errorf("candidate id does not match the proof choice signal")
	// ErrInvalidCensusProof is returned when the census inclusion proof is
	// missing, malformed or does not verify against the election census root.
	ErrInvalidCensusProof = fmt.Errorf("invalid census proof")
	// ErrAlreadyVoted is returned when a ballot has already been admitted
	// under the same nullifier.
	ErrAlreadyVoted = fmt.Errorf("a ballot has already been admitted for this nullifier")
	// ErrBallotProofInvalid is returned when the ballot verifier rejects the
	// submitted proof.
	ErrBallotProofInvalid = fmt.Errorf("ballot proof verification failed")
)
