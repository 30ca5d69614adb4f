package types

import "fmt"

// ElectionStatus is the lifecycle status of the election. It is monotonically
// non-decreasing: PreVoting -> Voting -> PostVoting -> Finished.
type ElectionStatus uint8

const (
	// ElectionStatusPreVoting is the initial status, while the owner is
	// still registering candidates.
	ElectionStatusPreVoting ElectionStatus = iota
	// ElectionStatusVoting is the status between the opening of the voting
	// window and its finalization.
	ElectionStatusVoting
	// ElectionStatusPostVoting is reported once the voting window has
	// elapsed but the owner has not yet finalized the election. It is
	// derived from the clock, never persisted.
	ElectionStatusPostVoting
	// ElectionStatusFinished is the terminal status.
	ElectionStatusFinished
)

// String returns a human readable representation of the status.
func (s ElectionStatus) String() string {
	switch s {
	case ElectionStatusPreVoting:
		return "preVoting"
	case ElectionStatusVoting:
		return "voting"
	case ElectionStatusPostVoting:
		return "postVoting"
	case ElectionStatusFinished:
		return "finished"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(s))
	}
}

// MarshalText implements the encoding.TextMarshaler interface, so the status
// encodes as a string in JSON.
func (s ElectionStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements the encoding.TextUnmarshaler interface.
func (s *ElectionStatus) UnmarshalText(data []byte) error {
	for _, st := range []ElectionStatus{
		ElectionStatusPreVoting,
		ElectionStatusVoting,
		ElectionStatusPostVoting,
		ElectionStatusFinished,
	} {
		if st.String() == string(data) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown election status: %q", data)
}

// Candidate is a single election choice. Candidates are identified by their
// position in the registration order, which is stable for the lifetime of the
// election.
type Candidate struct {
	Name      string `json:"name"      cbor:"0,keyasint"`
	VoteCount uint64 `json:"voteCount" cbor:"1,keyasint"`
}
