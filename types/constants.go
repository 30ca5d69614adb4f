package types

import "time"

const (
	// MaxCandidates is the maximum number of candidates an election may hold.
	MaxCandidates = 99
	// MinVotingPeriod is the minimum length of the voting window, enforced
	// when the window is created.
	MinVotingPeriod = 7 * 24 * time.Hour
	// MinVotePostingTime is the buffer before the end of the voting window
	// during which no more ballots are admitted.
	MinVotePostingTime = 24 * time.Hour

	// BallotChoiceSignalIndex is the position of the declared candidate
	// choice in the ballot proof public inputs.
	BallotChoiceSignalIndex = 0
	// BallotNullifierSignalIndex is the position of the nullifier in the
	// ballot proof public inputs.
	BallotNullifierSignalIndex = 1
	// BallotMinPubInputs is the minimum number of public inputs a ballot
	// proof must carry (choice and nullifier).
	BallotMinPubInputs = 2

	// CensusTreeMaxLevels is the maximum number of levels in the census
	// merkle tree.
	CensusTreeMaxLevels = 160
	// CensusKeyMaxLen is the maximum length of a census key in bytes.
	CensusKeyMaxLen = CensusTreeMaxLevels / 8
)
