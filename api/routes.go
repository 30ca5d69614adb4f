package api

const (
	// PingEndpoint is the endpoint for checking the API status
	PingEndpoint = "/ping"
	// ElectionEndpoint is the endpoint to get the election info
	ElectionEndpoint = "/election"
	// CandidatesEndpoint is the endpoint for registering and listing
	// candidates
	CandidatesEndpoint = "/election/candidates"
	// CandidateVotesEndpoint is the endpoint to get a single candidate tally
	CandidateURLParam      = "candidateId"
	CandidateVotesEndpoint = "/election/candidates/{" + CandidateURLParam + "}/votes"
	// StartVotingEndpoint is the endpoint for opening the voting window
	StartVotingEndpoint = "/election/start"
	// FinalizeEndpoint is the endpoint for closing the election
	FinalizeEndpoint = "/election/finalize"
	// VotesEndpoint is the endpoint for submitting a vote
	VotesEndpoint = "/votes"
	// VotesCountEndpoint is the endpoint to get the total amount of
	// admitted ballots
	VotesCountEndpoint = "/votes/count"
	// BallotEndpoint is the endpoint to audit a stored ballot record by the
	// nullifier it was admitted under
	NullifierURLParam = "nullifier"
	BallotEndpoint    = "/votes/{" + NullifierURLParam + "}"
	// CensusesEndpoint is the endpoint for creating and deleting censuses
	CensusesEndpoint = "/censuses"
	// CensusParticipantsEndpoint is the endpoint for adding and listing
	// census participants
	CensusParticipantsEndpoint = "/censuses/participants"
	// CensusRootEndpoint is the endpoint to get the census merkle root
	CensusRootEndpoint = "/censuses/root"
	// CensusSizeEndpoint is the endpoint to get the census size
	CensusSizeEndpoint = "/censuses/size"
	// CensusProofEndpoint is the endpoint to get a census inclusion proof
	CensusProofEndpoint = "/censuses/proof"
)
