package client

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/vocdoni/zkballot/api"
	"github.com/vocdoni/zkballot/crypto/ethereum"
	"github.com/vocdoni/zkballot/types"
)

// ElectionInfo fetches the election record with its candidate registry.
func (c *HTTPclient) ElectionInfo() (*api.ElectionInfo, error) {
	info := &api.ElectionInfo{}
	if err := c.get(info, nil, api.ElectionEndpoint); err != nil {
		return nil, err
	}
	return info, nil
}

// AddCandidate registers a candidate, signing the request with the given
// owner key. It returns the assigned candidate index.
func (c *HTTPclient) AddCandidate(owner *ethereum.SignKeys, name string) (int, error) {
	signature, err := owner.SignEthereum(api.CandidateMessage(name))
	if err != nil {
		return 0, fmt.Errorf("could not sign candidate registration: %w", err)
	}
	res := &api.AddCandidateResponse{}
	if err := c.post(res, &api.AddCandidate{
		Name:      name,
		Signature: signature,
	}, api.CandidatesEndpoint); err != nil {
		return 0, err
	}
	return res.CandidateID, nil
}

// StartVoting opens the voting window, signing the request with the given
// owner key.
func (c *HTTPclient) StartVoting(owner *ethereum.SignKeys, start, end time.Time, censusRoot types.HexBytes) error {
	req := &api.StartVoting{
		StartTime:  start.Unix(),
		EndTime:    end.Unix(),
		CensusRoot: censusRoot,
	}
	var err error
	req.Signature, err = owner.SignEthereum(api.StartVotingMessage(req.StartTime, req.EndTime, censusRoot))
	if err != nil {
		return fmt.Errorf("could not sign voting window: %w", err)
	}
	return c.post(nil, req, api.StartVotingEndpoint)
}

// Finalize closes the election, signing the request with the given owner key.
func (c *HTTPclient) Finalize(owner *ethereum.SignKeys) error {
	signature, err := owner.SignEthereum(api.FinalizeMessage())
	if err != nil {
		return fmt.Errorf("could not sign finalization: %w", err)
	}
	return c.post(nil, &api.Finalize{Signature: signature}, api.FinalizeEndpoint)
}

// CastVote submits a ballot and returns the vote id receipt.
func (c *HTTPclient) CastVote(vote *api.Vote) (types.HexBytes, error) {
	res := &api.VoteResponse{}
	if err := c.post(res, vote, api.VotesEndpoint); err != nil {
		return nil, err
	}
	return res.VoteID, nil
}

// VotesCount fetches the total amount of admitted ballots.
func (c *HTTPclient) VotesCount() (uint64, error) {
	res := &api.VotesCount{}
	if err := c.get(res, nil, api.VotesCountEndpoint); err != nil {
		return 0, err
	}
	return res.Count, nil
}

// CandidateVotes fetches the tally of a single candidate.
func (c *HTTPclient) CandidateVotes(candidateID int) (uint64, error) {
	res := &api.VotesCount{}
	if err := c.get(res, nil, api.CandidatesEndpoint, fmt.Sprintf("%d", candidateID), "votes"); err != nil {
		return 0, err
	}
	return res.Count, nil
}

func (c *HTTPclient) get(response any, params []string, urlPath ...string) error {
	data, status, err := c.Request(HTTPGET, nil, params, urlPath...)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("%s: %d (%s)", errCodeNot200, status, data)
	}
	if response == nil {
		return nil
	}
	return json.Unmarshal(data, response)
}

func (c *HTTPclient) post(response, body any, urlPath ...string) error {
	data, status, err := c.Request(HTTPPOST, body, nil, urlPath...)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("%s: %d (%s)", errCodeNot200, status, data)
	}
	if response == nil {
		return nil
	}
	return json.Unmarshal(data, response)
}
