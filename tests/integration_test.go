package tests

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/zkballot/api"
	"github.com/vocdoni/zkballot/api/client"
	"github.com/vocdoni/zkballot/storage"
	"github.com/vocdoni/zkballot/types"
	"go.vocdoni.io/dvote/log"
)

func init() {
	log.Init(log.LogLevelDebug, "stdout", nil)
}

func TestIntegration(t *testing.T) {
	c := qt.New(t)

	// Setup
	ctx := context.Background()
	apiSrv, owner := NewTestService(t, ctx)
	_, port := apiSrv.HostPort()
	cli, err := NewTestClient(port)
	c.Assert(err, qt.IsNil)

	var (
		root         types.HexBytes
		participants []*api.CensusParticipant
		voteID       types.HexBytes
		start        time.Time
	)
	nullifier := uint64(1001)

	c.Run("register candidates", func(c *qt.C) {
		id, err := cli.AddCandidate(owner, "alice")
		c.Assert(err, qt.IsNil)
		c.Assert(id, qt.Equals, 0)
		id, err = cli.AddCandidate(owner, "bob")
		c.Assert(err, qt.IsNil)
		c.Assert(id, qt.Equals, 1)

		// a stranger cannot register candidates
		stranger := NewTestSigner(t)
		_, err = cli.AddCandidate(stranger, "mallory")
		c.Assert(err, qt.IsNotNil)

		info, err := cli.ElectionInfo()
		c.Assert(err, qt.IsNil)
		c.Assert(info.Candidates, qt.HasLen, 2)
	})

	c.Run("create census and start voting", func(c *qt.C) {
		root, participants = createCensus(c, cli, 10)

		proof := generateCensusProof(c, cli, root, participants[0].Key)
		c.Assert(proof, qt.Not(qt.IsNil))
		c.Assert(proof.Siblings, qt.IsNotNil)
		c.Assert(proof.Key.String(), qt.Equals, participants[0].Key.String())

		start = time.Now().Add(2 * time.Second)
		end := start.Add(8 * 24 * time.Hour)
		c.Assert(cli.StartVoting(owner, start, end, root), qt.IsNil)

		info, err := cli.ElectionInfo()
		c.Assert(err, qt.IsNil)
		c.Assert(info.Status, qt.Equals, types.ElectionStatusVoting)
		c.Assert(info.CensusRoot.String(), qt.Equals, root.String())
	})

	c.Run("cast a vote", func(c *qt.C) {
		// wait for the voting window to open
		time.Sleep(time.Until(start.Add(time.Second)))

		proof := generateCensusProof(c, cli, root, participants[0].Key)
		vote := newBallot(1, nullifier, proof)
		voteID, err = cli.CastVote(vote)
		c.Assert(err, qt.IsNil)
		c.Assert(voteID, qt.Not(qt.HasLen), 0)

		count, err := cli.CandidateVotes(1)
		c.Assert(err, qt.IsNil)
		c.Assert(count, qt.Equals, uint64(1))
		total, err := cli.VotesCount()
		c.Assert(err, qt.IsNil)
		c.Assert(total, qt.Equals, uint64(1))
	})

	c.Run("reject a duplicate ballot", func(c *qt.C) {
		proof := generateCensusProof(c, cli, root, participants[1].Key)
		vote := newBallot(0, nullifier, proof)
		body, status, err := cli.Request(client.HTTPPOST, vote, nil, api.VotesEndpoint)
		c.Assert(err, qt.IsNil)
		c.Assert(status, qt.Equals, http.StatusConflict, qt.Commentf("body: %s", body))

		total, err := cli.VotesCount()
		c.Assert(err, qt.IsNil)
		c.Assert(total, qt.Equals, uint64(1))
	})

	c.Run("audit the stored ballot", func(c *qt.C) {
		nullifierHex := types.HexBytes(new(big.Int).SetUint64(nullifier).Bytes())
		body, status, err := cli.Request(client.HTTPGET, nil, nil,
			api.VotesEndpoint, nullifierHex.String())
		c.Assert(err, qt.IsNil)
		c.Assert(status, qt.Equals, http.StatusOK)

		record := &storage.AdmittedBallot{}
		c.Assert(json.Unmarshal(body, record), qt.IsNil)
		c.Assert(record.CandidateID, qt.Equals, 1)
		c.Assert(record.VoteID.String(), qt.Equals, voteID.String())
		c.Assert(record.Nullifier.String(), qt.Equals, nullifierHex.String())
	})

	c.Run("finalize is gated by the window", func(c *qt.C) {
		// the window is still open, finalization must fail
		c.Assert(cli.Finalize(owner), qt.IsNotNil)

		info, err := cli.ElectionInfo()
		c.Assert(err, qt.IsNil)
		c.Assert(info.Status, qt.Equals, types.ElectionStatusVoting)
		c.Assert(info.TotalVotes, qt.Equals, uint64(1))
	})
}
