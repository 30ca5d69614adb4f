package tests

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"github.com/google/uuid"
	"github.com/vocdoni/zkballot/api"
	"github.com/vocdoni/zkballot/api/client"
	"github.com/vocdoni/zkballot/crypto/ethereum"
	"github.com/vocdoni/zkballot/election"
	"github.com/vocdoni/zkballot/service"
	"github.com/vocdoni/zkballot/storage"
	"github.com/vocdoni/zkballot/types"
	"github.com/vocdoni/zkballot/util"
	"github.com/vocdoni/zkballot/zk"
	"go.vocdoni.io/dvote/db/metadb"
)

// NewTestService starts a full API service on a random port with an
// accept-all ballot verifier. It returns the service and the owner signer.
func NewTestService(t *testing.T, ctx context.Context) (*service.APIService, *ethereum.SignKeys) {
	c := qt.New(t)

	owner := NewTestSigner(t)
	store, err := storage.New(metadb.NewTest(t))
	c.Assert(err, qt.IsNil)

	elec, err := election.New(&election.Config{
		Owner:          owner.Address(),
		Storage:        store,
		BallotVerifier: zk.VerifierFunc(func(*types.BallotProof) error { return nil }),
	})
	c.Assert(err, qt.IsNil)

	tmpPort := util.RandomInt(40000, 60000)
	srv := service.NewAPI(elec, store, "127.0.0.1", tmpPort)
	c.Assert(srv.Start(ctx), qt.IsNil)

	// Wait for the HTTP server to start
	time.Sleep(500 * time.Millisecond)
	return srv, owner
}

// NewTestSigner creates and initializes a new ethereum signer for testing.
func NewTestSigner(t *testing.T) *ethereum.SignKeys {
	signer := ethereum.NewSignKeys()
	qt.Assert(t, signer.Generate(), qt.IsNil)
	return signer
}

// NewTestClient creates a new API client for testing.
func NewTestClient(port int) (*client.HTTPclient, error) {
	return client.New(fmt.Sprintf("http://127.0.0.1:%d", port))
}

// createCensus creates a census with size participants keyed by fresh
// ethereum addresses and returns its root together with the participants.
func createCensus(c *qt.C, cli *client.HTTPclient, size int) (types.HexBytes, []*api.CensusParticipant) {
	body, status, err := cli.Request(client.HTTPPOST, nil, nil, api.CensusesEndpoint)
	c.Assert(err, qt.IsNil)
	c.Assert(status, qt.Equals, 200)
	newCensus := &api.NewCensus{}
	c.Assert(json.Unmarshal(body, newCensus), qt.IsNil)
	c.Assert(newCensus.Census, qt.Not(qt.Equals), uuid.Nil)

	participants := make([]*api.CensusParticipant, size)
	for i := range participants {
		signer := ethereum.NewSignKeys()
		c.Assert(signer.Generate(), qt.IsNil)
		participants[i] = &api.CensusParticipant{
			Key:    signer.Address().Bytes(),
			Weight: new(types.BigInt).SetUint64(1),
		}
	}
	_, status, err = cli.Request(client.HTTPPOST,
		&api.CensusParticipants{Participants: participants},
		[]string{"id", newCensus.Census.String()},
		api.CensusParticipantsEndpoint)
	c.Assert(err, qt.IsNil)
	c.Assert(status, qt.Equals, 200)

	body, status, err = cli.Request(client.HTTPGET, nil,
		[]string{"id", newCensus.Census.String()},
		api.CensusRootEndpoint)
	c.Assert(err, qt.IsNil)
	c.Assert(status, qt.Equals, 200)
	root := &api.CensusRoot{}
	c.Assert(json.Unmarshal(body, root), qt.IsNil)
	c.Assert(root.Root, qt.Not(qt.HasLen), 0)

	return root.Root, participants
}

// generateCensusProof fetches an inclusion proof for the given key.
func generateCensusProof(c *qt.C, cli *client.HTTPclient, root, key types.HexBytes) *types.CensusProof {
	body, status, err := cli.Request(client.HTTPGET, nil,
		[]string{"root", root.String(), "key", key.String()},
		api.CensusProofEndpoint)
	c.Assert(err, qt.IsNil)
	c.Assert(status, qt.Equals, 200)
	proof := &types.CensusProof{}
	c.Assert(json.Unmarshal(body, proof), qt.IsNil)
	return proof
}

// newBallot builds a well-formed vote request for the given candidate. The
// proof points are placeholders accepted by the test verifier; the public
// inputs carry the choice and nullifier signals the admission path reads.
func newBallot(candidateID int, nullifier uint64, censusProof *types.CensusProof) *api.Vote {
	bi := func(v uint64) *types.BigInt { return new(types.BigInt).SetUint64(v) }
	return &api.Vote{
		CandidateID: candidateID,
		BallotProof: types.BallotProof{
			A: [2]*types.BigInt{bi(1), bi(2)},
			B: [2][2]*types.BigInt{
				{bi(3), bi(4)},
				{bi(5), bi(6)},
			},
			C:            [2]*types.BigInt{bi(7), bi(8)},
			PublicInputs: []*types.BigInt{bi(uint64(candidateID)), bi(nullifier)},
		},
		CensusProof: censusProof,
	}
}
