package service

import (
	"context"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/zkballot/election"
	"github.com/vocdoni/zkballot/storage"
	"github.com/vocdoni/zkballot/types"
	"github.com/vocdoni/zkballot/zk"
	"go.vocdoni.io/dvote/db/metadb"
)

func TestAPIService(t *testing.T) {
	c := qt.New(t)

	// Setup storage and election
	store, err := storage.New(metadb.NewTest(t))
	c.Assert(err, qt.IsNil)
	elec, err := election.New(&election.Config{
		Owner:          common.HexToAddress("0x1111111111111111111111111111111111111111"),
		Storage:        store,
		BallotVerifier: zk.VerifierFunc(func(*types.BallotProof) error { return nil }),
	})
	c.Assert(err, qt.IsNil)

	// Create API service with a random available port
	apiService := NewAPI(elec, store, "127.0.0.1", 0) // Port 0 lets the OS choose an available port

	// Start service in background
	ctx := context.Background()

	err = apiService.Start(ctx)
	c.Assert(err, qt.IsNil)
	defer apiService.Stop()

	// Give the service time to start
	time.Sleep(time.Second)

	// Test starting an already running service
	err = apiService.Start(ctx)
	c.Assert(err, qt.ErrorMatches, "service already running")
}
