package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/zkballot/election"
	"github.com/vocdoni/zkballot/service"
	"github.com/vocdoni/zkballot/storage"
	"github.com/vocdoni/zkballot/zk"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/metadb"
	"go.vocdoni.io/dvote/log"
)

func main() {
	host := flag.String("host", "0.0.0.0", "API host address")
	port := flag.Int("port", 8080, "API port")
	dataDir := flag.String("dataDir", "./zkballot-data", "data directory")
	dbType := flag.String("dbType", db.TypePebble, "key-value database type")
	ownerHex := flag.String("owner", "", "ethereum address of the election owner")
	vkeyPath := flag.String("vkey", "", "path to the circom groth16 verification key JSON")
	logLevel := flag.String("logLevel", "info", "log level (debug, info, warn, error)")
	flag.Parse()

	log.Init(*logLevel, "stdout", nil)

	if *ownerHex == "" {
		log.Fatal("missing required flag: -owner")
	}
	if !common.IsHexAddress(*ownerHex) {
		log.Fatalf("invalid owner address %q", *ownerHex)
	}
	owner := common.HexToAddress(*ownerHex)

	if *vkeyPath == "" {
		log.Fatal("missing required flag: -vkey")
	}
	vkey, err := os.ReadFile(*vkeyPath)
	if err != nil {
		log.Fatalf("could not read verification key: %v", err)
	}
	verifier, err := zk.NewCircomVerifier(vkey)
	if err != nil {
		log.Fatalf("could not parse verification key: %v", err)
	}

	kv, err := metadb.New(*dbType, *dataDir)
	if err != nil {
		log.Fatalf("could not open database: %v", err)
	}
	store, err := storage.New(kv)
	if err != nil {
		log.Fatalf("could not initialize storage: %v", err)
	}

	elec, err := election.New(&election.Config{
		Owner:          owner,
		Storage:        store,
		BallotVerifier: verifier,
	})
	if err != nil {
		log.Fatalf("could not initialize election: %v", err)
	}

	srv := service.NewAPI(elec, store, *host, *port)
	if err := srv.Start(context.Background()); err != nil {
		log.Fatalf("could not start API service: %v", err)
	}
	log.Infow("election service running",
		"address", fmt.Sprintf("%s:%d", *host, *port),
		"owner", owner.Hex(),
		"status", elec.Status().String())

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down")
	srv.Stop()
}
