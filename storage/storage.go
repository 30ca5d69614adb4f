// Package storage persists the election artifacts in a prefixed key-value
// store. The following prefixes are used:
//   - 'e/' for the election record (single key)
//   - 'b/' for admitted ballots, keyed by nullifier
//   - 'c/' for the census trees (managed by the census package)
//
// The admission ledger is append-only: a ballot is written at most once per
// nullifier, atomically with the updated election record, so the tally and
// the set of admitted ballots can never diverge.
package storage

import (
	"errors"
	"fmt"

	"github.com/vocdoni/zkballot/storage/census"
	"github.com/vocdoni/zkballot/types"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/prefixeddb"
)

var (
	// Prefixes for the keys in the database.
	electionPrefix = []byte("e/")
	ballotPrefix   = []byte("b/")
	censusPrefix   = []byte("c/")

	// electionKey is the single key under which the election record lives.
	electionKey = []byte("election")
)

var (
	// ErrNotFound is returned when the requested artifact is not in the storage.
	ErrNotFound = fmt.Errorf("artifact not found")
	// ErrBallotExists is returned when a ballot with the same nullifier has
	// already been admitted.
	ErrBallotExists = fmt.Errorf("ballot already admitted for this nullifier")
)

// Storage wraps the database with the election artifact operations.
type Storage struct {
	db       db.Database
	censusDB *census.CensusDB
}

// New creates a new Storage instance over the given database.
func New(database db.Database) (*Storage, error) {
	censusDB, err := census.NewCensusDB(prefixeddb.NewPrefixedDatabase(database, censusPrefix))
	if err != nil {
		return nil, fmt.Errorf("could not open census database: %w", err)
	}
	return &Storage{db: database, censusDB: censusDB}, nil
}

// Close closes the storage.
func (s *Storage) Close() {
	s.db.Close()
}

// CensusDB returns the census database.
func (s *Storage) CensusDB() *census.CensusDB {
	return s.censusDB
}

// Election retrieves the election record. It returns ErrNotFound if no
// election has been stored yet.
func (s *Storage) Election() (*ElectionRecord, error) {
	rTx := prefixeddb.NewPrefixedReader(s.db, electionPrefix)
	data, err := rTx.Get(electionKey)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	record := &ElectionRecord{}
	if err := decodeArtifact(data, record); err != nil {
		return nil, err
	}
	return record, nil
}

// SetElection stores the election record.
func (s *Storage) SetElection(record *ElectionRecord) error {
	if record == nil {
		return fmt.Errorf("nil election record")
	}
	data, err := encodeArtifact(record)
	if err != nil {
		return err
	}
	wTx := prefixeddb.NewPrefixedWriteTx(s.db.WriteTx(), electionPrefix)
	defer wTx.Discard()
	if err := wTx.Set(electionKey, data); err != nil {
		return err
	}
	return wTx.Commit()
}

// Ballot retrieves an admitted ballot by its nullifier. It returns
// ErrNotFound if no ballot has been admitted under it.
func (s *Storage) Ballot(nullifier types.HexBytes) (*AdmittedBallot, error) {
	rTx := prefixeddb.NewPrefixedReader(s.db, ballotPrefix)
	data, err := rTx.Get(nullifier)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	ballot := &AdmittedBallot{}
	if err := decodeArtifact(data, ballot); err != nil {
		return nil, err
	}
	return ballot, nil
}

// HasBallot reports whether a ballot has been admitted under the nullifier.
func (s *Storage) HasBallot(nullifier types.HexBytes) (bool, error) {
	_, err := prefixeddb.NewPrefixedReader(s.db, ballotPrefix).Get(nullifier)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// AdmitBallot appends the ballot to the admission ledger and stores the
// updated election record in the same write transaction. It returns
// ErrBallotExists if a ballot was already admitted under the same nullifier;
// in that case nothing is written.
func (s *Storage) AdmitBallot(ballot *AdmittedBallot, record *ElectionRecord) error {
	if ballot == nil || record == nil {
		return fmt.Errorf("nil ballot or election record")
	}
	if len(ballot.Nullifier) == 0 {
		return fmt.Errorf("ballot has no nullifier")
	}
	exists, err := s.HasBallot(ballot.Nullifier)
	if err != nil {
		return err
	}
	if exists {
		return ErrBallotExists
	}
	ballotData, err := encodeArtifact(ballot)
	if err != nil {
		return err
	}
	recordData, err := encodeArtifact(record)
	if err != nil {
		return err
	}
	wTx := s.db.WriteTx()
	defer wTx.Discard()
	bTx := prefixeddb.NewPrefixedWriteTx(wTx, ballotPrefix)
	if err := bTx.Set(ballot.Nullifier, ballotData); err != nil {
		return err
	}
	eTx := prefixeddb.NewPrefixedWriteTx(wTx, electionPrefix)
	if err := eTx.Set(electionKey, recordData); err != nil {
		return err
	}
	return wTx.Commit()
}

// CountBallots returns the number of admitted ballots.
func (s *Storage) CountBallots() (int, error) {
	count := 0
	ballotDB := prefixeddb.NewPrefixedDatabase(s.db, ballotPrefix)
	if err := ballotDB.Iterate(nil, func(_, _ []byte) bool {
		count++
		return true
	}); err != nil {
		return 0, err
	}
	return count, nil
}

// ListBallots returns the nullifiers of all admitted ballots.
func (s *Storage) ListBallots() ([]types.HexBytes, error) {
	nullifiers := []types.HexBytes{}
	ballotDB := prefixeddb.NewPrefixedDatabase(s.db, ballotPrefix)
	if err := ballotDB.Iterate(nil, func(k, _ []byte) bool {
		nullifier := make(types.HexBytes, len(k))
		copy(nullifier, k)
		nullifiers = append(nullifiers, nullifier)
		return true
	}); err != nil {
		return nil, err
	}
	return nullifiers, nil
}
