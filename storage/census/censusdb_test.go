package census

import (
	"math/big"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/google/uuid"
	"github.com/vocdoni/arbo"
	"github.com/vocdoni/zkballot/util"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/metadb"
)

// newDatabase returns a new test database.
func newDatabase(t *testing.T) db.Database {
	return metadb.NewTest(t)
}

// newCensusDB returns a fresh CensusDB over a test database.
func newCensusDB(t *testing.T) *CensusDB {
	censusDB, err := NewCensusDB(newDatabase(t))
	qt.Assert(t, err, qt.IsNil)
	return censusDB
}

// addParticipants inserts n random participant keys with weight 1 and
// returns the keys.
func addParticipants(t *testing.T, ref *CensusRef, n int) [][]byte {
	keys := make([][]byte, n)
	values := make([][]byte, n)
	for i := range keys {
		keys[i] = util.RandomBytes(20)
		values[i] = arbo.BigIntToBytes(defaultHashFunction.Len(), big.NewInt(1))
	}
	invalid, err := ref.InsertBatch(keys, values)
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, invalid, qt.HasLen, 0)
	return keys
}

func TestCensusDBNew(t *testing.T) {
	t.Parallel()
	censusDB := newCensusDB(t)
	censusID := uuid.New()

	ref, err := censusDB.New(censusID)
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, ref, qt.IsNotNil)
	qt.Assert(t, ref.Tree(), qt.IsNotNil)

	// creating the same census again must fail
	_, err = censusDB.New(censusID)
	qt.Assert(t, err, qt.ErrorIs, ErrCensusAlreadyExists)
}

func TestCensusDBExistsAndLoad(t *testing.T) {
	t.Parallel()
	censusDB := newCensusDB(t)
	censusID := uuid.New()

	qt.Assert(t, censusDB.Exists(censusID), qt.IsFalse)

	ref1, err := censusDB.New(censusID)
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, censusDB.Exists(censusID), qt.IsTrue)

	ref2, err := censusDB.Load(censusID)
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, ref1, qt.Equals, ref2)

	_, err = censusDB.Load(uuid.New())
	qt.Assert(t, err, qt.ErrorIs, ErrCensusNotFound)
}

func TestCensusDBDel(t *testing.T) {
	t.Parallel()
	censusDB := newCensusDB(t)
	censusID := uuid.New()

	_, err := censusDB.New(censusID)
	qt.Assert(t, err, qt.IsNil)

	qt.Assert(t, censusDB.Del(censusID), qt.IsNil)
	qt.Assert(t, censusDB.Exists(censusID), qt.IsFalse)
}

func TestCensusProofRoundtrip(t *testing.T) {
	t.Parallel()
	censusDB := newCensusDB(t)
	censusID := uuid.New()

	ref, err := censusDB.New(censusID)
	qt.Assert(t, err, qt.IsNil)
	keys := addParticipants(t, ref, 10)

	root := ref.Root()
	qt.Assert(t, root, qt.Not(qt.HasLen), 0)
	qt.Assert(t, ref.Size(), qt.Equals, 10)

	size, err := censusDB.SizeByRoot(root)
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, size, qt.Equals, 10)

	proof, err := censusDB.ProofByRoot(root, keys[3])
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, proof.Weight.String(), qt.Equals, "1")

	valid, err := VerifyProof(proof)
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, valid, qt.IsTrue)

	// a proof against a different root must not verify
	tampered := *proof
	tampered.Root = util.RandomBytes(len(proof.Root))
	valid, _ = VerifyProof(&tampered)
	qt.Assert(t, valid, qt.IsFalse)

	// proofs for unknown keys must fail
	_, err = censusDB.ProofByRoot(root, util.RandomBytes(20))
	qt.Assert(t, err, qt.IsNotNil)
}

func TestPersistenceAcrossCensusDBInstances(t *testing.T) {
	t.Parallel()
	database := newDatabase(t)

	censusDB, err := NewCensusDB(database)
	qt.Assert(t, err, qt.IsNil)
	censusID := uuid.New()
	ref, err := censusDB.New(censusID)
	qt.Assert(t, err, qt.IsNil)
	keys := addParticipants(t, ref, 5)
	root := ref.Root()

	// a new CensusDB over the same database must find the census by root
	reopened, err := NewCensusDB(database)
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, reopened.Exists(censusID), qt.IsTrue)

	proof, err := reopened.ProofByRoot(root, keys[0])
	qt.Assert(t, err, qt.IsNil)
	valid, err := VerifyProof(proof)
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, valid, qt.IsTrue)
}

func TestHashAndTruncKey(t *testing.T) {
	t.Parallel()
	censusDB := newCensusDB(t)

	key := censusDB.HashAndTruncKey(util.RandomBytes(64))
	qt.Assert(t, key, qt.IsNotNil)
	qt.Assert(t, len(key) <= censusDB.HashLen(), qt.IsTrue)
}
