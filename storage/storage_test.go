package storage

import (
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/zkballot/types"
	"github.com/vocdoni/zkballot/util"
	"go.vocdoni.io/dvote/db/metadb"
)

func newStorage(t *testing.T) *Storage {
	stg, err := New(metadb.NewTest(t))
	qt.Assert(t, err, qt.IsNil)
	return stg
}

func testBallot(nullifier types.HexBytes, candidateID int) *AdmittedBallot {
	bi := func(v uint64) *types.BigInt { return new(types.BigInt).SetUint64(v) }
	return &AdmittedBallot{
		VoteID:      util.RandomBytes(12),
		Nullifier:   nullifier,
		CandidateID: candidateID,
		Proof: &types.BallotProof{
			A: [2]*types.BigInt{bi(1), bi(2)},
			B: [2][2]*types.BigInt{
				{bi(3), bi(4)},
				{bi(5), bi(6)},
			},
			C: [2]*types.BigInt{bi(7), bi(8)},
			PublicInputs: []*types.BigInt{
				bi(uint64(candidateID)),
				new(types.BigInt).SetBytes(nullifier),
			},
		},
		Timestamp: time.Now().UTC().Truncate(time.Second),
	}
}

func TestElectionRecord(t *testing.T) {
	stg := newStorage(t)

	_, err := stg.Election()
	qt.Assert(t, err, qt.ErrorIs, ErrNotFound)

	record := &ElectionRecord{
		Owner:  util.RandomBytes(20),
		Status: types.ElectionStatusPreVoting,
		Candidates: []*types.Candidate{
			{Name: "alice"},
			{Name: "bob", VoteCount: 3},
		},
	}
	qt.Assert(t, stg.SetElection(record), qt.IsNil)

	stored, err := stg.Election()
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, stored.Owner, qt.DeepEquals, record.Owner)
	qt.Assert(t, stored.Status, qt.Equals, types.ElectionStatusPreVoting)
	qt.Assert(t, stored.Candidates, qt.DeepEquals, record.Candidates)

	// the record is overwritten in place
	record.Status = types.ElectionStatusVoting
	record.StartTime = time.Now().UTC().Truncate(time.Second)
	record.EndTime = record.StartTime.Add(8 * 24 * time.Hour)
	qt.Assert(t, stg.SetElection(record), qt.IsNil)
	stored, err = stg.Election()
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, stored.Status, qt.Equals, types.ElectionStatusVoting)
	qt.Assert(t, stored.EndTime.Sub(stored.StartTime), qt.Equals, 8*24*time.Hour)
}

func TestAdmitBallot(t *testing.T) {
	stg := newStorage(t)

	record := &ElectionRecord{
		Owner:      util.RandomBytes(20),
		Status:     types.ElectionStatusVoting,
		Candidates: []*types.Candidate{{Name: "alice"}, {Name: "bob"}},
	}
	qt.Assert(t, stg.SetElection(record), qt.IsNil)

	nullifier := types.HexBytes(util.RandomBytes(32))
	has, err := stg.HasBallot(nullifier)
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, has, qt.IsFalse)

	ballot := testBallot(nullifier, 1)
	record.Candidates[1].VoteCount++
	qt.Assert(t, stg.AdmitBallot(ballot, record), qt.IsNil)

	// the ballot and the updated record are both visible
	has, err = stg.HasBallot(nullifier)
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, has, qt.IsTrue)

	stored, err := stg.Ballot(nullifier)
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, stored.CandidateID, qt.Equals, 1)
	qt.Assert(t, stored.Proof.Nullifier().Bytes(), qt.DeepEquals, []byte(nullifier))

	updated, err := stg.Election()
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, updated.Candidates[1].VoteCount, qt.Equals, uint64(1))

	// a second admission under the same nullifier must fail and write nothing
	record.Candidates[1].VoteCount++
	err = stg.AdmitBallot(testBallot(nullifier, 0), record)
	qt.Assert(t, err, qt.ErrorIs, ErrBallotExists)
	unchanged, err := stg.Election()
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, unchanged.Candidates[1].VoteCount, qt.Equals, uint64(1))

	count, err := stg.CountBallots()
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, count, qt.Equals, 1)

	nullifiers, err := stg.ListBallots()
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, nullifiers, qt.HasLen, 1)
	qt.Assert(t, nullifiers[0], qt.DeepEquals, nullifier)
}

func TestBallotNotFound(t *testing.T) {
	stg := newStorage(t)

	_, err := stg.Ballot(util.RandomBytes(32))
	qt.Assert(t, err, qt.ErrorIs, ErrNotFound)

	count, err := stg.CountBallots()
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, count, qt.Equals, 0)
}
