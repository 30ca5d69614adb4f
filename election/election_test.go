package election

import (
	"fmt"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	qt "github.com/frankban/quicktest"
	"github.com/google/uuid"
	"github.com/vocdoni/arbo"
	"github.com/vocdoni/zkballot/storage"
	"github.com/vocdoni/zkballot/types"
	"github.com/vocdoni/zkballot/util"
	"github.com/vocdoni/zkballot/zk"
	"go.vocdoni.io/dvote/db/metadb"
)

var (
	ownerAddr    = common.HexToAddress("0x1111111111111111111111111111111111111111")
	strangerAddr = common.HexToAddress("0x2222222222222222222222222222222222222222")
)

// fakeClock is a mutable clock injected into the election under test.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *fakeClock) Set(t time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.t = t
}

// acceptAll is a ballot verifier test double that accepts every proof.
var acceptAll = zk.VerifierFunc(func(*types.BallotProof) error { return nil })

// fixture wires an election over a fresh storage with a small census.
type fixture struct {
	elec       *Election
	stg        *storage.Storage
	clock      *fakeClock
	censusRoot types.HexBytes
	memberKeys [][]byte
}

func newFixture(t *testing.T, verifier zk.BallotVerifier) *fixture {
	c := qt.New(t)
	stg, err := storage.New(metadb.NewTest(t))
	c.Assert(err, qt.IsNil)

	// build a census with a few members
	ref, err := stg.CensusDB().New(uuid.New())
	c.Assert(err, qt.IsNil)
	keys := make([][]byte, 5)
	values := make([][]byte, 5)
	for i := range keys {
		keys[i] = util.RandomBytes(20)
		values[i] = arbo.BigIntToBytes(stg.CensusDB().HashLen(), big.NewInt(1))
	}
	invalid, err := ref.InsertBatch(keys, values)
	c.Assert(err, qt.IsNil)
	c.Assert(invalid, qt.HasLen, 0)

	clock := &fakeClock{t: time.Now()}
	elec, err := New(&Config{
		Owner:          ownerAddr,
		Storage:        stg,
		BallotVerifier: verifier,
		Now:            clock.Now,
	})
	c.Assert(err, qt.IsNil)
	return &fixture{
		elec:       elec,
		stg:        stg,
		clock:      clock,
		censusRoot: ref.Root(),
		memberKeys: keys,
	}
}

// openVoting registers the named candidates, opens an eight day window
// starting 10 seconds from the fake clock and advances the clock into it.
func (f *fixture) openVoting(t *testing.T, candidates ...string) (time.Time, time.Time) {
	c := qt.New(t)
	for _, name := range candidates {
		_, err := f.elec.AddCandidate(ownerAddr, name)
		c.Assert(err, qt.IsNil)
	}
	start := f.clock.Now().Add(10 * time.Second)
	end := start.Add(8 * 24 * time.Hour)
	c.Assert(f.elec.StartVoting(ownerAddr, start, end, f.censusRoot), qt.IsNil)
	f.clock.Set(start.Add(10 * time.Second))
	return start, end
}

// censusProof returns an inclusion proof of the i-th census member.
func (f *fixture) censusProof(t *testing.T, i int) *types.CensusProof {
	proof, err := f.stg.CensusDB().ProofByRoot(f.censusRoot, f.memberKeys[i])
	qt.Assert(t, err, qt.IsNil)
	return proof
}

// ballotProof builds a well-formed proof with the choice and nullifier as
// public inputs.
func ballotProof(choice, nullifier uint64) *types.BallotProof {
	bi := func(v uint64) *types.BigInt { return new(types.BigInt).SetUint64(v) }
	return &types.BallotProof{
		A: [2]*types.BigInt{bi(1), bi(2)},
		B: [2][2]*types.BigInt{
			{bi(3), bi(4)},
			{bi(5), bi(6)},
		},
		C:            [2]*types.BigInt{bi(7), bi(8)},
		PublicInputs: []*types.BigInt{bi(choice), bi(nullifier)},
	}
}

func TestNewElection(t *testing.T) {
	c := qt.New(t)
	f := newFixture(t, acceptAll)
	c.Assert(f.elec.Status(), qt.Equals, types.ElectionStatusPreVoting)
	c.Assert(f.elec.Owner(), qt.Equals, ownerAddr)

	// reopening with the same owner works
	_, err := New(&Config{Owner: ownerAddr, Storage: f.stg, BallotVerifier: acceptAll})
	c.Assert(err, qt.IsNil)

	// a different owner must be rejected
	_, err = New(&Config{Owner: strangerAddr, Storage: f.stg, BallotVerifier: acceptAll})
	c.Assert(err, qt.IsNotNil)

	// incomplete configurations must be rejected
	_, err = New(nil)
	c.Assert(err, qt.IsNotNil)
	_, err = New(&Config{Owner: ownerAddr, Storage: f.stg})
	c.Assert(err, qt.IsNotNil)
}

func TestAddCandidate(t *testing.T) {
	c := qt.New(t)
	f := newFixture(t, acceptAll)

	id, err := f.elec.AddCandidate(ownerAddr, "alice")
	c.Assert(err, qt.IsNil)
	c.Assert(id, qt.Equals, 0)
	id, err = f.elec.AddCandidate(ownerAddr, "bob")
	c.Assert(err, qt.IsNil)
	c.Assert(id, qt.Equals, 1)

	_, err = f.elec.AddCandidate(strangerAddr, "mallory")
	c.Assert(err, qt.ErrorIs, ErrNotOwner)
	_, err = f.elec.AddCandidate(ownerAddr, "")
	c.Assert(err, qt.ErrorIs, ErrEmptyCandidateName)

	// registry is unchanged after the failures
	c.Assert(f.elec.Candidates(), qt.HasLen, 2)

	// fill the registry up to the maximum
	for i := 2; i < types.MaxCandidates; i++ {
		_, err := f.elec.AddCandidate(ownerAddr, fmt.Sprintf("candidate-%d", i))
		c.Assert(err, qt.IsNil)
	}
	_, err = f.elec.AddCandidate(ownerAddr, "one-too-many")
	c.Assert(err, qt.ErrorIs, ErrTooManyCandidates)
	c.Assert(f.elec.Candidates(), qt.HasLen, types.MaxCandidates)
}

func TestStartVoting(t *testing.T) {
	c := qt.New(t)
	f := newFixture(t, acceptAll)
	_, err := f.elec.AddCandidate(ownerAddr, "alice")
	c.Assert(err, qt.IsNil)

	now := f.clock.Now()
	valid := struct{ start, end time.Time }{
		start: now.Add(time.Minute),
		end:   now.Add(time.Minute).Add(types.MinVotingPeriod),
	}

	c.Assert(f.elec.StartVoting(strangerAddr, valid.start, valid.end, f.censusRoot),
		qt.ErrorIs, ErrNotOwner)
	// start must be strictly in the future
	c.Assert(f.elec.StartVoting(ownerAddr, now, valid.end, f.censusRoot),
		qt.ErrorIs, ErrInvalidTimeWindow)
	c.Assert(f.elec.StartVoting(ownerAddr, now.Add(-time.Hour), valid.end, f.censusRoot),
		qt.ErrorIs, ErrInvalidTimeWindow)
	// end must be after start
	c.Assert(f.elec.StartVoting(ownerAddr, valid.start, valid.start, f.censusRoot),
		qt.ErrorIs, ErrInvalidTimeWindow)
	// the window must span at least the minimum voting period
	c.Assert(f.elec.StartVoting(ownerAddr, valid.start, valid.end.Add(-time.Second), f.censusRoot),
		qt.ErrorIs, ErrInvalidTimeWindow)
	// a census root is required
	c.Assert(f.elec.StartVoting(ownerAddr, valid.start, valid.end, nil),
		qt.ErrorIs, ErrInvalidCensusProof)

	// every failure must leave the status untouched
	c.Assert(f.elec.Status(), qt.Equals, types.ElectionStatusPreVoting)

	c.Assert(f.elec.StartVoting(ownerAddr, valid.start, valid.end, f.censusRoot), qt.IsNil)
	c.Assert(f.elec.Status(), qt.Equals, types.ElectionStatusVoting)
	start, end := f.elec.Window()
	c.Assert(start.Equal(valid.start), qt.IsTrue)
	c.Assert(end.Equal(valid.end), qt.IsTrue)

	// voting cannot be started twice, nor candidates added anymore
	c.Assert(f.elec.StartVoting(ownerAddr, valid.start, valid.end, f.censusRoot),
		qt.ErrorIs, ErrInvalidStatus)
	_, err = f.elec.AddCandidate(ownerAddr, "late")
	c.Assert(err, qt.ErrorIs, ErrInvalidStatus)
}

func TestVoteAdmissionScenario(t *testing.T) {
	c := qt.New(t)
	f := newFixture(t, acceptAll)
	_, end := f.openVoting(t, "alice", "bob")

	// a valid ballot for bob is admitted
	voteID, err := f.elec.Vote(1, ballotProof(1, 1001), f.censusProof(t, 0))
	c.Assert(err, qt.IsNil)
	c.Assert(voteID, qt.Not(qt.HasLen), 0)
	count, err := f.elec.VoteCount(1)
	c.Assert(err, qt.IsNil)
	c.Assert(count, qt.Equals, uint64(1))

	// the stored ballot is retrievable under its nullifier
	nullifier := types.HexBytes(new(big.Int).SetUint64(1001).Bytes())
	stored, err := f.elec.AdmittedBallot(nullifier)
	c.Assert(err, qt.IsNil)
	c.Assert(stored.CandidateID, qt.Equals, 1)
	c.Assert(stored.VoteID, qt.DeepEquals, voteID)

	// a replay under the same nullifier is rejected, tallies unchanged
	_, err = f.elec.Vote(1, ballotProof(1, 1001), f.censusProof(t, 0))
	c.Assert(err, qt.ErrorIs, ErrAlreadyVoted)
	count, err = f.elec.VoteCount(1)
	c.Assert(err, qt.IsNil)
	c.Assert(count, qt.Equals, uint64(1))

	// a different nullifier for the same candidate is admitted
	_, err = f.elec.Vote(1, ballotProof(1, 1002), f.censusProof(t, 1))
	c.Assert(err, qt.IsNil)
	// and one for the other candidate
	_, err = f.elec.Vote(0, ballotProof(0, 1003), f.censusProof(t, 2))
	c.Assert(err, qt.IsNil)
	c.Assert(f.elec.TotalVoteCount(), qt.Equals, uint64(3))

	// after the window elapses the owner finalizes the election
	f.clock.Set(end.Add(time.Second))
	c.Assert(f.elec.Status(), qt.Equals, types.ElectionStatusPostVoting)
	c.Assert(f.elec.Finalize(ownerAddr), qt.IsNil)
	c.Assert(f.elec.Status(), qt.Equals, types.ElectionStatusFinished)

	// no further votes, candidates or finalizations are possible
	_, err = f.elec.Vote(0, ballotProof(0, 1004), f.censusProof(t, 3))
	c.Assert(err, qt.ErrorIs, ErrInvalidStatus)
	_, err = f.elec.AddCandidate(ownerAddr, "late")
	c.Assert(err, qt.ErrorIs, ErrInvalidStatus)
	c.Assert(f.elec.Finalize(ownerAddr), qt.ErrorIs, ErrInvalidStatus)

	// tallies are final and queryable
	c.Assert(f.elec.TotalVoteCount(), qt.Equals, uint64(3))
}

func TestVoteTimingGates(t *testing.T) {
	c := qt.New(t)
	f := newFixture(t, acceptAll)
	_, err := f.elec.AddCandidate(ownerAddr, "alice")
	c.Assert(err, qt.IsNil)

	start := f.clock.Now().Add(time.Hour)
	end := start.Add(8 * 24 * time.Hour)
	c.Assert(f.elec.StartVoting(ownerAddr, start, end, f.censusRoot), qt.IsNil)

	// before the window opens
	_, err = f.elec.Vote(0, ballotProof(0, 1), f.censusProof(t, 0))
	c.Assert(err, qt.ErrorIs, ErrOutsideVotingWindow)
	// exactly at the start instant (admission requires now > start)
	f.clock.Set(start)
	_, err = f.elec.Vote(0, ballotProof(0, 1), f.censusProof(t, 0))
	c.Assert(err, qt.ErrorIs, ErrOutsideVotingWindow)
	// within the posting buffer before the end
	f.clock.Set(end.Add(-types.MinVotePostingTime))
	_, err = f.elec.Vote(0, ballotProof(0, 1), f.censusProof(t, 0))
	c.Assert(err, qt.ErrorIs, ErrOutsideVotingWindow)
	f.clock.Set(end.Add(-time.Minute))
	_, err = f.elec.Vote(0, ballotProof(0, 1), f.censusProof(t, 0))
	c.Assert(err, qt.ErrorIs, ErrOutsideVotingWindow)
	// no tally changed
	c.Assert(f.elec.TotalVoteCount(), qt.Equals, uint64(0))

	// just inside the admission window
	f.clock.Set(end.Add(-types.MinVotePostingTime).Add(-time.Minute))
	_, err = f.elec.Vote(0, ballotProof(0, 1), f.censusProof(t, 0))
	c.Assert(err, qt.IsNil)
}

func TestVoteValidationGates(t *testing.T) {
	c := qt.New(t)
	rejectAll := zk.VerifierFunc(func(*types.BallotProof) error {
		return zk.ErrProofNotValid
	})
	f := newFixture(t, rejectAll)
	f.openVoting(t, "alice", "bob")

	// out-of-range candidate ids
	_, err := f.elec.Vote(2, ballotProof(2, 1), f.censusProof(t, 0))
	c.Assert(err, qt.ErrorIs, ErrCandidateNotFound)
	_, err = f.elec.Vote(-1, ballotProof(0, 1), f.censusProof(t, 0))
	c.Assert(err, qt.ErrorIs, ErrCandidateNotFound)

	// malformed proof shapes
	broken := ballotProof(0, 1)
	broken.A[0] = nil
	_, err = f.elec.Vote(0, broken, f.censusProof(t, 0))
	c.Assert(err, qt.ErrorIs, ErrMalformedBallot)
	_, err = f.elec.Vote(0, nil, f.censusProof(t, 0))
	c.Assert(err, qt.ErrorIs, ErrMalformedBallot)
	short := ballotProof(0, 1)
	short.PublicInputs = short.PublicInputs[:1]
	_, err = f.elec.Vote(0, short, f.censusProof(t, 0))
	c.Assert(err, qt.ErrorIs, ErrMalformedBallot)

	// a zero nullifier cannot key the admission ledger
	_, err = f.elec.Vote(0, ballotProof(0, 0), f.censusProof(t, 0))
	c.Assert(err, qt.ErrorIs, ErrMalformedBallot)

	// census proof gates
	_, err = f.elec.Vote(0, ballotProof(0, 1), nil)
	c.Assert(err, qt.ErrorIs, ErrInvalidCensusProof)
	wrongRoot := f.censusProof(t, 0)
	wrongRoot.Root = util.RandomBytes(len(wrongRoot.Root))
	_, err = f.elec.Vote(0, ballotProof(0, 1), wrongRoot)
	c.Assert(err, qt.ErrorIs, ErrInvalidCensusProof)
	tampered := f.censusProof(t, 0)
	tampered.Key = util.RandomBytes(len(tampered.Key))
	_, err = f.elec.Vote(0, ballotProof(0, 1), tampered)
	c.Assert(err, qt.ErrorIs, ErrInvalidCensusProof)

	// declared candidate must match the choice signal
	_, err = f.elec.Vote(0, ballotProof(1, 1), f.censusProof(t, 0))
	c.Assert(err, qt.ErrorIs, ErrChoiceMismatch)

	// and finally the verifier rejection
	_, err = f.elec.Vote(0, ballotProof(0, 1), f.censusProof(t, 0))
	c.Assert(err, qt.ErrorIs, ErrBallotProofInvalid)

	// none of the failures left a trace
	c.Assert(f.elec.TotalVoteCount(), qt.Equals, uint64(0))
	count, err := f.stg.CountBallots()
	c.Assert(err, qt.IsNil)
	c.Assert(count, qt.Equals, 0)
}

func TestTotalMatchesPerCandidateSum(t *testing.T) {
	c := qt.New(t)
	f := newFixture(t, acceptAll)
	f.openVoting(t, "alice", "bob", "carol")

	votes := []struct {
		candidate uint64
		nullifier uint64
	}{
		{0, 10}, {1, 11}, {1, 12}, {2, 13}, {0, 14},
	}
	for i, v := range votes {
		_, err := f.elec.Vote(int(v.candidate), ballotProof(v.candidate, v.nullifier),
			f.censusProof(t, i%len(f.memberKeys)))
		c.Assert(err, qt.IsNil)
	}

	var sum uint64
	for i := range f.elec.Candidates() {
		count, err := f.elec.VoteCount(i)
		c.Assert(err, qt.IsNil)
		sum += count
	}
	c.Assert(f.elec.TotalVoteCount(), qt.Equals, sum)
	c.Assert(sum, qt.Equals, uint64(len(votes)))

	ledger, err := f.stg.CountBallots()
	c.Assert(err, qt.IsNil)
	c.Assert(uint64(ledger), qt.Equals, sum)

	_, err = f.elec.VoteCount(3)
	c.Assert(err, qt.ErrorIs, ErrCandidateNotFound)
}

func TestFinalizeGates(t *testing.T) {
	c := qt.New(t)
	f := newFixture(t, acceptAll)

	// finalize before voting has started
	c.Assert(f.elec.Finalize(ownerAddr), qt.ErrorIs, ErrInvalidStatus)

	_, end := f.openVoting(t, "alice")
	c.Assert(f.elec.Finalize(strangerAddr), qt.ErrorIs, ErrNotOwner)
	// while the window is still open
	c.Assert(f.elec.Finalize(ownerAddr), qt.ErrorIs, ErrVotingNotEnded)
	// exactly at the end instant (finalize requires now > end)
	f.clock.Set(end)
	c.Assert(f.elec.Finalize(ownerAddr), qt.ErrorIs, ErrVotingNotEnded)

	f.clock.Set(end.Add(time.Second))
	c.Assert(f.elec.Finalize(ownerAddr), qt.IsNil)
}

func TestPersistenceAcrossRestart(t *testing.T) {
	c := qt.New(t)
	f := newFixture(t, acceptAll)
	f.openVoting(t, "alice", "bob")

	_, err := f.elec.Vote(1, ballotProof(1, 77), f.censusProof(t, 0))
	c.Assert(err, qt.IsNil)

	// a new election instance over the same storage resumes the state
	reopened, err := New(&Config{
		Owner:          ownerAddr,
		Storage:        f.stg,
		BallotVerifier: acceptAll,
		Now:            f.clock.Now,
	})
	c.Assert(err, qt.IsNil)
	c.Assert(reopened.Status(), qt.Equals, types.ElectionStatusVoting)
	count, err := reopened.VoteCount(1)
	c.Assert(err, qt.IsNil)
	c.Assert(count, qt.Equals, uint64(1))

	// the replay protection also survives the restart
	_, err = reopened.Vote(1, ballotProof(1, 77), f.censusProof(t, 1))
	c.Assert(err, qt.ErrorIs, ErrAlreadyVoted)
}
