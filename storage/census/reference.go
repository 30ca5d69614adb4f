package census

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vocdoni/arbo"
)

// CensusRef is a reference to a census. It holds the Merkle tree; all
// accesses to the underlying tree and its current root are protected by
// treeMu.
type CensusRef struct {
	ID        uuid.UUID `cbor:"0,keyasint"`
	MaxLevels int       `cbor:"1,keyasint"`
	HashType  string    `cbor:"2,keyasint"`
	LastUsed  time.Time `cbor:"3,keyasint"`

	currentRoot []byte
	tree        *arbo.Tree
	treeMu      sync.Mutex
	// onRootChange notifies the owning CensusDB that the tree root moved.
	onRootChange func(censusID uuid.UUID, oldRoot, newRoot []byte)
}

// Tree returns the underlying arbo.Tree pointer.
// (Not concurrency-safe; use Insert, Root, or GenProof.)
func (cr *CensusRef) Tree() *arbo.Tree {
	return cr.tree
}

// Insert safely inserts a key/value pair into the Merkle tree.
func (cr *CensusRef) Insert(key, value []byte) error {
	cr.treeMu.Lock()
	defer cr.treeMu.Unlock()
	if err := cr.tree.Add(key, value); err != nil {
		return err
	}
	return cr.rootChanged()
}

// InsertBatch safely inserts a batch of key/value pairs into the Merkle tree.
// It returns the invalid entries reported by arbo.
func (cr *CensusRef) InsertBatch(keys, values [][]byte) ([]arbo.Invalid, error) {
	cr.treeMu.Lock()
	defer cr.treeMu.Unlock()
	invalid, err := cr.tree.AddBatch(keys, values)
	if err != nil {
		return invalid, err
	}
	return invalid, cr.rootChanged()
}

// rootChanged refreshes the cached root and notifies the owning CensusDB.
// The caller must hold treeMu.
func (cr *CensusRef) rootChanged() error {
	newRoot, err := cr.tree.Root()
	if err != nil {
		return err
	}
	oldRoot := cr.currentRoot
	cr.currentRoot = newRoot
	if cr.onRootChange != nil {
		cr.onRootChange(cr.ID, oldRoot, newRoot)
	}
	return nil
}

// Root safely returns the current Merkle tree root.
func (cr *CensusRef) Root() []byte {
	cr.treeMu.Lock()
	defer cr.treeMu.Unlock()
	root, err := cr.tree.Root()
	if err != nil {
		return nil
	}
	return root
}

// Size safely returns the number of leaves in the Merkle tree.
func (cr *CensusRef) Size() int {
	cr.treeMu.Lock()
	defer cr.treeMu.Unlock()
	size, err := cr.tree.GetNLeafs()
	if err != nil {
		return 0
	}
	return size
}

// GenProof safely generates a Merkle proof for the given leaf key. It returns
// the leaf key, the leaf value, the packed siblings and an inclusion flag.
func (cr *CensusRef) GenProof(key []byte) ([]byte, []byte, []byte, bool, error) {
	cr.treeMu.Lock()
	defer cr.treeMu.Unlock()
	return cr.tree.GenProof(key)
}
