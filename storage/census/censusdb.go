// Package census maintains the persistent eligibility sets of the election as
// arbo Merkle trees, addressed by uuid. It keeps an in-memory index from tree
// roots to census IDs so inclusion proofs can be generated and checked
// against the root the election was started with.
package census

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	"github.com/vocdoni/arbo"
	"github.com/vocdoni/zkballot/types"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/prefixeddb"
)

const (
	censusDBreferencePrefix = "cr_"
	censusDBtreePrefix      = "ct_"
)

var (
	// ErrCensusNotFound is returned when a census is not found in the database.
	ErrCensusNotFound = fmt.Errorf("census not found in the local database")
	// ErrCensusAlreadyExists is returned by New() if the census already exists.
	ErrCensusAlreadyExists = fmt.Errorf("census already exists in the local database")
	// ErrKeyNotFound is returned when a key is not found in the Merkle tree.
	ErrKeyNotFound = fmt.Errorf("key not found")

	// The ballot proof circuits operate on the bn254 scalar field, so the
	// census tree hashes with poseidon over the same field.
	defaultHashFunction = arbo.HashFunctionPoseidon
)

// censusPrefix returns the tree database prefix for a census ID.
func censusPrefix(censusID uuid.UUID) []byte {
	return append([]byte(censusDBtreePrefix), censusID[:]...)
}

// CensusDB is a safe and persistent database of census trees. It maintains an
// in-memory index mapping Merkle tree roots to census IDs.
type CensusDB struct {
	mu           sync.RWMutex
	db           db.Database
	loadedCensus map[uuid.UUID]*CensusRef
	rootIndex    map[string]uuid.UUID // maps hex(root) to censusID
}

// NewCensusDB creates a new CensusDB object. It scans the persistent database
// for existing census references and loads them into the in-memory index.
func NewCensusDB(database db.Database) (*CensusDB, error) {
	c := &CensusDB{
		db:           database,
		loadedCensus: make(map[uuid.UUID]*CensusRef),
		rootIndex:    make(map[string]uuid.UUID),
	}
	ids := []uuid.UUID{}
	if err := database.Iterate([]byte(censusDBreferencePrefix), func(k, _ []byte) bool {
		var id uuid.UUID
		if copy(id[:], k) == len(id) {
			ids = append(ids, id)
		}
		return true
	}); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range ids {
		if _, err := c.loadCensusRef(id); err != nil {
			return nil, fmt.Errorf("could not load census %s: %w", id, err)
		}
	}
	return c, nil
}

// New creates a new census and adds it to the database. It returns
// ErrCensusAlreadyExists if a census with the given ID is already present.
func (c *CensusDB) New(censusID uuid.UUID) (*CensusRef, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.loadedCensus[censusID]; exists {
		return nil, ErrCensusAlreadyExists
	}
	if _, err := c.db.Get(referenceKey(censusID)); err == nil {
		return nil, ErrCensusAlreadyExists
	} else if !errors.Is(err, db.ErrKeyNotFound) {
		return nil, err
	}

	ref := &CensusRef{
		ID:        censusID,
		MaxLevels: types.CensusTreeMaxLevels,
		HashType:  string(defaultHashFunction.Type()),
		LastUsed:  time.Now(),
	}
	tree, err := arbo.NewTree(arbo.Config{
		Database:     prefixeddb.NewPrefixedDatabase(c.db, censusPrefix(censusID)),
		MaxLevels:    types.CensusTreeMaxLevels,
		HashFunction: defaultHashFunction,
	})
	if err != nil {
		return nil, err
	}
	ref.tree = tree
	root, err := tree.Root()
	if err != nil {
		return nil, err
	}
	ref.currentRoot = root
	ref.onRootChange = c.indexRoot

	if err := c.writeReference(ref); err != nil {
		return nil, err
	}
	c.loadedCensus[censusID] = ref
	c.rootIndex[rootKey(root)] = censusID
	return ref, nil
}

// Exists returns true if the censusID exists in the local database.
func (c *CensusDB) Exists(censusID uuid.UUID) bool {
	c.mu.RLock()
	_, exists := c.loadedCensus[censusID]
	c.mu.RUnlock()
	if exists {
		return true
	}
	_, err := c.db.Get(referenceKey(censusID))
	return err == nil
}

// Load returns a census from memory or from the persistent KV database.
func (c *CensusDB) Load(censusID uuid.UUID) (*CensusRef, error) {
	c.mu.RLock()
	ref, exists := c.loadedCensus[censusID]
	c.mu.RUnlock()
	if exists {
		return ref, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loadCensusRef(censusID)
}

// loadCensusRef loads a census reference from the persistent database. The
// caller must hold the write lock.
func (c *CensusDB) loadCensusRef(censusID uuid.UUID) (*CensusRef, error) {
	if ref, exists := c.loadedCensus[censusID]; exists {
		return ref, nil
	}
	data, err := c.db.Get(referenceKey(censusID))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrCensusNotFound, censusID)
		}
		return nil, err
	}
	ref := &CensusRef{}
	if err := cbor.Unmarshal(data, ref); err != nil {
		return nil, err
	}
	tree, err := arbo.NewTree(arbo.Config{
		Database:     prefixeddb.NewPrefixedDatabase(c.db, censusPrefix(censusID)),
		MaxLevels:    ref.MaxLevels,
		HashFunction: defaultHashFunction,
	})
	if err != nil {
		return nil, err
	}
	ref.tree = tree
	root, err := tree.Root()
	if err != nil {
		return nil, err
	}
	ref.currentRoot = root
	ref.onRootChange = c.indexRoot
	ref.LastUsed = time.Now()
	if err := c.writeReference(ref); err != nil {
		return nil, err
	}
	c.loadedCensus[censusID] = ref
	c.rootIndex[rootKey(root)] = censusID
	return ref, nil
}

// Del removes a census reference and its tree from the database and memory.
func (c *CensusDB) Del(censusID uuid.UUID) error {
	wtx := c.db.WriteTx()
	defer wtx.Discard()
	if err := wtx.Delete(referenceKey(censusID)); err != nil {
		return err
	}
	// remove the tree keys under the census prefix
	treeDB := prefixeddb.NewPrefixedDatabase(c.db, censusPrefix(censusID))
	treeTx := treeDB.WriteTx()
	defer treeTx.Discard()
	if err := treeDB.Iterate(nil, func(k, _ []byte) bool {
		return treeTx.Delete(k) == nil
	}); err != nil {
		return err
	}
	if err := treeTx.Commit(); err != nil {
		return err
	}
	if err := wtx.Commit(); err != nil {
		return err
	}

	c.mu.Lock()
	if ref, exists := c.loadedCensus[censusID]; exists {
		delete(c.rootIndex, rootKey(ref.currentRoot))
		delete(c.loadedCensus, censusID)
	}
	c.mu.Unlock()
	return nil
}

// ProofByRoot finds a census by its Merkle tree root and generates an
// inclusion proof for the given leaf key.
func (c *CensusDB) ProofByRoot(root, leafKey []byte) (*types.CensusProof, error) {
	ref, err := c.refByRoot(root)
	if err != nil {
		return nil, err
	}
	key, value, siblings, existence, err := ref.GenProof(leafKey)
	if err != nil {
		return nil, err
	}
	if !existence {
		return nil, fmt.Errorf("%w: %x", ErrKeyNotFound, leafKey)
	}
	return &types.CensusProof{
		Root:     root,
		Key:      key,
		Value:    value,
		Siblings: siblings,
		Weight:   (*types.BigInt)(arbo.BytesToBigInt(value)),
	}, nil
}

// SizeByRoot returns the number of leaves of the census with the given root.
func (c *CensusDB) SizeByRoot(root []byte) (int, error) {
	ref, err := c.refByRoot(root)
	if err != nil {
		return 0, err
	}
	return ref.Size(), nil
}

// HashAndTruncKey computes the hash of a key and truncates it to the leaf key
// length supported by the tree. Returns nil if the hash function fails.
func (c *CensusDB) HashAndTruncKey(key []byte) []byte {
	hash, err := defaultHashFunction.Hash(key)
	if err != nil {
		return nil
	}
	if len(hash) < types.CensusKeyMaxLen {
		panic("hash function output is too short, maxlevels is too high")
	}
	return hash[:types.CensusKeyMaxLen]
}

// HashLen returns the length of the hash function output in bytes.
func (c *CensusDB) HashLen() int {
	return defaultHashFunction.Len()
}

// refByRoot returns the loaded census reference indexed under the root.
func (c *CensusDB) refByRoot(root []byte) (*CensusRef, error) {
	c.mu.RLock()
	censusID, exists := c.rootIndex[rootKey(root)]
	c.mu.RUnlock()
	if !exists {
		return nil, fmt.Errorf("%w: root %x", ErrCensusNotFound, root)
	}
	return c.Load(censusID)
}

// indexRoot re-indexes a census under a new tree root.
func (c *CensusDB) indexRoot(censusID uuid.UUID, oldRoot, newRoot []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if old, exists := c.rootIndex[rootKey(oldRoot)]; exists && old == censusID {
		delete(c.rootIndex, rootKey(oldRoot))
	}
	c.rootIndex[rootKey(newRoot)] = censusID
}

// writeReference writes a census reference to the database.
func (c *CensusDB) writeReference(ref *CensusRef) error {
	data, err := cbor.Marshal(ref)
	if err != nil {
		return err
	}
	wtx := c.db.WriteTx()
	defer wtx.Discard()
	if err := wtx.Set(referenceKey(ref.ID), data); err != nil {
		return err
	}
	return wtx.Commit()
}

// referenceKey returns the database key of a census reference.
func referenceKey(censusID uuid.UUID) []byte {
	return append([]byte(censusDBreferencePrefix), censusID[:]...)
}

// rootKey converts a root to its canonical map index form.
func rootKey(root []byte) string {
	return string(root)
}

// VerifyProof checks a census inclusion proof. It returns true only if the
// proof places the key/value pair under the given root.
func VerifyProof(proof *types.CensusProof) (bool, error) {
	if err := proof.Valid(); err != nil {
		return false, err
	}
	return arbo.CheckProof(defaultHashFunction, proof.Key, proof.Value, proof.Root, proof.Siblings)
}
