package api

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/vocdoni/arbo"
	"github.com/vocdoni/zkballot/types"
)

// newCensus creates a new empty census
// POST /censuses
func (a *API) newCensus(w http.ResponseWriter, r *http.Request) {
	censusID := uuid.New()
	_, err := a.storage.CensusDB().New(censusID)
	if err != nil {
		ErrGenericInternalServerError.WithErr(err).Write(w)
		return
	}
	httpWriteJSON(w, &NewCensus{Census: censusID})
}

// addCensusParticipants adds keys to a census tree
// POST /censuses/participants?id=
func (a *API) addCensusParticipants(w http.ResponseWriter, r *http.Request) {
	censusID, err := uuid.Parse(r.URL.Query().Get("id"))
	if err != nil {
		ErrInvalidCensusID.WithErr(err).Write(w)
		return
	}

	var participants CensusParticipants
	if err := json.NewDecoder(r.Body).Decode(&participants); err != nil {
		ErrMalformedBody.WithErr(err).Write(w)
		return
	}

	if len(participants.Participants) == 0 {
		ErrMalformedBody.WithErr(fmt.Errorf("no participants provided")).Write(w)
		return
	}

	ref, err := a.storage.CensusDB().Load(censusID)
	if err != nil {
		ErrCensusNotFound.WithErr(err).Write(w)
		return
	}

	// build the list of keys and values that will be added to the tree
	keys := [][]byte{}
	values := [][]byte{}
	for _, p := range participants.Participants {
		if p.Weight == nil {
			p.Weight = new(types.BigInt).SetUint64(1)
		}
		leafKey := []byte(p.Key)
		if len(leafKey) > types.CensusKeyMaxLen {
			leafKey = a.storage.CensusDB().HashAndTruncKey(leafKey)
			if leafKey == nil {
				ErrGenericInternalServerError.WithErr(fmt.Errorf("failed to hash participant key")).Write(w)
				return
			}
		}
		keys = append(keys, leafKey)
		values = append(values, arbo.BigIntToBytes(a.storage.CensusDB().HashLen(), p.Weight.MathBigInt()))
	}

	// insert the keys and values into the tree
	invalid, err := ref.InsertBatch(keys, values)
	if err != nil {
		ErrGenericInternalServerError.WithErr(err).Write(w)
		return
	}
	if len(invalid) > 0 {
		ErrMalformedBody.WithErr(fmt.Errorf("failed to insert %d participants", len(invalid))).Write(w)
		return
	}
	httpWriteOK(w)
}

// getCensusParticipants lists the keys of a census tree
// GET /censuses/participants?id=
func (a *API) getCensusParticipants(w http.ResponseWriter, r *http.Request) {
	censusID, err := uuid.Parse(r.URL.Query().Get("id"))
	if err != nil {
		ErrInvalidCensusID.WithErr(err).Write(w)
		return
	}

	ref, err := a.storage.CensusDB().Load(censusID)
	if err != nil {
		ErrCensusNotFound.WithErr(err).Write(w)
		return
	}

	participants := []*CensusParticipant{}
	err = ref.Tree().Iterate(nil, func(k []byte, v []byte) {
		participants = append(participants, &CensusParticipant{
			Key:    k,
			Weight: (*types.BigInt)(arbo.BytesToBigInt(v)),
		})
	})
	if err != nil {
		ErrGenericInternalServerError.WithErr(err).Write(w)
		return
	}

	httpWriteJSON(w, &CensusParticipants{Participants: participants})
}

// getCensusRoot returns the merkle root of a census tree
// GET /censuses/root?id=
func (a *API) getCensusRoot(w http.ResponseWriter, r *http.Request) {
	censusID, err := uuid.Parse(r.URL.Query().Get("id"))
	if err != nil {
		ErrInvalidCensusID.WithErr(err).Write(w)
		return
	}

	ref, err := a.storage.CensusDB().Load(censusID)
	if err != nil {
		ErrCensusNotFound.WithErr(err).Write(w)
		return
	}

	httpWriteJSON(w, &CensusRoot{Root: ref.Root()})
}

// getCensusSize returns the number of keys of a census tree, addressed
// either by id or by root
// GET /censuses/size?id=|root=
func (a *API) getCensusSize(w http.ResponseWriter, r *http.Request) {
	rootStr := r.URL.Query().Get("root")
	idStr := r.URL.Query().Get("id")
	size := 0
	switch {
	case idStr != "":
		censusID, err := uuid.Parse(idStr)
		if err != nil {
			ErrInvalidCensusID.WithErr(err).Write(w)
			return
		}
		ref, err := a.storage.CensusDB().Load(censusID)
		if err != nil {
			ErrCensusNotFound.WithErr(err).Write(w)
			return
		}
		size = ref.Size()
	case rootStr != "":
		root, err := hex.DecodeString(rootStr)
		if err != nil {
			ErrInvalidCensusID.WithErr(err).Write(w)
			return
		}
		size, err = a.storage.CensusDB().SizeByRoot(root)
		if err != nil {
			ErrCensusNotFound.WithErr(err).Write(w)
			return
		}
	default:
		ErrInvalidCensusID.Write(w)
		return
	}

	httpWriteJSON(w, map[string]interface{}{
		"size": size,
	})
}

// deleteCensus removes a census and its tree
// DELETE /censuses?id=
func (a *API) deleteCensus(w http.ResponseWriter, r *http.Request) {
	censusID, err := uuid.Parse(r.URL.Query().Get("id"))
	if err != nil {
		ErrInvalidCensusID.WithErr(err).Write(w)
		return
	}

	if err := a.storage.CensusDB().Del(censusID); err != nil {
		ErrCensusNotFound.WithErr(err).Write(w)
		return
	}

	httpWriteOK(w)
}

// getCensusProof returns an inclusion proof of a key in a census tree
// GET /censuses/proof?root=&key=
func (a *API) getCensusProof(w http.ResponseWriter, r *http.Request) {
	root, err := hex.DecodeString(r.URL.Query().Get("root"))
	if err != nil {
		ErrInvalidCensusID.WithErr(err).Write(w)
		return
	}

	key, err := hex.DecodeString(r.URL.Query().Get("key"))
	if err != nil {
		ErrMalformedBody.WithErr(err).Write(w)
		return
	}

	leafKey := key
	if len(key) > types.CensusKeyMaxLen {
		leafKey = a.storage.CensusDB().HashAndTruncKey(key)
		if leafKey == nil {
			ErrGenericInternalServerError.WithErr(fmt.Errorf("failed to hash participant key")).Write(w)
			return
		}
	}

	proof, err := a.storage.CensusDB().ProofByRoot(root, leafKey)
	if err != nil {
		ErrResourceNotFound.WithErr(err).Write(w)
		return
	}

	httpWriteJSON(w, proof)
}
