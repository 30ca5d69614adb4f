package storage

import (
	"github.com/fxamacker/cbor/v2"
)

// artifactEnc is the deterministic cbor encoder used for every stored
// artifact, so identical records always produce identical bytes.
var artifactEnc cbor.EncMode

func init() {
	var err error
	artifactEnc, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
}

func encodeArtifact(a any) ([]byte, error) {
	return artifactEnc.Marshal(a)
}

func decodeArtifact(data []byte, out any) error {
	return cbor.Unmarshal(data, out)
}
