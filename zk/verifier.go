// Package zk wraps the external Groth16 ballot verification capability. The
// ballot proof arrives in the fixed calldata layout used by on-chain
// verifiers (two-coordinate A and C, 2x2 coordinate matrix B); it is
// converted back to the snarkjs layout and verified through the
// circom2gnark parser against a circom verification key.
package zk

import (
	"encoding/json"
	"fmt"

	"github.com/vocdoni/circom2gnark/parser"
	"github.com/vocdoni/zkballot/types"
)

// ErrProofNotValid is returned when the proof is well-formed but the
// verifier rejects it.
var ErrProofNotValid = fmt.Errorf("ballot proof is not valid")

// BallotVerifier is the external capability that checks a ballot proof
// attests to a valid vote. A nil error means the proof is accepted.
type BallotVerifier interface {
	Verify(proof *types.BallotProof) error
}

// VerifierFunc adapts a plain function to the BallotVerifier interface.
type VerifierFunc func(proof *types.BallotProof) error

// Verify implements the BallotVerifier interface.
func (f VerifierFunc) Verify(proof *types.BallotProof) error {
	return f(proof)
}

// CircomVerifier verifies circom Groth16 ballot proofs using the
// verification key exported by snarkjs.
type CircomVerifier struct {
	vkey *parser.CircomVerificationKey
}

// NewCircomVerifier parses the snarkjs verification key JSON and returns a
// CircomVerifier ready to check proofs against it.
func NewCircomVerifier(vkeyJSON []byte) (*CircomVerifier, error) {
	vkey, err := parser.UnmarshalCircomVerificationKeyJSON(vkeyJSON)
	if err != nil {
		return nil, fmt.Errorf("could not parse verification key: %w", err)
	}
	return &CircomVerifier{vkey: vkey}, nil
}

// Verify checks the ballot proof against the verification key. It returns
// ErrProofNotValid if the verifier rejects the proof, or a different error
// if the proof cannot be converted.
func (v *CircomVerifier) Verify(proof *types.BallotProof) error {
	if err := proof.Valid(); err != nil {
		return fmt.Errorf("malformed ballot proof: %w", err)
	}
	circomProof, pubSignals, err := circomProofFromCalldata(proof)
	if err != nil {
		return err
	}
	gnarkProof, err := parser.ConvertCircomToGnark(circomProof, v.vkey, pubSignals)
	if err != nil {
		return fmt.Errorf("could not convert proof to gnark format: %w", err)
	}
	ok, err := parser.VerifyProof(gnarkProof)
	if err != nil {
		return fmt.Errorf("proof verification failed: %w", err)
	}
	if !ok {
		return ErrProofNotValid
	}
	return nil
}

// circomProofFromCalldata rebuilds the snarkjs proof encoding from the
// calldata layout. The G1 points gain their affine z coordinate and the G2
// point coordinates are swapped back (the calldata layout stores each Fp2
// element with its components reversed).
func circomProofFromCalldata(p *types.BallotProof) (*parser.CircomProof, []string, error) {
	proofJSON, err := json.Marshal(map[string]any{
		"pi_a": []string{p.A[0].String(), p.A[1].String(), "1"},
		"pi_b": [][]string{
			{p.B[0][1].String(), p.B[0][0].String()},
			{p.B[1][1].String(), p.B[1][0].String()},
			{"1", "0"},
		},
		"pi_c":     []string{p.C[0].String(), p.C[1].String(), "1"},
		"protocol": "groth16",
		"curve":    "bn128",
	})
	if err != nil {
		return nil, nil, err
	}
	proof, err := parser.UnmarshalCircomProofJSON(proofJSON)
	if err != nil {
		return nil, nil, fmt.Errorf("could not encode circom proof: %w", err)
	}
	pubSignals := make([]string, len(p.PublicInputs))
	for i, in := range p.PublicInputs {
		pubSignals[i] = in.String()
	}
	return proof, pubSignals, nil
}
