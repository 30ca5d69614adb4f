package types

import "fmt"

// BallotProof is a Groth16 proof of ballot validity in the fixed calldata
// layout produced by snarkjs for on-chain verifiers: two G1 points of two
// coordinates each (A, C), one G2 point as a 2x2 coordinate matrix (B), and a
// variable-length vector of public inputs. The shape is preserved at the
// boundary; storage and verification convert it as needed.
type BallotProof struct {
	A            [2]*BigInt    `json:"proofA"       cbor:"0,keyasint"`
	B            [2][2]*BigInt `json:"proofB"       cbor:"1,keyasint"`
	C            [2]*BigInt    `json:"proofC"       cbor:"2,keyasint"`
	PublicInputs []*BigInt     `json:"publicInputs" cbor:"3,keyasint"`
}

// Valid checks that all proof components are present and that the public
// input vector carries at least the choice and nullifier signals. It does not
// perform any cryptographic verification.
func (p *BallotProof) Valid() error {
	if p == nil {
		return fmt.Errorf("nil ballot proof")
	}
	for i, a := range p.A {
		if a == nil {
			return fmt.Errorf("missing proof component A[%d]", i)
		}
	}
	for i := range p.B {
		for j, b := range p.B[i] {
			if b == nil {
				return fmt.Errorf("missing proof component B[%d][%d]", i, j)
			}
		}
	}
	for i, c := range p.C {
		if c == nil {
			return fmt.Errorf("missing proof component C[%d]", i)
		}
	}
	if len(p.PublicInputs) < BallotMinPubInputs {
		return fmt.Errorf("expected at least %d public inputs, got %d",
			BallotMinPubInputs, len(p.PublicInputs))
	}
	for i, in := range p.PublicInputs {
		if in == nil {
			return fmt.Errorf("missing public input %d", i)
		}
	}
	return nil
}

// Choice returns the declared candidate choice public signal.
func (p *BallotProof) Choice() *BigInt {
	return p.PublicInputs[BallotChoiceSignalIndex]
}

// Nullifier returns the nullifier public signal, used as the admission ledger
// key to prevent double voting without revealing the voter identity.
func (p *BallotProof) Nullifier() *BigInt {
	return p.PublicInputs[BallotNullifierSignalIndex]
}
