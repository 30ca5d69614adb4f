package types

import "fmt"

// CensusProof is a merkle proof of inclusion in the census (eligibility)
// tree. It is provided by the voter along with the ballot proof to attest
// that the submitted key belongs to the eligibility set.
type CensusProof struct {
	Root     HexBytes `json:"root"`
	Key      HexBytes `json:"key"`
	Value    HexBytes `json:"value"`
	Siblings HexBytes `json:"siblings"`
	Weight   *BigInt  `json:"weight,omitempty"`
}

// Valid checks that the proof components are present.
func (p *CensusProof) Valid() error {
	if p == nil {
		return fmt.Errorf("nil census proof")
	}
	if len(p.Root) == 0 {
		return fmt.Errorf("missing census root")
	}
	if len(p.Key) == 0 {
		return fmt.Errorf("missing census key")
	}
	if len(p.Siblings) == 0 {
		return fmt.Errorf("missing census siblings")
	}
	return nil
}
