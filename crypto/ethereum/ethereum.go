// Package ethereum provides the Ethereum ECDSA identity used to gate the
// administrative operations of the election: key management, message signing
// with the standard Ethereum prefix and address recovery from signatures.
package ethereum

import (
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/vocdoni/zkballot/util"
)

// SignatureLength is the size in bytes of an ECDSA signature including the
// recovery id.
const SignatureLength = ethcrypto.SignatureLength

// SignKeys is an ECDSA key pair on the secp256k1 curve, identified by its
// derived Ethereum address.
type SignKeys struct {
	Public  ecdsa.PublicKey
	Private ecdsa.PrivateKey
}

// NewSignKeys creates an empty SignKeys.
func NewSignKeys() *SignKeys {
	return &SignKeys{}
}

// Generate creates a new random key pair.
func (k *SignKeys) Generate() error {
	key, err := ethcrypto.GenerateKey()
	if err != nil {
		return err
	}
	k.Private = *key
	k.Public = key.PublicKey
	return nil
}

// AddHexKey imports a private key from its hexadecimal representation.
func (k *SignKeys) AddHexKey(privHex string) error {
	key, err := ethcrypto.HexToECDSA(util.TrimHex(privHex))
	if err != nil {
		return err
	}
	k.Private = *key
	k.Public = key.PublicKey
	return nil
}

// HexString returns the compressed public key and the private key as
// hexadecimal strings.
func (k *SignKeys) HexString() (string, string) {
	pub := hex.EncodeToString(k.PublicKey())
	priv := hex.EncodeToString(ethcrypto.FromECDSA(&k.Private))
	return pub, priv
}

// PublicKey returns the compressed public key.
func (k *SignKeys) PublicKey() []byte {
	return ethcrypto.CompressPubkey(&k.Public)
}

// Address returns the Ethereum address derived from the public key.
func (k *SignKeys) Address() common.Address {
	return ethcrypto.PubkeyToAddress(k.Public)
}

// AddressString returns the checksummed string representation of the address.
func (k *SignKeys) AddressString() string {
	return k.Address().String()
}

// SignEthereum signs the message following the Ethereum signed-message
// convention. The returned signature carries the recovery id as its last
// byte (0 or 1).
func (k *SignKeys) SignEthereum(message []byte) ([]byte, error) {
	if k.Private.D == nil {
		return nil, fmt.Errorf("no private key available")
	}
	return ethcrypto.Sign(HashEthereumMsg(message), &k.Private)
}

// HashRaw computes the keccak256 hash of data.
func HashRaw(data []byte) []byte {
	return ethcrypto.Keccak256(data)
}

// HashEthereumMsg hashes data prefixed with the standard Ethereum
// signed-message header.
func HashEthereumMsg(data []byte) []byte {
	return HashRaw(fmt.Appendf(nil, "\x19Ethereum Signed Message:\n%d%s", len(data), data))
}

// AddrFromPublicKey derives the Ethereum address from a compressed or
// uncompressed public key.
func AddrFromPublicKey(pub []byte) (common.Address, error) {
	var pubKey *ecdsa.PublicKey
	var err error
	switch len(pub) {
	case 33:
		pubKey, err = ethcrypto.DecompressPubkey(pub)
	default:
		pubKey, err = ethcrypto.UnmarshalPubkey(pub)
	}
	if err != nil {
		return common.Address{}, fmt.Errorf("cannot decode public key: %w", err)
	}
	return ethcrypto.PubkeyToAddress(*pubKey), nil
}

// AddrFromSignature recovers the address of the key that produced the
// signature over message.
func AddrFromSignature(message, signature []byte) (common.Address, error) {
	if len(signature) != SignatureLength {
		return common.Address{}, fmt.Errorf("invalid signature length %d", len(signature))
	}
	sig := make([]byte, SignatureLength)
	copy(sig, signature)
	// accept both raw (0/1) and legacy (27/28) recovery ids
	if sig[64] >= 27 {
		sig[64] -= 27
	}
	pub, err := ethcrypto.SigToPub(HashEthereumMsg(message), sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("cannot recover public key: %w", err)
	}
	return ethcrypto.PubkeyToAddress(*pub), nil
}
