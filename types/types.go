package types

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/fxamacker/cbor/v2"
)

// HexBytes is a []byte which encodes as hexadecimal in json, as opposed to the
// base64 default.
type HexBytes []byte

// String returns the hexadecimal string representation of the HexBytes.
func (b HexBytes) String() string {
	return hex.EncodeToString(b)
}

// FromString decodes the hexadecimal string provided (with or without the
// "0x" prefix) into the HexBytes.
func (b *HexBytes) FromString(str string) error {
	var err error
	(*b), err = hex.DecodeString(strings.TrimPrefix(str, "0x"))
	return err
}

// MarshalJSON implements the json.Marshaler interface.
func (b HexBytes) MarshalJSON() ([]byte, error) {
	enc := make([]byte, hex.EncodedLen(len(b))+2)
	enc[0] = '"'
	hex.Encode(enc[1:], b)
	enc[len(enc)-1] = '"'
	return enc, nil
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (b *HexBytes) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("invalid JSON string: %q", data)
	}
	data = data[1 : len(data)-1]
	// strip an optional "0x" prefix
	if len(data) >= 2 && data[0] == '0' && (data[1] == 'x' || data[1] == 'X') {
		data = data[2:]
	}
	decLen := hex.DecodedLen(len(data))
	if cap(*b) < decLen {
		*b = make([]byte, decLen)
	}
	*b = (*b)[:decLen]
	if _, err := hex.Decode(*b, data); err != nil {
		return err
	}
	return nil
}

// BigInt is a big.Int wrapper which marshals JSON to a string representation
// of the big number. It also implements the cbor interfaces, encoding the
// number as its big-endian byte representation.
type BigInt big.Int

// MarshalText implements the encoding.TextMarshaler interface.
func (i *BigInt) MarshalText() ([]byte, error) {
	return (*big.Int)(i).MarshalText()
}

// UnmarshalText implements the encoding.TextUnmarshaler interface.
func (i *BigInt) UnmarshalText(data []byte) error {
	return (*big.Int)(i).UnmarshalText(data)
}

// MarshalCBOR implements the cbor.Marshaler interface.
func (i *BigInt) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(i.Bytes())
}

// UnmarshalCBOR implements the cbor.Unmarshaler interface.
func (i *BigInt) UnmarshalCBOR(data []byte) error {
	var buf []byte
	if err := cbor.Unmarshal(data, &buf); err != nil {
		return err
	}
	i.SetBytes(buf)
	return nil
}

// MathBigInt converts b to a math/big *big.Int.
func (i *BigInt) MathBigInt() *big.Int {
	return (*big.Int)(i)
}

// SetBytes interprets buf as big-endian unsigned integer and sets i to that
// value. It returns i.
func (i *BigInt) SetBytes(buf []byte) *BigInt {
	i.MathBigInt().SetBytes(buf)
	return i
}

// Bytes returns the big-endian byte representation of i.
func (i *BigInt) Bytes() []byte {
	return i.MathBigInt().Bytes()
}

// SetUint64 sets i to the value of v and returns i.
func (i *BigInt) SetUint64(v uint64) *BigInt {
	i.MathBigInt().SetUint64(v)
	return i
}

// String returns the decimal string representation of i.
func (i *BigInt) String() string {
	return i.MathBigInt().String()
}

// Equal helps to compare two BigInt.
func (i *BigInt) Equal(j *BigInt) bool {
	return i.MathBigInt().Cmp(j.MathBigInt()) == 0
}
