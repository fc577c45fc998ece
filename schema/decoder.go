package schema

import (
	"encoding/binary"
	"math/big"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Decoder converts raw wire bytes into native values. The column argument is
// the raw column name (nil for keys and comparators); implementations use it
// to pick per-column validator overrides.
type Decoder interface {
	Decode(raw []byte, cf *ColumnFamily, kind Kind, column []byte) (interface{}, error)
}

// TypeDecoder is the default Decoder: it dispatches on the validator class
// recorded in the TypeSchema.
//
// ExtendedIntegers controls IntegerType: when true the arbitrary-precision
// value is returned as *big.Int, otherwise it is truncated to int64.
type TypeDecoder struct {
	ExtendedIntegers bool
}

// NewTypeDecoder returns a TypeDecoder.
func NewTypeDecoder(extendedIntegers bool) *TypeDecoder {
	return &TypeDecoder{ExtendedIntegers: extendedIntegers}
}

// Decode implements Decoder.
func (d *TypeDecoder) Decode(raw []byte, cf *ColumnFamily, kind Kind, column []byte) (interface{}, error) {
	var validator string
	if cf != nil {
		switch kind {
		case KindKey:
			validator = cf.KeyValidator
		case KindComparator:
			validator = cf.Comparator
		case KindValidator:
			validator = cf.ValidatorFor(column)
		}
	}
	return d.decodeAs(raw, validator)
}

func (d *TypeDecoder) decodeAs(raw []byte, validator string) (interface{}, error) {
	switch className(validator) {
	case "AsciiType", "UTF8Type":
		return string(raw), nil
	case "LongType", "CounterColumnType":
		return decodeLong(raw)
	case "IntegerType":
		n := decodeVarint(raw)
		if d.ExtendedIntegers {
			return n, nil
		}
		return n.Int64(), nil
	case "UUIDType", "TimeUUIDType", "LexicalUUIDType":
		id, err := uuid.FromBytes(raw)
		if err != nil {
			return nil, errors.Wrap(err, "decoding uuid value")
		}
		return id, nil
	case "BooleanType":
		return len(raw) > 0 && raw[0] != 0, nil
	default:
		// BytesType and anything unrecognized pass through as raw bytes.
		return raw, nil
	}
}

// decodeLong reads a big-endian 8-byte signed integer.
func decodeLong(raw []byte) (int64, error) {
	if len(raw) != 8 {
		return 0, errors.Errorf("long value must be 8 bytes, got %d", len(raw))
	}
	return int64(binary.BigEndian.Uint64(raw)), nil
}

// decodeVarint reads a big-endian two's-complement integer of any length.
func decodeVarint(raw []byte) *big.Int {
	n := new(big.Int).SetBytes(raw)
	if len(raw) > 0 && raw[0]&0x80 != 0 {
		// Negative: subtract 2^(8*len).
		shift := new(big.Int).Lsh(big.NewInt(1), uint(len(raw))*8)
		n.Sub(n, shift)
	}
	return n
}
