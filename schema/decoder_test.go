package schema

import (
	"math/big"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/strataio/cassgo/transport"
)

func testFamily() *ColumnFamily {
	return &ColumnFamily{
		Name:             "users",
		KeyValidator:     "org.apache.cassandra.db.marshal.UTF8Type",
		Comparator:       "org.apache.cassandra.db.marshal.AsciiType",
		DefaultValidator: "org.apache.cassandra.db.marshal.BytesType",
		Columns: map[string]string{
			"age":     "org.apache.cassandra.db.marshal.LongType",
			"count":   "org.apache.cassandra.db.marshal.IntegerType",
			"id":      "org.apache.cassandra.db.marshal.UUIDType",
			"active":  "org.apache.cassandra.db.marshal.BooleanType",
			"credits": "org.apache.cassandra.db.marshal.CounterColumnType",
		},
	}
}

func TestDecodeStringTypes(t *testing.T) {
	d := NewTypeDecoder(false)
	cf := testFamily()

	key, err := d.Decode([]byte("bob"), cf, KindKey, nil)
	require.NoError(t, err)
	require.Equal(t, "bob", key)

	name, err := d.Decode([]byte("age"), cf, KindComparator, nil)
	require.NoError(t, err)
	require.Equal(t, "age", name)
}

func TestDecodeLong(t *testing.T) {
	d := NewTypeDecoder(false)
	cf := testFamily()

	v, err := d.Decode([]byte{0, 0, 0, 0, 0, 0, 0, 42}, cf, KindValidator, []byte("age"))
	require.NoError(t, err)
	require.Equal(t, int64(42), v)

	v, err = d.Decode([]byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff}, cf, KindValidator, []byte("age"))
	require.NoError(t, err)
	require.Equal(t, int64(-1), v)

	_, err = d.Decode([]byte{1, 2}, cf, KindValidator, []byte("age"))
	require.Error(t, err)
}

func TestDecodeCounterUsesLongEncoding(t *testing.T) {
	d := NewTypeDecoder(false)
	v, err := d.Decode([]byte{0, 0, 0, 0, 0, 0, 1, 0}, testFamily(), KindValidator, []byte("credits"))
	require.NoError(t, err)
	require.Equal(t, int64(256), v)
}

func TestDecodeVarint(t *testing.T) {
	cf := testFamily()

	// Truncating mode yields int64.
	v, err := NewTypeDecoder(false).Decode([]byte{0x01, 0x00}, cf, KindValidator, []byte("count"))
	require.NoError(t, err)
	require.Equal(t, int64(256), v)

	// Extended mode yields *big.Int and preserves arbitrary width.
	wide := append([]byte{0x01}, make([]byte, 16)...)
	got, err := NewTypeDecoder(true).Decode(wide, cf, KindValidator, []byte("count"))
	require.NoError(t, err)
	want := new(big.Int).Lsh(big.NewInt(1), 128)
	require.Zero(t, want.Cmp(got.(*big.Int)))

	// Two's complement: a set high bit means negative.
	got, err = NewTypeDecoder(true).Decode([]byte{0xff}, cf, KindValidator, []byte("count"))
	require.NoError(t, err)
	require.Zero(t, big.NewInt(-1).Cmp(got.(*big.Int)))

	got, err = NewTypeDecoder(true).Decode([]byte{0xfe, 0x00}, cf, KindValidator, []byte("count"))
	require.NoError(t, err)
	require.Zero(t, big.NewInt(-512).Cmp(got.(*big.Int)))
}

func TestDecodeUUID(t *testing.T) {
	id := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	raw, err := id.MarshalBinary()
	require.NoError(t, err)

	v, err := NewTypeDecoder(false).Decode(raw, testFamily(), KindValidator, []byte("id"))
	require.NoError(t, err)
	require.Equal(t, id, v)

	_, err = NewTypeDecoder(false).Decode([]byte{1, 2, 3}, testFamily(), KindValidator, []byte("id"))
	require.Error(t, err)
}

func TestDecodeBoolean(t *testing.T) {
	d := NewTypeDecoder(false)
	cf := testFamily()

	v, err := d.Decode([]byte{1}, cf, KindValidator, []byte("active"))
	require.NoError(t, err)
	require.Equal(t, true, v)

	v, err = d.Decode([]byte{0}, cf, KindValidator, []byte("active"))
	require.NoError(t, err)
	require.Equal(t, false, v)
}

func TestDecodeUnknownValidatorPassesRawBytes(t *testing.T) {
	v, err := NewTypeDecoder(false).Decode([]byte{0xde, 0xad}, testFamily(), KindValidator, []byte("blob"))
	require.NoError(t, err)
	require.Equal(t, []byte{0xde, 0xad}, v)
}

func TestDecodeWithoutFamilyPassesRawBytes(t *testing.T) {
	v, err := NewTypeDecoder(false).Decode([]byte("raw"), nil, KindKey, nil)
	require.NoError(t, err)
	require.Equal(t, []byte("raw"), v)
}

func TestFromKeyspace(t *testing.T) {
	ts := FromKeyspace(&transport.KsDef{
		Name: "events",
		CfDefs: []*transport.CfDef{{
			Name:             "users",
			KeyValidator:     "org.apache.cassandra.db.marshal.UTF8Type",
			Comparator:       "UTF8Type",
			DefaultValidator: "org.apache.cassandra.db.marshal.LongType",
			Columns: []transport.ColumnDef{
				{Name: []byte("name"), Validator: "org.apache.cassandra.db.marshal.UTF8Type"},
			},
		}},
	})

	cf, ok := ts.ColumnFamily("users")
	require.True(t, ok)
	require.Equal(t, "org.apache.cassandra.db.marshal.UTF8Type", cf.ValidatorFor([]byte("name")))
	require.Equal(t, "org.apache.cassandra.db.marshal.LongType", cf.ValidatorFor([]byte("anything")))

	_, ok = ts.ColumnFamily("absent")
	require.False(t, ok)
}

func TestBareAndQualifiedClassNamesDecodeAlike(t *testing.T) {
	cf := &ColumnFamily{DefaultValidator: "UTF8Type"}
	v, err := NewTypeDecoder(false).Decode([]byte("plain"), cf, KindValidator, []byte("x"))
	require.NoError(t, err)
	require.Equal(t, "plain", v)
}
