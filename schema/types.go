// Package schema models the per-keyspace type metadata a connection learns
// during its handshake, and provides the default decoder that turns raw wire
// bytes into native values according to that metadata.
package schema

import (
	"strings"

	"github.com/strataio/cassgo/transport"
)

// Kind says which role a raw value plays in a row, and therefore which
// validator class governs its decoding.
type Kind int

const (
	// KindKey decodes a row key using the family's key validator.
	KindKey Kind = iota
	// KindComparator decodes a column name using the family's comparator.
	KindComparator
	// KindValidator decodes a column value using the column's specific
	// validator, falling back to the family default.
	KindValidator
)

// ColumnFamily holds the decoded type metadata for one column family.
// Read-only once built.
type ColumnFamily struct {
	Name             string
	KeyValidator     string
	Comparator       string
	DefaultValidator string
	// Columns maps a column name to its specific validator override.
	Columns map[string]string
}

// ValidatorFor returns the validator class governing the named column's
// value: the per-column override when one exists, the family default
// otherwise.
func (cf *ColumnFamily) ValidatorFor(column []byte) string {
	if v, ok := cf.Columns[string(column)]; ok {
		return v
	}
	return cf.DefaultValidator
}

// TypeSchema maps column-family names to their type metadata. Built once per
// connection during the handshake's learn phase; read-only afterwards.
type TypeSchema map[string]*ColumnFamily

// FromKeyspace builds a TypeSchema from a wire keyspace definition.
func FromKeyspace(ks *transport.KsDef) TypeSchema {
	schema := make(TypeSchema, len(ks.CfDefs))
	for _, cf := range ks.CfDefs {
		family := &ColumnFamily{
			Name:             cf.Name,
			KeyValidator:     cf.KeyValidator,
			Comparator:       cf.Comparator,
			DefaultValidator: cf.DefaultValidator,
			Columns:          make(map[string]string, len(cf.Columns)),
		}
		for _, col := range cf.Columns {
			family.Columns[string(col.Name)] = col.Validator
		}
		schema[cf.Name] = family
	}
	return schema
}

// ColumnFamily looks up a family by name.
func (s TypeSchema) ColumnFamily(name string) (*ColumnFamily, bool) {
	cf, ok := s[name]
	return cf, ok
}

// className strips the marshal-package prefix from a fully qualified
// validator class, so "org.apache.cassandra.db.marshal.UTF8Type" and a bare
// "UTF8Type" decode identically.
func className(validator string) string {
	if i := strings.LastIndexByte(validator, '.'); i >= 0 {
		return validator[i+1:]
	}
	return validator
}
