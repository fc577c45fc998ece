package client

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/strataio/cassgo/schema"
	"github.com/strataio/cassgo/transport"
)

// ColumnValue is one decoded name/value pair of a row.
type ColumnValue struct {
	Name  interface{}
	Value interface{}
}

// Row is one decoded row: its key plus the present columns in server order.
// Columns whose wire value was absent or empty are excluded entirely.
// Immutable once constructed.
type Row struct {
	Key     interface{}
	Columns []ColumnValue

	byName map[string]interface{}
}

// Get looks a column value up by the string form of its decoded name.
func (r *Row) Get(name string) (interface{}, bool) {
	v, ok := r.byName[name]
	return v, ok
}

// Result is the shaped outcome of an executed statement: a row set, a scalar
// count, or nothing.
type Result struct {
	kind  transport.ResultKind
	rows  []*Row
	count int64
}

// Kind reports the result shape.
func (r *Result) Kind() transport.ResultKind { return r.kind }

// Rows returns the decoded rows of a row-set result.
func (r *Result) Rows() []*Row { return r.rows }

// RowCount returns the number of rows actually decoded.
func (r *Result) RowCount() int { return len(r.rows) }

// Count returns the value of a scalar-count result.
func (r *Result) Count() int64 { return r.count }

// Void reports whether the operation was acknowledged with nothing to report.
func (r *Result) Void() bool { return r.kind == transport.KindVoid }

// shapeResult maps a raw result envelope into a Result. An absent envelope is
// a hard failure, not an empty success. Row decoding resolves the target
// column family from the statement's FROM clause; a family missing from the
// learned schema decodes with bare defaults (raw bytes).
func shapeResult(res *transport.CqlResult, stmt string, types schema.TypeSchema, dec schema.Decoder, info ConnectionInfo) (*Result, error) {
	if res == nil {
		return nil, &NoResultsError{Info: info}
	}

	switch res.Kind {
	case transport.KindVoid:
		return &Result{kind: transport.KindVoid}, nil

	case transport.KindInt:
		return &Result{kind: transport.KindInt, count: res.Num}, nil

	case transport.KindRows:
		var cf *schema.ColumnFamily
		if name, ok := extractColumnFamily(stmt); ok {
			cf, _ = types.ColumnFamily(name)
		}
		rows := make([]*Row, 0, len(res.Rows))
		for i := range res.Rows {
			row, err := buildRow(&res.Rows[i], cf, dec)
			if err != nil {
				return nil, errors.Wrapf(err, "decoding row %d", i)
			}
			rows = append(rows, row)
		}
		return &Result{kind: transport.KindRows, rows: rows}, nil

	default:
		return nil, errors.Errorf("unrecognized result kind %d", res.Kind)
	}
}

func buildRow(raw *transport.CqlRow, cf *schema.ColumnFamily, dec schema.Decoder) (*Row, error) {
	key, err := dec.Decode(raw.Key, cf, schema.KindKey, nil)
	if err != nil {
		return nil, errors.Wrap(err, "decoding row key")
	}

	row := &Row{
		Key:     key,
		Columns: make([]ColumnValue, 0, len(raw.Columns)),
		byName:  make(map[string]interface{}, len(raw.Columns)),
	}
	for _, col := range raw.Columns {
		if len(col.Value) == 0 {
			continue
		}
		name, err := dec.Decode(col.Name, cf, schema.KindComparator, nil)
		if err != nil {
			return nil, errors.Wrapf(err, "decoding column name %q", col.Name)
		}
		value, err := dec.Decode(col.Value, cf, schema.KindValidator, col.Name)
		if err != nil {
			return nil, errors.Wrapf(err, "decoding column %q value", col.Name)
		}
		row.Columns = append(row.Columns, ColumnValue{Name: name, Value: value})
		row.byName[stringifyName(name)] = value
	}
	return row, nil
}

func stringifyName(name interface{}) string {
	switch t := name.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}
