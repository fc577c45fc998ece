package client

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/cespare/xxhash"
)

// Bind substitutes positional `?` placeholders in template with the string
// form of each argument, quote-escaped and wrapped in single quotes, and
// returns the wire-ready payload. With no arguments the template passes
// through untouched. A nil argument anywhere rejects the whole statement
// before any substitution.
func Bind(template string, args []interface{}) ([]byte, error) {
	if len(args) == 0 {
		return []byte(template), nil
	}
	for i, a := range args {
		if a == nil {
			return nil, &BindError{Position: i, Message: "null/undefined query parameter"}
		}
	}

	var b strings.Builder
	b.Grow(len(template))
	next := 0
	for _, r := range template {
		if r == '?' && next < len(args) {
			b.WriteString(quote(args[next]))
			next++
			continue
		}
		b.WriteRune(r)
	}
	return []byte(b.String()), nil
}

// quote renders an argument as a CQL string literal with embedded single
// quotes doubled.
func quote(v interface{}) string {
	return "'" + strings.ReplaceAll(displayString(v), "'", "''") + "'"
}

func displayString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}

// selectFromRe captures the column-family identifier of a SELECT statement:
// the first FROM clause's unquoted or singly-quoted identifier. This lexical
// scan is a contract of the input, not a parser; multi-line statements and
// qualified names are outside the supported subset.
var selectFromRe = regexp.MustCompile(`(?i)^\s*select\s+.+?\s+from\s+'?([A-Za-z0-9_]+)'?`)

// cfCache memoizes statement → column-family extraction, keyed by statement
// hash. Bounded by reset to keep pathological workloads from growing it
// without limit.
var cfCache = struct {
	sync.Mutex
	m map[uint64]string
}{m: make(map[uint64]string)}

const cfCacheLimit = 4096

// extractColumnFamily returns the target column-family name of a SELECT
// statement, or false when the statement has no recognizable FROM clause.
func extractColumnFamily(stmt string) (string, bool) {
	key := xxhash.Sum64String(stmt)

	cfCache.Lock()
	if name, ok := cfCache.m[key]; ok {
		cfCache.Unlock()
		return name, name != ""
	}
	cfCache.Unlock()

	name := ""
	if m := selectFromRe.FindStringSubmatch(stmt); m != nil {
		name = m[1]
	}

	cfCache.Lock()
	if len(cfCache.m) >= cfCacheLimit {
		cfCache.m = make(map[uint64]string)
	}
	cfCache.m[key] = name
	cfCache.Unlock()

	return name, name != ""
}
