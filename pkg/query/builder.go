package query

import (
	"fmt"
	"regexp"
	"strings"
)

// Op is a comparison operator usable in a filter.
type Op string

const (
	OpEq   Op = "="
	OpNeq  Op = "<>"
	OpGt   Op = ">"
	OpGte  Op = ">="
	OpLt   Op = "<"
	OpLte  Op = "<="
	OpLike Op = "ILIKE"
	OpIn   Op = "IN"
)

// Filter is one typed predicate over a column. Filters replace ad hoc string
// concatenation: values always travel as bind parameters, and column names
// are validated as identifiers.
type Filter struct {
	Column string
	Op     Op
	Value  any
}

// identifierPattern accepts plain or dotted identifiers (table.column).
var identifierPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*(\.[a-zA-Z_][a-zA-Z0-9_]*)?$`)

var validOps = map[Op]bool{
	OpEq: true, OpNeq: true, OpGt: true, OpGte: true,
	OpLt: true, OpLte: true, OpLike: true, OpIn: true,
}

// BuildWhere renders filters into a WHERE clause with positional parameters
// starting at $startIndex, returning the clause (without the WHERE keyword)
// and the ordered bind values. An empty filter list yields an empty clause.
func BuildWhere(filters []Filter, startIndex int) (string, []any, error) {
	if startIndex < 1 {
		startIndex = 1
	}
	if len(filters) == 0 {
		return "", nil, nil
	}

	var clauses []string
	var args []any
	n := startIndex

	for _, f := range filters {
		if !identifierPattern.MatchString(f.Column) {
			return "", nil, fmt.Errorf("invalid filter column %q", f.Column)
		}
		if !validOps[f.Op] {
			return "", nil, fmt.Errorf("invalid filter operator %q", f.Op)
		}

		if f.Op == OpIn {
			// pgx binds Go slices to Postgres arrays, so IN becomes = ANY.
			clauses = append(clauses, fmt.Sprintf("%s = ANY($%d)", f.Column, n))
		} else {
			clauses = append(clauses, fmt.Sprintf("%s %s $%d", f.Column, f.Op, n))
		}
		args = append(args, f.Value)
		n++
	}

	return strings.Join(clauses, " AND "), args, nil
}
