package synthesizer

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/frauddesk/fraudqa/store"
)

// Validator is the hard gate between the query generator and the store.
// No statement executes without passing it, regardless of how confident
// the model sounded.
type Validator struct {
	schema store.TableSchema
	// maxLimit caps any LIMIT clause; defaultLimit is appended when the
	// statement carries none.
	maxLimit     int
	defaultLimit int

	columns map[string]struct{}
}

// NewValidator builds a validator over the allow-listed schema.
func NewValidator(sch store.TableSchema, defaultLimit, maxLimit int) *Validator {
	if defaultLimit <= 0 {
		defaultLimit = 50
	}
	if maxLimit <= 0 {
		maxLimit = 200
	}
	return &Validator{
		schema:       sch,
		maxLimit:     maxLimit,
		defaultLimit: defaultLimit,
		columns:      sch.ColumnSet(),
	}
}

var (
	// forbiddenRe matches any keyword that could mutate state or escape the
	// read-only contract. Word boundaries keep column names like
	// "trans_date_trans_time" from false-matching.
	forbiddenRe = regexp.MustCompile(`(?i)\b(insert|update|delete|drop|alter|create|replace|truncate|pragma|attach|detach|vacuum|reindex|grant|revoke|merge|into|exec|execute)\b`)

	identRe = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)

	limitRe = regexp.MustCompile(`(?i)\blimit\s+(\d+)`)
)

// sqlVocabulary lists keywords and functions a read-only SQLite SELECT may
// legitimately contain. Identifiers outside this set, the schema and the
// statement's own aliases are rejected.
var sqlVocabulary = map[string]struct{}{
	"select": {}, "from": {}, "where": {}, "group": {}, "order": {}, "by": {},
	"having": {}, "limit": {}, "offset": {}, "as": {}, "and": {}, "or": {},
	"not": {}, "in": {}, "between": {}, "like": {}, "is": {}, "null": {},
	"distinct": {}, "case": {}, "when": {}, "then": {}, "else": {}, "end": {},
	"asc": {}, "desc": {}, "with": {}, "join": {}, "inner": {}, "left": {},
	"on": {}, "union": {}, "all": {}, "exists": {}, "cast": {}, "glob": {},

	// scalar and aggregate functions
	"count": {}, "sum": {}, "avg": {}, "min": {}, "max": {}, "total": {},
	"round": {}, "abs": {}, "lower": {}, "upper": {}, "length": {}, "substr": {},
	"coalesce": {}, "nullif": {}, "iif": {}, "printf": {}, "trim": {},
	"strftime": {}, "date": {}, "time": {}, "datetime": {}, "julianday": {},

	// type names usable in CAST
	"integer": {}, "real": {}, "text": {}, "numeric": {},
}

// Validate checks a candidate statement and returns the form to execute:
// single read-only SELECT, allow-listed references only, bounded LIMIT.
func (v *Validator) Validate(sqlText string) (string, error) {
	stmt := strings.TrimSpace(sqlText)
	if stmt == "" {
		return "", fmt.Errorf("empty statement")
	}

	// Strip a single trailing terminator before the multi-statement check.
	stmt = strings.TrimRight(stmt, "; \t\n")
	if stmt == "" {
		return "", fmt.Errorf("empty statement")
	}
	if strings.Contains(stmt, ";") {
		return "", fmt.Errorf("multiple statements are not allowed")
	}
	if strings.Contains(stmt, "--") || strings.Contains(stmt, "/*") {
		return "", fmt.Errorf("comments are not allowed")
	}

	lower := strings.ToLower(stmt)
	if !strings.HasPrefix(lower, "select") && !strings.HasPrefix(lower, "with") {
		return "", fmt.Errorf("only SELECT statements are allowed")
	}
	if m := forbiddenRe.FindString(stmt); m != "" {
		return "", fmt.Errorf("forbidden keyword %q", strings.ToUpper(m))
	}

	if err := v.checkIdentifiers(stmt); err != nil {
		return "", err
	}

	return v.clampLimit(stmt), nil
}

// checkIdentifiers verifies every bare identifier is either SQL vocabulary,
// the allow-listed table, an allow-listed column, or an alias/CTE name the
// statement itself declares.
func (v *Validator) checkIdentifiers(stmt string) error {
	allowed := make(map[string]struct{}, len(v.columns)+16)
	for c := range v.columns {
		allowed[c] = struct{}{}
	}
	allowed[strings.ToLower(v.schema.Table)] = struct{}{}

	// Collect names declared by the statement: "AS alias" and "WITH cte AS".
	stripped := stripStringLiterals(stmt)
	tokens := identRe.FindAllString(stripped, -1)
	for i, tok := range tokens {
		if strings.EqualFold(tok, "as") && i+1 < len(tokens) {
			allowed[strings.ToLower(tokens[i+1])] = struct{}{}
		}
		if strings.EqualFold(tok, "with") && i+1 < len(tokens) {
			allowed[strings.ToLower(tokens[i+1])] = struct{}{}
		}
	}

	for _, tok := range tokens {
		key := strings.ToLower(tok)
		if _, ok := sqlVocabulary[key]; ok {
			continue
		}
		if _, ok := allowed[key]; ok {
			continue
		}
		return fmt.Errorf("identifier %q is outside the allow-listed schema", tok)
	}
	return nil
}

// clampLimit appends or tightens LIMIT so a runaway aggregate cannot flood
// the evidence bundle.
func (v *Validator) clampLimit(stmt string) string {
	if m := limitRe.FindStringSubmatch(stmt); m != nil {
		n, err := strconv.Atoi(m[1])
		if err == nil && n > v.maxLimit {
			return limitRe.ReplaceAllString(stmt, fmt.Sprintf("LIMIT %d", v.maxLimit))
		}
		return stmt
	}
	return fmt.Sprintf("%s LIMIT %d", stmt, v.defaultLimit)
}

// stripStringLiterals blanks out '...' and "..." contents so literal text
// is not mistaken for identifiers.
func stripStringLiterals(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
				b.WriteByte(' ')
			} else {
				b.WriteByte(' ')
			}
		case c == '\'' || c == '"':
			quote = c
			b.WriteByte(' ')
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
