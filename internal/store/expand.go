package store

import (
	"strconv"
	"strings"

	"github.com/roach88/predsql/internal/dialect"
	"github.com/roach88/predsql/internal/ir"
	"github.com/roach88/predsql/internal/querysql"
)

// emptySet is a row source with no rows. x IN emptySet is false and
// x NOT IN emptySet is true, for any x.
const emptySet = "(SELECT 1 WHERE 1 = 0)"

// ExpandArrays rewrites every array-valued parameter of stmt into one
// scalar parameter per element, named <key>_<i>. d supplies the placeholder
// prefix the statement was emitted with. Scalar parameters and their order
// are preserved; element parameters take the place of their array.
func ExpandArrays(stmt querysql.Statement, d dialect.Dialect) querysql.Statement {
	if !stmt.HasArrays() {
		return stmt
	}

	replacements := make(map[string]string)
	params := make([]querysql.Param, 0, len(stmt.Params))
	for _, p := range stmt.Params {
		arr, ok := p.Value.(ir.IRArray)
		if !ok {
			params = append(params, p)
			continue
		}
		if len(arr) == 0 {
			replacements[p.Name] = emptySet
			continue
		}
		placeholders := make([]string, len(arr))
		for i, elem := range arr {
			name := p.Name + "_" + strconv.Itoa(i)
			placeholders[i] = d.Placeholder(name)
			params = append(params, querysql.Param{Name: name, Value: elem})
		}
		replacements[p.Name] = "(" + strings.Join(placeholders, ", ") + ")"
	}

	return querysql.Statement{
		SQL:    replacePlaceholders(stmt.SQL, d, replacements),
		Params: params,
	}
}

// replacePlaceholders substitutes whole placeholder tokens. @Id_p1 never
// matches inside @Id_p10, and quoted identifiers are copied verbatim.
func replacePlaceholders(sql string, d dialect.Dialect, replacements map[string]string) string {
	var out strings.Builder
	out.Grow(len(sql))

	for i := 0; i < len(sql); {
		if d.Quote != 0 && sql[i] == d.Quote {
			end := closingQuote(sql, i, d.Quote)
			out.WriteString(sql[i:end])
			i = end
			continue
		}
		if strings.HasPrefix(sql[i:], d.Prefix) {
			start := i + len(d.Prefix)
			end := start
			for end < len(sql) && isIdentByte(sql[end]) {
				end++
			}
			if repl, ok := replacements[sql[start:end]]; ok && end > start {
				out.WriteString(repl)
				i = end
				continue
			}
		}
		out.WriteByte(sql[i])
		i++
	}
	return out.String()
}

// closingQuote returns the index just past the quoted identifier starting
// at i. Doubled quotes inside the identifier are skipped.
func closingQuote(sql string, i int, q byte) int {
	for j := i + 1; j < len(sql); j++ {
		if sql[j] != q {
			continue
		}
		if j+1 < len(sql) && sql[j+1] == q {
			j++
			continue
		}
		return j + 1
	}
	return len(sql)
}

func isIdentByte(c byte) bool {
	return c == '_' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= 0x80
}
