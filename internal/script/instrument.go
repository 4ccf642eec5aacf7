package script

import (
	"fmt"
	"sort"
	"strings"

	"go.starlark.net/syntax"
)

// instrument inserts a trace hook call before the first line of every
// statement. The returned map gives the source line of each output line.
func instrument(f *syntax.File, lines []string) (string, []int) {
	starts := make(map[int]bool)
	var visit func(stmts []syntax.Stmt)
	visit = func(stmts []syntax.Stmt) {
		for _, stmt := range stmts {
			pos, _ := stmt.Span()
			if traceable(lines, int(pos.Line), int(pos.Col)) {
				starts[int(pos.Line)] = true
			}
			switch s := stmt.(type) {
			case *syntax.DefStmt:
				visit(s.Body)
			case *syntax.ForStmt:
				visit(s.Body)
			case *syntax.WhileStmt:
				visit(s.Body)
			case *syntax.IfStmt:
				visit(s.True)
				visit(s.False)
			}
		}
	}
	visit(f.Stmts)

	ordered := make([]int, 0, len(starts))
	for l := range starts {
		ordered = append(ordered, l)
	}
	sort.Ints(ordered)

	var b strings.Builder
	lineMap := make([]int, 0, len(lines)+len(ordered))
	next := 0
	for i, line := range lines {
		n := i + 1
		if next < len(ordered) && ordered[next] == n {
			fmt.Fprintf(&b, "%s%s(%d)\n", indentOf(line), traceHook, n)
			lineMap = append(lineMap, n)
			next++
		}
		b.WriteString(line)
		if i < len(lines)-1 {
			b.WriteByte('\n')
		}
		lineMap = append(lineMap, n)
	}
	return b.String(), lineMap
}

// traceable reports whether a statement starting at line:col owns its line.
// Statements after a colon or semicolon share a line and an elif branch is
// not a statement of its own.
func traceable(lines []string, line, col int) bool {
	if line < 1 || line > len(lines) {
		return false
	}
	text := lines[line-1]
	indent := indentOf(text)
	if col != len(indent)+1 {
		return false
	}
	return !startsKeyword(text[len(indent):], "elif")
}

func startsKeyword(s, kw string) bool {
	if !strings.HasPrefix(s, kw) {
		return false
	}
	if len(s) == len(kw) {
		return true
	}
	c := s[len(kw)]
	return !(c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9')
}

func indentOf(line string) string {
	return line[:len(line)-len(strings.TrimLeft(line, " \t"))]
}
