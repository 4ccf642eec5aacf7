package script

import (
	"fmt"
	"regexp"
	"strings"

	"go.starlark.net/syntax"

	"github.com/san-kum/drivesim/internal/sim"
)

const moduleName = "aidriver"

var (
	fromImport  = regexp.MustCompile(`^from\s+([\w.]+)\s+import\s+(.+)$`)
	plainImport = regexp.MustCompile(`^import\s+(.+)$`)
)

// exported by the aidriver module
var moduleNames = map[string]bool{
	"AIDriver":       true,
	"hold_state":     true,
	"DEBUG_AIDRIVER": true,
}

var allowedFuncs = map[string]bool{
	"AIDriver":   true,
	"hold_state": true,
	"print":      true,
	"abs":        true,
	"all":        true,
	"any":        true,
	"bool":       true,
	"dict":       true,
	"enumerate":  true,
	"float":      true,
	"int":        true,
	"len":        true,
	"list":       true,
	"max":        true,
	"min":        true,
	"range":      true,
	"repr":       true,
	"reversed":   true,
	"sorted":     true,
	"str":        true,
	"tuple":      true,
	"type":       true,
	"zip":        true,
}

var allowedMethods = map[string]bool{
	// driver
	"drive_forward": true, "drive_backward": true, "rotate_left": true,
	"rotate_right": true, "brake": true, "read_distance": true,
	"set_motor_speeds": true, "get_motor_speeds": true, "is_moving": true,
	"service": true,
	// module
	"AIDriver": true, "hold_state": true,
	// str
	"format": true, "upper": true, "lower": true, "strip": true, "lstrip": true,
	"rstrip": true, "split": true, "join": true, "startswith": true,
	"endswith": true, "replace": true, "find": true, "count": true,
	"title": true, "capitalize": true, "isdigit": true,
	// list, dict
	"append": true, "extend": true, "insert": true, "pop": true, "remove": true,
	"index": true, "clear": true, "get": true, "keys": true, "values": true,
	"items": true, "update": true, "setdefault": true,
}

var hints = map[string]string{
	"sleep":      "use hold_state(seconds) instead of sleep",
	"sleep_ms":   "use hold_state(seconds) instead of sleep_ms",
	"input":      "scripts cannot read keyboard input",
	"open":       "scripts cannot open files",
	"exec":       "exec is not available",
	"eval":       "eval is not available",
	"__import__": "only 'aidriver' can be imported",
}

// translateImports rewrites the import lines of the learner idiom into
// plain statements; aidriver names are predeclared. Any other import is
// rejected. The result has exactly one line per input line.
func translateImports(lines []string) ([]string, error) {
	out := make([]string, len(lines))
	for i := 0; i < len(lines); i++ {
		line := lines[i]
		out[i] = line
		trimmed := stripComment(line)
		indent := line[:len(line)-len(strings.TrimLeft(line, " \t"))]

		if m := fromImport.FindStringSubmatch(trimmed); m != nil {
			if m[1] != moduleName {
				return nil, importError(i+1, m[1])
			}
			start, names := i, m[2]
			if strings.HasPrefix(names, "(") && !strings.Contains(names, ")") {
				// continuation lines stay blank so line numbers hold
				for {
					i++
					if i == len(lines) {
						return nil, &sim.ScriptSyntaxError{Line: start + 1, Msg: "unclosed '(' in aidriver import"}
					}
					out[i] = ""
					next := stripComment(lines[i])
					names += " " + next
					if strings.Contains(next, ")") {
						break
					}
				}
			}
			stmt, err := fromAidriver(start+1, names)
			if err != nil {
				return nil, err
			}
			out[start] = indent + stmt
			continue
		}
		if m := plainImport.FindStringSubmatch(trimmed); m != nil {
			var binds []string
			for _, part := range strings.Split(m[1], ",") {
				name, alias := splitAlias(part)
				if name != moduleName {
					return nil, importError(i+1, name)
				}
				if alias != "" && alias != moduleName {
					binds = append(binds, alias+" = "+moduleName)
				}
			}
			out[i] = indent + joinStmts(binds)
		}
	}
	return out, nil
}

func stripComment(line string) string {
	trimmed := strings.TrimSpace(line)
	if j := strings.IndexByte(trimmed, '#'); j >= 0 {
		trimmed = strings.TrimSpace(trimmed[:j])
	}
	return trimmed
}

func fromAidriver(line int, names string) (string, error) {
	names = strings.Trim(strings.TrimSpace(names), "()")
	if strings.TrimSpace(names) == "*" {
		return "pass", nil
	}
	var binds []string
	for _, part := range strings.Split(names, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		name, alias := splitAlias(part)
		if !moduleNames[name] {
			return "", &sim.ScriptSyntaxError{
				Line: line,
				Msg:  fmt.Sprintf("cannot import name %q from aidriver", name),
			}
		}
		if alias == "" {
			if name != "DEBUG_AIDRIVER" {
				continue
			}
			alias = name
		}
		binds = append(binds, alias+" = "+moduleName+"."+name)
	}
	return joinStmts(binds), nil
}

func splitAlias(part string) (name, alias string) {
	fields := strings.Fields(part)
	switch {
	case len(fields) == 3 && fields[1] == "as":
		return fields[0], fields[2]
	case len(fields) >= 1:
		return fields[0], ""
	}
	return "", ""
}

func joinStmts(stmts []string) string {
	if len(stmts) == 0 {
		return "pass"
	}
	return strings.Join(stmts, "; ")
}

func importError(line int, module string) error {
	msg := fmt.Sprintf("module %q is not available; only 'aidriver' can be imported", module)
	if module == "time" || module == "utime" {
		msg += " (use hold_state(seconds) to wait)"
	}
	return &sim.ScriptSyntaxError{Line: line, Msg: msg}
}

// Check rejects load statements and calls outside the allow-list. Calls to
// functions the script defines itself are always allowed.
func Check(f *syntax.File) error {
	defined := definedNames(f)

	var err error
	walk(f, func(n syntax.Node) bool {
		if err != nil {
			return false
		}
		switch n := n.(type) {
		case *syntax.LoadStmt:
			err = nodeError(n, "load statements are not allowed; use 'from aidriver import ...'")
		case *syntax.CallExpr:
			switch fn := n.Fn.(type) {
			case *syntax.Ident:
				if !allowedFuncs[fn.Name] && !defined[fn.Name] {
					err = callError(fn, fn.Name)
				}
			case *syntax.DotExpr:
				if !allowedMethods[fn.Name.Name] {
					err = callError(fn.Name, fn.Name.Name)
				}
			}
		}
		return true
	})
	return err
}

func callError(n syntax.Node, name string) error {
	msg := fmt.Sprintf("%s() is not available in robot scripts", name)
	if hint, ok := hints[name]; ok {
		msg += "; " + hint
	}
	return nodeError(n, msg)
}

func nodeError(n syntax.Node, msg string) error {
	start, _ := n.Span()
	return &sim.ScriptSyntaxError{Line: int(start.Line), Col: int(start.Col), Msg: msg}
}

// definedNames collects every identifier the script binds.
func definedNames(f *syntax.File) map[string]bool {
	names := make(map[string]bool)
	walk(f, func(n syntax.Node) bool {
		switch n := n.(type) {
		case *syntax.AssignStmt:
			bindTargets(n.LHS, names)
		case *syntax.DefStmt:
			names[n.Name.Name] = true
			bindParams(n.Params, names)
		case *syntax.LambdaExpr:
			bindParams(n.Params, names)
		case *syntax.ForStmt:
			bindTargets(n.Vars, names)
		case *syntax.ForClause:
			bindTargets(n.Vars, names)
		}
		return true
	})
	return names
}

func bindTargets(e syntax.Expr, names map[string]bool) {
	switch e := e.(type) {
	case *syntax.Ident:
		names[e.Name] = true
	case *syntax.TupleExpr:
		for _, x := range e.List {
			bindTargets(x, names)
		}
	case *syntax.ListExpr:
		for _, x := range e.List {
			bindTargets(x, names)
		}
	case *syntax.ParenExpr:
		bindTargets(e.X, names)
	}
}

func bindParams(params []syntax.Expr, names map[string]bool) {
	for _, p := range params {
		switch p := p.(type) {
		case *syntax.Ident:
			names[p.Name] = true
		case *syntax.BinaryExpr:
			bindTargets(p.X, names)
		case *syntax.UnaryExpr:
			if p.X != nil {
				bindTargets(p.X, names)
			}
		}
	}
}

// walk is syntax.Walk with while loops. Statements are visited here and
// expressions are handed to syntax.Walk, which never meets a statement.
func walk(f *syntax.File, fn func(syntax.Node) bool) {
	if fn(f) {
		walkStmts(f.Stmts, fn)
	}
}

func walkStmts(stmts []syntax.Stmt, fn func(syntax.Node) bool) {
	for _, stmt := range stmts {
		walkStmt(stmt, fn)
	}
}

func walkStmt(stmt syntax.Stmt, fn func(syntax.Node) bool) {
	if !fn(stmt) {
		return
	}
	switch s := stmt.(type) {
	case *syntax.ExprStmt:
		walkExpr(s.X, fn)
	case *syntax.IfStmt:
		walkExpr(s.Cond, fn)
		walkStmts(s.True, fn)
		walkStmts(s.False, fn)
	case *syntax.WhileStmt:
		walkExpr(s.Cond, fn)
		walkStmts(s.Body, fn)
	case *syntax.ForStmt:
		walkExpr(s.Vars, fn)
		walkExpr(s.X, fn)
		walkStmts(s.Body, fn)
	case *syntax.AssignStmt:
		walkExpr(s.LHS, fn)
		walkExpr(s.RHS, fn)
	case *syntax.DefStmt:
		walkExpr(s.Name, fn)
		for _, param := range s.Params {
			walkExpr(param, fn)
		}
		walkStmts(s.Body, fn)
	case *syntax.ReturnStmt:
		walkExpr(s.Result, fn)
	}
}

func walkExpr(e syntax.Expr, fn func(syntax.Node) bool) {
	if e != nil {
		syntax.Walk(e, fn)
	}
}
