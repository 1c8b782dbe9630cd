package query

import (
	"strings"

	"codeindex/internal/storage"
)

// pythonBuiltins are names treated as language built-ins when categorizing
// callee expressions.
var pythonBuiltins = map[string]bool{
	"abs": true, "all": true, "any": true, "bool": true, "bytes": true,
	"callable": true, "dict": true, "enumerate": true, "filter": true,
	"float": true, "format": true, "getattr": true, "hasattr": true,
	"hash": true, "id": true, "int": true, "isinstance": true,
	"issubclass": true, "iter": true, "len": true, "list": true,
	"map": true, "max": true, "min": true, "next": true, "open": true,
	"print": true, "range": true, "repr": true, "round": true,
	"set": true, "setattr": true, "sorted": true, "str": true,
	"sum": true, "super": true, "tuple": true, "type": true, "zip": true,
}

// categorizeCallees tags each outgoing call with a receiver category. This
// is a string heuristic over the callee expression, not a resolved
// reference: self.x() is a self_method, self.a.b() a self_attr_method, a
// known built-in name is builtin, any other dotted expression is external,
// and a bare name is local.
func categorizeCallees(calls []storage.Call) []Callee {
	callees := make([]Callee, 0, len(calls))
	for _, c := range calls {
		callees = append(callees, Callee{
			CalleeExpr: c.CalleeExpr,
			Line:       c.LineNo,
			Category:   categorizeCallee(c.CalleeExpr),
		})
	}
	return callees
}

func categorizeCallee(expr string) string {
	parts := strings.Split(expr, ".")
	if parts[0] == "self" {
		switch {
		case len(parts) == 2:
			return "self_method"
		case len(parts) > 2:
			return "self_attr_method"
		}
	}
	if pythonBuiltins[parts[len(parts)-1]] {
		return "builtin"
	}
	if len(parts) > 1 && parts[0] != "self" {
		return "external"
	}
	return "local"
}
