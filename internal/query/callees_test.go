package query

import "testing"

func TestCategorizeCallee(t *testing.T) {
	tests := []struct {
		expr string
		want string
	}{
		{"self.refresh", "self_method"},
		{"self.bus.task_done.connect", "self_attr_method"},
		{"print", "builtin"},
		{"len", "builtin"},
		{"os.path.join", "external"},
		{"json.dumps", "external"},
		{"helper_function", "local"},
		{"TaskManager", "local"},
		{"self", "local"},
		// The built-in check looks at the last segment only, so a dotted
		// expression ending in a built-in name still counts as builtin.
		{"pathlib.Path.open", "builtin"},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			if got := categorizeCallee(tt.expr); got != tt.want {
				t.Errorf("categorizeCallee(%q) = %q, want %q", tt.expr, got, tt.want)
			}
		})
	}
}
