package storage

// File is one indexed source file.
type File struct {
	ID         int64  `json:"file_id"`
	RelPath    string `json:"rel_path"`
	FileHash   string `json:"file_hash"`
	Language   string `json:"language"`
	LineCount  int    `json:"line_count"`
	ParseError string `json:"parse_error,omitempty"`
	IndexedAt  string `json:"indexed_at"`
}

// Param is one function parameter as stored in params_json.
type Param struct {
	Name    string `json:"name"`
	Type    string `json:"type,omitempty"`
	Default string `json:"default,omitempty"`
}

// Symbol is a definition extracted from a file. Parent fields are populated
// on reads that join the parent symbol.
type Symbol struct {
	ID         int64    `json:"symbol_id"`
	FileID     int64    `json:"-"`
	ParentID   *int64   `json:"-"`
	Kind       string   `json:"kind"`
	Name       string   `json:"name"`
	Params     []Param  `json:"params"`
	ReturnType string   `json:"return_type,omitempty"`
	Decorators []string `json:"decorators,omitempty"`
	Bases      []string `json:"bases,omitempty"`
	Docstring  string   `json:"docstring,omitempty"`
	LineStart  int      `json:"line_start"`
	LineEnd    int      `json:"line_end"`
	Complexity int      `json:"complexity"`
	IsAsync    bool     `json:"is_async"`

	File       string `json:"file,omitempty"`
	ParentName string `json:"parent_name,omitempty"`
	ParentKind string `json:"parent_kind,omitempty"`
}

// QualifiedName returns Parent.Name when the symbol has a parent, else Name.
func (s *Symbol) QualifiedName() string {
	if s.ParentName != "" {
		return s.ParentName + "." + s.Name
	}
	return s.Name
}

// Call is one call site.
type Call struct {
	ID         int64  `json:"-"`
	FileID     int64  `json:"-"`
	CallerID   *int64 `json:"-"`
	CalleeExpr string `json:"callee_expr"`
	LineNo     int    `json:"line"`
}

// CallerInfo describes a call site that targets some symbol, with the
// enclosing caller resolved when known.
type CallerInfo struct {
	File        string `json:"file"`
	Line        int    `json:"line"`
	CalleeExpr  string `json:"callee_expr"`
	CallerName  string `json:"caller_name,omitempty"`
	CallerKind  string `json:"caller_kind,omitempty"`
	CallerClass string `json:"caller_class,omitempty"`
}

// Ref is a non-call reference to a name.
type Ref struct {
	ID       int64  `json:"-"`
	FileID   int64  `json:"-"`
	SymbolID *int64 `json:"-"`
	RefKind  string `json:"ref_kind"`
	Target   string `json:"target"`
	Name     string `json:"name"`
	LineNo   int    `json:"line"`
	File     string `json:"file,omitempty"`
}

// Import is one import statement.
type Import struct {
	ID     int64  `json:"-"`
	FileID int64  `json:"-"`
	Module string `json:"module"`
	Name   string `json:"name,omitempty"`
	Alias  string `json:"alias,omitempty"`
	IsFrom bool   `json:"is_from"`
	LineNo int    `json:"line"`
	File   string `json:"file,omitempty"`
}

// Rule is a stored analysis rule. Query holds a read-only SELECT over the
// index tables.
type Rule struct {
	ID          string  `json:"rule_id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Severity    string  `json:"severity"`
	Query       string  `json:"query"`
	IsBuiltin   bool    `json:"is_builtin"`
	Enabled     bool    `json:"enabled"`
	Weight      float64 `json:"weight"`
	LearnedFrom string  `json:"learned_from,omitempty"`
	CreatedAt   string  `json:"created_at"`
}

// RuleRun records one execution of a rule.
type RuleRun struct {
	ID            int64  `json:"run_id"`
	RuleID        string `json:"rule_id"`
	FindingsCount int    `json:"findings_count"`
	UsefulCount   int    `json:"useful_count"`
	RanAt         string `json:"ran_at"`
}

// RuleEffectiveness aggregates rule_runs per rule.
type RuleEffectiveness struct {
	RuleID        string  `json:"rule_id"`
	Name          string  `json:"name"`
	Severity      string  `json:"severity"`
	Enabled       bool    `json:"enabled"`
	Weight        float64 `json:"weight"`
	TotalRuns     int     `json:"total_runs"`
	TotalFindings int     `json:"total_findings"`
	TotalUseful   int     `json:"total_useful"`
}

// Diagnostic is one rule finding attached to a file.
type Diagnostic struct {
	ID         int64  `json:"diag_id"`
	FileID     int64  `json:"-"`
	RuleID     string `json:"rule_id"`
	Severity   string `json:"severity"`
	Message    string `json:"message"`
	LineNo     int    `json:"line"`
	Context    string `json:"context,omitempty"`
	IsResolved bool   `json:"is_resolved"`
	FirstSeen  string `json:"first_seen"`
	LastSeen   string `json:"last_seen"`
	File       string `json:"file,omitempty"`
}

// Session is one editing session.
type Session struct {
	ID             int64  `json:"session_id"`
	StartedAt      string `json:"started_at"`
	EndedAt        string `json:"ended_at,omitempty"`
	TranscriptPath string `json:"transcript_path,omitempty"`
	Summary        string `json:"summary,omitempty"`
	ChangeCount    int    `json:"change_count"`
}

// Change is one file change attributed to a session.
type Change struct {
	ID         int64  `json:"-"`
	SessionID  int64  `json:"session_id"`
	FileID     int64  `json:"-"`
	ChangeType string `json:"change_type"`
	OldHash    string `json:"old_hash,omitempty"`
	NewHash    string `json:"new_hash,omitempty"`
	ChangedAt  string `json:"changed_at"`
	File       string `json:"file,omitempty"`
}

// Annotation is a free-form note attached to a symbol or file. TargetPath
// and TargetSymbol are the authoritative identity; the FK columns are
// resolution caches that may go stale across rebuilds.
type Annotation struct {
	ID           int64  `json:"annotation_id"`
	FileID       *int64 `json:"-"`
	SymbolID     *int64 `json:"-"`
	TargetPath   string `json:"target_path,omitempty"`
	TargetSymbol string `json:"target_symbol,omitempty"`
	Text         string `json:"text"`
	Author       string `json:"author"`
	CreatedAt    string `json:"created_at"`
}

// FTSHit is one full-text search result. Score is the negated FTS rank so
// larger means better.
type FTSHit struct {
	RelPath     string  `json:"file"`
	SymbolNames string  `json:"symbol_names"`
	Docstrings  string  `json:"docstrings,omitempty"`
	Score       float64 `json:"score"`
}

// Stats summarizes the index contents. Diagnostics counts unresolved
// findings keyed by severity.
type Stats struct {
	Files       int            `json:"files"`
	Symbols     int            `json:"symbols"`
	Classes     int            `json:"classes"`
	Functions   int            `json:"functions"`
	Calls       int            `json:"calls"`
	Refs        int            `json:"refs"`
	Imports     int            `json:"imports"`
	Diagnostics map[string]int `json:"diagnostics"`
	ParseErrors int            `json:"parse_errors"`
}
