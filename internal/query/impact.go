package query

import (
	"sort"

	"codeindex/internal/storage"
)

const (
	directCallerLimit     = 50
	indirectCallerLimit   = 20
	transitiveOutputLimit = 30
)

// Impact describes what is likely to break when a symbol changes. The
// transitive list is capped for output; the score uses the uncapped count.
type Impact struct {
	Symbol            string                          `json:"symbol"`
	Kind              string                          `json:"kind,omitempty"`
	DirectCallers     []storage.CallerInfo            `json:"direct_callers"`
	TransitiveCallers []storage.CallerInfo            `json:"transitive_callers"`
	FilesAffected     []string                        `json:"files_affected"`
	ImpactScore       float64                         `json:"impact_score"`
	MembersAnalyzed   []string                        `json:"members_analyzed,omitempty"`
	CallersByMember   map[string][]storage.CallerInfo `json:"direct_callers_by_member,omitempty"`
}

// GetImpact computes direct callers plus one hop of transitive callers for
// a symbol. When name resolves to a class, the analysis covers the class
// name (constructor calls) and every member method.
func (e *Engine) GetImpact(name string) (*Impact, error) {
	exact, err := e.db.FindSymbolsExact(name, "", 1)
	if err != nil {
		return nil, err
	}
	if len(exact) > 0 && exact[0].Kind == "class" {
		return e.classImpact(&exact[0])
	}

	direct, err := e.db.Callers(name, directCallerLimit)
	if err != nil {
		return nil, err
	}

	directNames := make(map[string]bool)
	files := make(map[string]bool)
	for _, c := range direct {
		if c.CallerName != "" {
			directNames[c.CallerName] = true
		}
		files[c.File] = true
	}

	transitive, err := e.transitiveCallers(directNames, map[string]bool{name: true}, files)
	if err != nil {
		return nil, err
	}

	imp := &Impact{
		Symbol:            name,
		DirectCallers:     direct,
		TransitiveCallers: capCallers(transitive, transitiveOutputLimit),
		FilesAffected:     sortedKeys(files),
		ImpactScore:       float64(len(direct)) + 0.5*float64(len(transitive)),
	}
	if len(exact) > 0 {
		imp.Kind = exact[0].Kind
	}
	return imp, nil
}

// classImpact analyzes a class by querying callers of its name and of
// every member method, excluding the class's own internal calls, then adds
// one transitive hop.
func (e *Engine) classImpact(class *storage.Symbol) (*Impact, error) {
	members, err := e.db.MethodsOfClass(class.ID)
	if err != nil {
		return nil, err
	}

	analyzed := []string{class.Name}
	for _, m := range members {
		analyzed = append(analyzed, m.Name)
	}

	var direct []storage.CallerInfo
	byMember := make(map[string][]storage.CallerInfo)
	seen := make(map[callerKey]bool)
	files := make(map[string]bool)
	directNames := make(map[string]bool)

	for _, name := range analyzed {
		callers, err := e.db.Callers(name, directCallerLimit)
		if err != nil {
			return nil, err
		}
		for _, c := range callers {
			if c.CallerClass == class.Name {
				continue
			}
			key := callerKey{c.CallerName, c.File, c.Line}
			if seen[key] {
				continue
			}
			seen[key] = true

			direct = append(direct, c)
			byMember[name] = append(byMember[name], c)
			files[c.File] = true
			if c.CallerName != "" {
				directNames[c.CallerName] = true
			}
		}
	}

	// Member names themselves never count as transitive finds.
	exclude := make(map[string]bool, len(analyzed))
	for _, name := range analyzed {
		exclude[name] = true
	}

	transitive, err := e.transitiveCallers(directNames, exclude, files)
	if err != nil {
		return nil, err
	}

	return &Impact{
		Symbol:            class.Name,
		Kind:              "class",
		DirectCallers:     direct,
		TransitiveCallers: capCallers(transitive, transitiveOutputLimit),
		FilesAffected:     sortedKeys(files),
		ImpactScore:       float64(len(direct)) + 0.5*float64(len(transitive)),
		MembersAnalyzed:   analyzed,
		CallersByMember:   byMember,
	}, nil
}

// transitiveCallers walks one hop out from the direct caller set. Names in
// directNames or exclude never appear in the result; files accumulates the
// touched file paths.
func (e *Engine) transitiveCallers(directNames, exclude map[string]bool, files map[string]bool) ([]storage.CallerInfo, error) {
	var transitive []storage.CallerInfo
	for _, callerName := range sortedKeys(directNames) {
		indirect, err := e.db.Callers(callerName, indirectCallerLimit)
		if err != nil {
			return nil, err
		}
		for _, c := range indirect {
			if directNames[c.CallerName] || exclude[c.CallerName] {
				continue
			}
			transitive = append(transitive, c)
			files[c.File] = true
		}
	}
	return transitive, nil
}

type callerKey struct {
	name string
	file string
	line int
}

func capCallers(callers []storage.CallerInfo, limit int) []storage.CallerInfo {
	if len(callers) > limit {
		return callers[:limit]
	}
	return callers
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
