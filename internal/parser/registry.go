package parser

import (
	"path/filepath"
	"sort"
	"strings"
)

// Registry maps file extensions to language parsers.
type Registry struct {
	byExt map[string]Parser
}

// NewRegistry creates a registry with all supported languages registered.
func NewRegistry() *Registry {
	r := &Registry{byExt: make(map[string]Parser)}
	r.register(NewPython())
	return r
}

func (r *Registry) register(p Parser) {
	for _, ext := range p.Extensions() {
		r.byExt[ext] = p
	}
}

// ForPath returns the parser for a file, or nil if the extension is
// unsupported.
func (r *Registry) ForPath(path string) Parser {
	ext := strings.ToLower(filepath.Ext(path))
	return r.byExt[ext]
}

// Extensions returns all extensions the registry can parse, sorted.
func (r *Registry) Extensions() []string {
	exts := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}
