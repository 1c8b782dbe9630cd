// Package indexer walks a project tree, parses every supported source file,
// and keeps the index database congruent with what is on disk. Change
// detection is content-hash based: a file whose bytes are unchanged is never
// re-parsed.
package indexer

import (
	"bytes"
	"context"
	"database/sql"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"codeindex/internal/logging"
	"codeindex/internal/parser"
	"codeindex/internal/storage"
)

// alwaysSkipDirs are directory names never worth walking, independent of any
// ignore pattern.
var alwaysSkipDirs = map[string]bool{
	"__pycache__":   true,
	".git":          true,
	".hg":           true,
	".svn":          true,
	"node_modules":  true,
	".venv":         true,
	"venv":          true,
	"env":           true,
	"build":         true,
	"dist":          true,
	".eggs":         true,
	".mypy_cache":   true,
	".pytest_cache": true,
	".tox":          true,
	".nox":          true,
}

// SourceFile pairs a file's absolute path with its forward-slash path
// relative to the project root.
type SourceFile struct {
	AbsPath string
	RelPath string
}

// ChangeCounts reports what an incremental update did.
type ChangeCounts struct {
	Added   int `json:"added"`
	Changed int `json:"changed"`
	Removed int `json:"removed"`
}

// Indexer scans a project and writes extraction results to the store.
type Indexer struct {
	db       *storage.DB
	registry *parser.Registry
	root     string
	ignore   *IgnoreMatcher
	log      *logging.Logger
}

// New creates an indexer rooted at projectRoot. extraIgnore patterns are
// evaluated before the project's .gitignore entries, so a .gitignore line
// can override them.
func New(db *storage.DB, projectRoot string, extraIgnore []string, log *logging.Logger) *Indexer {
	root, err := filepath.Abs(projectRoot)
	if err != nil {
		root = projectRoot
	}

	patterns := append([]string{}, extraIgnore...)
	if data, err := os.ReadFile(filepath.Join(root, ".gitignore")); err == nil {
		patterns = append(patterns, strings.Split(string(data), "\n")...)
	}

	return &Indexer{
		db:       db,
		registry: parser.NewRegistry(),
		root:     root,
		ignore:   NewIgnoreMatcher(patterns),
		log:      log,
	}
}

// Root returns the absolute project root the indexer scans.
func (ix *Indexer) Root() string {
	return ix.root
}

// ShouldSkipDir reports whether a directory is excluded from scans. name is
// the directory's base name and rel its forward-slash path relative to the
// root.
func (ix *Indexer) ShouldSkipDir(name, rel string) bool {
	if alwaysSkipDirs[name] || strings.HasSuffix(name, ".egg-info") {
		return true
	}
	return ix.ignore.Match(rel, true)
}

// IsSourcePath reports whether a relative path would be picked up by
// discovery, judged by extension and ignore patterns alone. It does not
// touch the filesystem, so it also works for paths that no longer exist.
func (ix *Indexer) IsSourcePath(rel string) bool {
	if ix.registry.ForPath(rel) == nil {
		return false
	}
	return !ix.ignore.Match(rel, false)
}

// DiscoverFiles walks the project and returns every parseable file that is
// not excluded by the skip list or the ignore patterns, in walk order.
func (ix *Indexer) DiscoverFiles() []SourceFile {
	var files []SourceFile
	filepath.WalkDir(ix.root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		rel, relErr := filepath.Rel(ix.root, path)
		if relErr != nil || rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if ix.ShouldSkipDir(d.Name(), rel) {
				return filepath.SkipDir
			}
			return nil
		}

		if ix.IsSourcePath(rel) {
			files = append(files, SourceFile{AbsPath: path, RelPath: rel})
		}
		return nil
	})
	return files
}

// FullRebuild clears all indexed state and re-parses every discovered file
// inside a single transaction. It records the rebuild in the knowledge table
// and returns the resulting index statistics.
func (ix *Indexer) FullRebuild(ctx context.Context) (*storage.Stats, error) {
	start := time.Now()

	if err := ix.db.ClearForRebuild(); err != nil {
		return nil, err
	}

	files := ix.DiscoverFiles()
	err := ix.db.WithTx(func(tx *sql.Tx) error {
		for _, f := range files {
			if err := ix.indexFile(ctx, tx, f); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	stats, err := ix.db.GetStats()
	if err != nil {
		return nil, err
	}

	elapsed := math.Round(time.Since(start).Seconds()*100) / 100
	err = ix.db.SetKnowledge("last_rebuild", map[string]interface{}{
		"timestamp":       time.Now().Format(time.RFC3339),
		"elapsed_seconds": elapsed,
		"files_indexed":   stats.Files,
	})
	if err != nil {
		return nil, err
	}

	ix.log.Info("Full rebuild complete", map[string]interface{}{
		"files":   stats.Files,
		"symbols": stats.Symbols,
		"elapsed": elapsed,
	})
	return stats, nil
}

// Incremental re-indexes only new and changed files and drops rows for files
// no longer on disk. A file whose stored hash matches its current contents
// is left untouched.
func (ix *Indexer) Incremental(ctx context.Context) (*ChangeCounts, error) {
	files := ix.DiscoverFiles()
	current := make(map[string]bool, len(files))
	for _, f := range files {
		current[f.RelPath] = true
	}

	stored, err := ix.db.FileHashes()
	if err != nil {
		return nil, err
	}

	counts := &ChangeCounts{}

	var vanished []string
	for rel := range stored {
		if !current[rel] {
			vanished = append(vanished, rel)
		}
	}
	sort.Strings(vanished)
	for _, rel := range vanished {
		if err := ix.db.DeleteFile(rel); err != nil {
			return nil, err
		}
		counts.Removed++
	}

	err = ix.db.WithTx(func(tx *sql.Tx) error {
		for _, f := range files {
			hash, hashErr := HashFile(f.AbsPath)
			if hashErr != nil {
				hash = ""
			}
			storedHash, exists := stored[f.RelPath]
			switch {
			case !exists:
				if err := ix.indexFile(ctx, tx, f); err != nil {
					return err
				}
				counts.Added++
			case storedHash != hash:
				if err := ix.db.DeleteFileTx(tx, f.RelPath); err != nil {
					return err
				}
				if err := ix.indexFile(ctx, tx, f); err != nil {
					return err
				}
				counts.Changed++
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	ix.log.Info("Incremental update complete", map[string]interface{}{
		"added":   counts.Added,
		"changed": counts.Changed,
		"removed": counts.Removed,
	})
	return counts, nil
}

// ReindexFile unconditionally re-indexes a single file, or removes its rows
// when the file no longer exists on disk.
func (ix *Indexer) ReindexFile(ctx context.Context, relPath string) error {
	relPath = filepath.ToSlash(relPath)
	absPath := filepath.Join(ix.root, filepath.FromSlash(relPath))

	if _, err := os.Stat(absPath); err != nil {
		return ix.db.DeleteFile(relPath)
	}

	if err := ix.db.DeleteFile(relPath); err != nil {
		return err
	}
	return ix.db.WithTx(func(tx *sql.Tx) error {
		return ix.indexFile(ctx, tx, SourceFile{AbsPath: absPath, RelPath: relPath})
	})
}

// indexFile parses one file and stores everything extracted from it. A read
// failure stores a marker row with an empty hash and the error text, so the
// file is retried once it becomes readable again.
func (ix *Indexer) indexFile(ctx context.Context, tx *sql.Tx, f SourceFile) error {
	p := ix.registry.ForPath(f.AbsPath)
	if p == nil {
		return nil
	}

	source, err := os.ReadFile(f.AbsPath)
	if err != nil {
		ix.log.Warn("Cannot read file", map[string]interface{}{
			"path":  f.RelPath,
			"error": err.Error(),
		})
		_, upsertErr := ix.db.UpsertFileTx(tx, f.RelPath, "", p.Language(), 0, err.Error())
		return upsertErr
	}

	hash, err := HashFile(f.AbsPath)
	if err != nil {
		hash = ""
	}
	lineCount := bytes.Count(source, []byte("\n")) + 1

	result, err := p.Parse(ctx, source, f.RelPath)
	if err != nil {
		return err
	}

	fileID, err := ix.db.UpsertFileTx(tx, f.RelPath, hash, p.Language(), lineCount, result.ParseError)
	if err != nil {
		return err
	}

	// Two passes: classes first so parent rows exist before their members.
	idByLocal := make([]int64, len(result.Symbols))
	for _, sym := range result.Symbols {
		if sym.Kind == "class" {
			if err := ix.insertSymbol(tx, fileID, sym, idByLocal); err != nil {
				return err
			}
		}
	}
	for _, sym := range result.Symbols {
		if sym.Kind != "class" {
			if err := ix.insertSymbol(tx, fileID, sym, idByLocal); err != nil {
				return err
			}
		}
	}

	if len(result.Calls) > 0 {
		calls := make([]storage.Call, 0, len(result.Calls))
		for _, c := range result.Calls {
			calls = append(calls, storage.Call{
				CallerID:   resolveLocal(idByLocal, c.CallerLocal),
				CalleeExpr: c.CalleeExpr,
				LineNo:     c.Line,
			})
		}
		if err := ix.db.InsertCallsTx(tx, fileID, calls); err != nil {
			return err
		}
	}

	if len(result.Refs) > 0 {
		refs := make([]storage.Ref, 0, len(result.Refs))
		for _, r := range result.Refs {
			refs = append(refs, storage.Ref{
				SymbolID: resolveLocal(idByLocal, r.SymbolLocal),
				RefKind:  r.Kind,
				Target:   r.Target,
				Name:     r.Name,
				LineNo:   r.Line,
			})
		}
		if err := ix.db.InsertRefsTx(tx, fileID, refs); err != nil {
			return err
		}
	}

	if len(result.Imports) > 0 {
		imports := make([]storage.Import, 0, len(result.Imports))
		for _, imp := range result.Imports {
			imports = append(imports, storage.Import{
				Module: imp.Module,
				Name:   imp.Name,
				Alias:  imp.Alias,
				IsFrom: imp.IsFrom,
				LineNo: imp.Line,
			})
		}
		if err := ix.db.InsertImportsTx(tx, fileID, imports); err != nil {
			return err
		}
	}

	names := make([]string, 0, len(result.Symbols))
	var docs []string
	for _, sym := range result.Symbols {
		names = append(names, sym.Name)
		if sym.Docstring != "" {
			docs = append(docs, sym.Docstring)
		}
	}
	return ix.db.UpdateFTSTx(tx, f.RelPath, strings.Join(names, " "), strings.Join(docs, " "))
}

func (ix *Indexer) insertSymbol(tx *sql.Tx, fileID int64, sym parser.Symbol, idByLocal []int64) error {
	row := storage.Symbol{
		FileID:     fileID,
		ParentID:   resolveLocal(idByLocal, sym.ParentLocal),
		Kind:       sym.Kind,
		Name:       sym.Name,
		Params:     convertParams(sym.Params),
		ReturnType: sym.ReturnType,
		Decorators: sym.Decorators,
		Bases:      sym.Bases,
		Docstring:  sym.Docstring,
		LineStart:  sym.LineStart,
		LineEnd:    sym.LineEnd,
		Complexity: sym.Complexity,
		IsAsync:    sym.IsAsync,
	}
	id, err := ix.db.InsertSymbolTx(tx, &row)
	if err != nil {
		return err
	}
	idByLocal[sym.LocalID] = id
	return nil
}

// resolveLocal maps a parser-local index to its inserted row ID. It returns
// nil when the index is absent or the referenced symbol has no row yet.
func resolveLocal(idByLocal []int64, local int) *int64 {
	if local < 0 || local >= len(idByLocal) {
		return nil
	}
	if id := idByLocal[local]; id != 0 {
		return &id
	}
	return nil
}

func convertParams(params []parser.Param) []storage.Param {
	if len(params) == 0 {
		return nil
	}
	out := make([]storage.Param, len(params))
	for i, p := range params {
		out[i] = storage.Param{Name: p.Name, Type: p.Type, Default: p.Default}
	}
	return out
}
