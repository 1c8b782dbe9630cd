// Package scipexport translates the index into a SCIP protobuf index so
// other tooling (scip CLI, editors, code-intel pipelines) can consume it.
// Only definition occurrences are emitted; the store does not keep column
// offsets, so ranges anchor at column zero of the recorded lines.
package scipexport

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
	scippb "github.com/sourcegraph/scip/bindings/go/scip"
	"google.golang.org/protobuf/proto"

	"codeindex/internal/logging"
	"codeindex/internal/storage"
	"codeindex/internal/version"
)

// DefaultFileName is where the index lands unless an output path is given.
const DefaultFileName = "index.scip"

// Exporter writes SCIP indexes from the store.
type Exporter struct {
	db  *storage.DB
	log *logging.Logger
}

// New creates an exporter.
func New(db *storage.DB, log *logging.Logger) *Exporter {
	return &Exporter{db: db, log: log}
}

// Options controls one export.
type Options struct {
	// ProjectRoot becomes the metadata project root (as a file:// URI).
	ProjectRoot string
	// ProjectName is the package name embedded in symbol IDs. Empty means
	// unspecified.
	ProjectName string
	// OutputPath overrides DefaultFileName.
	OutputPath string
	// Compress gzips the written bytes.
	Compress bool
}

// Summary reports what an export produced.
type Summary struct {
	Path        string `json:"path"`
	Documents   int    `json:"documents"`
	Symbols     int    `json:"symbols"`
	Occurrences int    `json:"occurrences"`
	Bytes       int    `json:"bytes"`
	Compressed  bool   `json:"compressed,omitempty"`
}

// Export builds a SCIP index from every indexed file and writes it out.
func (e *Exporter) Export(opts Options) (*Summary, error) {
	index, summary, err := e.buildIndex(opts)
	if err != nil {
		return nil, err
	}

	data, err := proto.Marshal(index)
	if err != nil {
		return nil, fmt.Errorf("failed to encode SCIP index: %w", err)
	}

	if opts.Compress {
		var buf bytes.Buffer
		gz := gzip.NewWriter(&buf)
		if _, err := gz.Write(data); err != nil {
			return nil, fmt.Errorf("failed to compress SCIP index: %w", err)
		}
		if err := gz.Close(); err != nil {
			return nil, fmt.Errorf("failed to compress SCIP index: %w", err)
		}
		data = buf.Bytes()
	}

	path := opts.OutputPath
	if path == "" {
		path = DefaultFileName
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write SCIP index: %w", err)
	}

	summary.Path = path
	summary.Bytes = len(data)
	summary.Compressed = opts.Compress

	e.log.Info("SCIP export complete", map[string]interface{}{
		"path":      path,
		"documents": summary.Documents,
		"symbols":   summary.Symbols,
		"bytes":     summary.Bytes,
	})
	return summary, nil
}

func (e *Exporter) buildIndex(opts Options) (*scippb.Index, *Summary, error) {
	files, err := e.db.ListFiles()
	if err != nil {
		return nil, nil, err
	}

	pkg := symbolPackage(opts.ProjectName)
	summary := &Summary{}

	index := &scippb.Index{
		Metadata: &scippb.Metadata{
			Version: scippb.ProtocolVersion_UnspecifiedProtocolVersion,
			ToolInfo: &scippb.ToolInfo{
				Name:    "codeindex",
				Version: version.Version,
			},
			ProjectRoot:          "file://" + opts.ProjectRoot,
			TextDocumentEncoding: scippb.TextEncoding_UTF8,
		},
	}

	for _, f := range files {
		doc, err := e.buildDocument(f, pkg)
		if err != nil {
			return nil, nil, err
		}
		index.Documents = append(index.Documents, doc)
		summary.Documents++
		summary.Symbols += len(doc.Symbols)
		summary.Occurrences += len(doc.Occurrences)
	}
	return index, summary, nil
}

func (e *Exporter) buildDocument(f storage.File, pkg string) (*scippb.Document, error) {
	symbols, err := e.db.SymbolsByFile(f.ID)
	if err != nil {
		return nil, err
	}

	doc := &scippb.Document{
		RelativePath: f.RelPath,
		Language:     f.Language,
	}

	module := moduleOf(f.RelPath)
	for i := range symbols {
		sym := &symbols[i]
		id := formatSymbol(pkg, module, sym.ParentName, sym.Name, sym.Kind)

		info := &scippb.SymbolInformation{
			Symbol:      id,
			DisplayName: sym.Name,
			Kind:        scipKind(sym.Kind),
		}
		if sym.Docstring != "" {
			info.Documentation = []string{sym.Docstring}
		}
		if sym.ParentName != "" {
			info.EnclosingSymbol = formatSymbol(pkg, module, "", sym.ParentName, "class")
		}
		doc.Symbols = append(doc.Symbols, info)

		doc.Occurrences = append(doc.Occurrences, &scippb.Occurrence{
			Range: []int32{
				int32(sym.LineStart - 1), 0,
				int32(sym.LineStart - 1), int32(len(sym.Name)),
			},
			Symbol:      id,
			SymbolRoles: int32(scippb.SymbolRole_Definition),
			// Half-open over the full span: lines LineStart..LineEnd.
			EnclosingRange: []int32{int32(sym.LineStart - 1), 0, int32(sym.LineEnd), 0},
		})
	}
	return doc, nil
}

// formatSymbol renders a SCIP symbol ID: scheme, package, then a module
// namespace descriptor followed by the symbol descriptor. Methods nest
// under their class ("mod/Class#name()."), classes use the type form
// ("mod/Class#").
func formatSymbol(pkg, module, parent, name, kind string) string {
	var b strings.Builder
	b.WriteString("codeindex ")
	b.WriteString(pkg)
	b.WriteString(" ")
	b.WriteString(escapeName(module))
	b.WriteString("/")
	if parent != "" {
		b.WriteString(escapeName(parent))
		b.WriteString("#")
	}
	b.WriteString(escapeName(name))
	switch kind {
	case "class":
		b.WriteString("#")
	case "function", "method":
		b.WriteString("().")
	default:
		b.WriteString(".")
	}
	return b.String()
}

// symbolPackage renders the "<manager> <name> <version>" package part.
// Unknown fields are "." per the SCIP grammar.
func symbolPackage(projectName string) string {
	name := strings.TrimSpace(projectName)
	if name == "" {
		name = "."
	} else {
		name = strings.ReplaceAll(name, " ", "-")
	}
	return "python " + name + " ."
}

// moduleOf converts a rel path to a dotted module: pkg/utils.py becomes
// pkg.utils.
func moduleOf(relPath string) string {
	module := strings.TrimSuffix(relPath, ".py")
	return strings.ReplaceAll(module, "/", ".")
}

// escapeName backtick-wraps descriptor names that are not simple
// identifiers (module paths contain dots).
func escapeName(name string) string {
	for _, r := range name {
		simple := r == '_' || r == '+' || r == '-' || r == '$' ||
			(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
		if !simple {
			return "`" + name + "`"
		}
	}
	return name
}

func scipKind(kind string) scippb.SymbolInformation_Kind {
	switch kind {
	case "class":
		return scippb.SymbolInformation_Class
	case "function":
		return scippb.SymbolInformation_Function
	case "method":
		return scippb.SymbolInformation_Method
	default:
		return scippb.SymbolInformation_UnspecifiedKind
	}
}
