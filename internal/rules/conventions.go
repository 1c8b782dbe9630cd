package rules

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"

	"codeindex/internal/config"
	"codeindex/internal/storage"
)

// Violation is one import that crosses a layer boundary it is not allowed
// to cross.
type Violation struct {
	File         string `json:"file"`
	Line         int    `json:"line_no"`
	ImportModule string `json:"import_module"`
	ImportName   string `json:"import_name,omitempty"`
	SourceLayer  string `json:"source_layer"`
	TargetLayer  string `json:"target_layer"`
	Message      string `json:"message"`
}

// CheckConventions reports imports that violate the configured layer
// boundaries. Both endpoints of an import must map to a layer for it to be
// checked; imports of unindexed or unlayered modules pass silently.
func CheckConventions(db *storage.DB, layers []config.LayerConfig) ([]Violation, error) {
	if len(layers) == 0 {
		return nil, nil
	}

	files, err := db.ListFiles()
	if err != nil {
		return nil, err
	}

	pathToLayer := buildLayerMap(files, layers)
	moduleToFile := buildModuleMap(files)

	imports, err := db.AllImports()
	if err != nil {
		return nil, err
	}

	var violations []Violation
	for _, imp := range imports {
		srcLayer := pathToLayer[imp.File]
		if srcLayer == "" {
			continue
		}

		targetFile := moduleToFile[imp.Module]
		if targetFile == "" && imp.Name != "" {
			// A from-import may name the module itself: resolve
			// "from pkg import utils" through pkg.utils.
			targetFile = moduleToFile[imp.Module+"."+imp.Name]
		}
		targetLayer := pathToLayer[targetFile]
		if targetLayer == "" || targetLayer == srcLayer {
			continue
		}

		layerCfg := layerByName(layers, srcLayer)
		if layerCfg == nil || contains(layerCfg.AllowedImports, targetLayer) {
			continue
		}

		violations = append(violations, Violation{
			File:         imp.File,
			Line:         imp.LineNo,
			ImportModule: imp.Module,
			ImportName:   imp.Name,
			SourceLayer:  srcLayer,
			TargetLayer:  targetLayer,
			Message: fmt.Sprintf("Layer '%s' imports from '%s' (not in allowed_imports: %v)",
				srcLayer, targetLayer, layerCfg.AllowedImports),
		})
	}
	return violations, nil
}

// buildLayerMap assigns each indexed file to a layer by matching its path
// against the layer's patterns. When layers overlap, the last one declared
// wins.
func buildLayerMap(files []storage.File, layers []config.LayerConfig) map[string]string {
	type matcher struct {
		name     string
		globs    []glob.Glob
		prefixes []string
	}

	matchers := make([]matcher, 0, len(layers))
	for _, layer := range layers {
		m := matcher{name: layer.Name}
		for _, pattern := range layer.Paths {
			if g, err := glob.Compile(pattern); err == nil {
				m.globs = append(m.globs, g)
			}
			m.prefixes = append(m.prefixes, strings.TrimRight(strings.TrimRight(pattern, "*"), "/"))
		}
		matchers = append(matchers, m)
	}

	pathToLayer := make(map[string]string, len(files))
	for _, f := range files {
		for _, m := range matchers {
			if matchesLayer(f.RelPath, m.globs, m.prefixes) {
				pathToLayer[f.RelPath] = m.name
			}
		}
	}
	return pathToLayer
}

func matchesLayer(relPath string, globs []glob.Glob, prefixes []string) bool {
	for _, g := range globs {
		if g.Match(relPath) {
			return true
		}
	}
	for _, prefix := range prefixes {
		if prefix != "" && strings.HasPrefix(relPath, prefix) {
			return true
		}
	}
	return false
}

// buildModuleMap maps dotted module paths to file paths, so "core.state"
// resolves to core/state.py. Files under src/ are mapped both with and
// without the prefix.
func buildModuleMap(files []storage.File) map[string]string {
	result := make(map[string]string, len(files))
	for _, f := range files {
		module := strings.ReplaceAll(f.RelPath, "/", ".")
		module = strings.TrimSuffix(module, ".py")
		result[module] = f.RelPath

		if strings.HasPrefix(module, "src.") {
			result[strings.TrimPrefix(module, "src.")] = f.RelPath
		}
	}
	return result
}

func layerByName(layers []config.LayerConfig, name string) *config.LayerConfig {
	for i := range layers {
		if layers[i].Name == name {
			return &layers[i]
		}
	}
	return nil
}

func contains(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}
