package rules

import (
	"os"
	"path/filepath"

	"codeindex/internal/storage"
)

// instructionCandidates are the project instruction files checked by
// default, relative to the project root.
var instructionCandidates = []string{
	"CLAUDE.md",
	".claude/CLAUDE.md",
	"CONTRIBUTING.md",
}

// SeedFromInstructions records the project's instruction files as
// knowledge entries keyed "instructions_file:<name>". extra lists
// additional candidates from config (seed_rules_from). Returns how many
// files were found.
func SeedFromInstructions(db *storage.DB, projectRoot string, extra []string) (int, error) {
	count := 0
	for _, candidate := range append(append([]string{}, instructionCandidates...), extra...) {
		path := filepath.Join(projectRoot, filepath.FromSlash(candidate))
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			continue
		}

		err = db.SetKnowledge("instructions_file:"+candidate, map[string]interface{}{
			"path": path,
			"size": info.Size(),
		})
		if err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}
