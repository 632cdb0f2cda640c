package workflow

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/ybwbqg9379/hyper-cut-sub001/internal/types"
)

// LoadFile parses one workflow definition from a YAML file.
func LoadFile(path string) (Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Definition{}, types.WrapError(types.CONFIG_LOAD_FAILED,
			fmt.Sprintf("failed to read workflow file %s", path), err)
	}

	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return Definition{}, types.WrapError(types.CONFIG_PARSE_FAILED,
			fmt.Sprintf("failed to parse workflow file %s", path), err)
	}
	if err := def.Validate(); err != nil {
		return Definition{}, types.WrapError(types.CONFIG_VALIDATION_FAILED,
			fmt.Sprintf("invalid workflow file %s", path), err)
	}
	return def, nil
}

// LoadDir loads every *.yaml and *.yml definition under dir, sorted by file
// name. A missing directory yields an empty slice.
func LoadDir(dir string) ([]Definition, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, types.WrapError(types.CONFIG_LOAD_FAILED,
			fmt.Sprintf("failed to read workflow directory %s", dir), err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext == ".yaml" || ext == ".yml" {
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(paths)

	definitions := make([]Definition, 0, len(paths))
	for _, path := range paths {
		def, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		definitions = append(definitions, def)
	}
	return definitions, nil
}
