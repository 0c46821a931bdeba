package provider

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Type names a provider implementation in a definition file.
type Type string

const TypeSentinelS2L2ACogs Type = "SentinelS2L2ACogs"

// Definition is one provider definition file.
type Definition struct {
	Name   string `yaml:"name"`
	ID     string `yaml:"id"`
	Type   Type   `yaml:"type"`
	APIURL string `yaml:"apiUrl"`
}

// LoadDefinitions reads every .yaml/.yml file in the directory, in file
// name order.
func LoadDefinitions(dir string) ([]Definition, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, eris.Wrapf(err, "provider: read definitions dir %s", dir)
	}

	var definitions []Definition
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, eris.Wrapf(err, "provider: read definition %s", path)
		}
		var def Definition
		if err := yaml.Unmarshal(data, &def); err != nil {
			return nil, eris.Wrapf(err, "provider: parse definition %s", path)
		}
		if def.Name == "" || def.ID == "" || def.Type == "" {
			return nil, eris.Errorf("provider: definition %s misses name, id or type", path)
		}
		definitions = append(definitions, def)
	}
	sort.Slice(definitions, func(i, j int) bool { return definitions[i].Name < definitions[j].Name })

	zap.L().Debug("provider definitions loaded",
		zap.String("dir", dir),
		zap.Int("count", len(definitions)),
	)
	return definitions, nil
}

// Initialize turns the definition into a live provider.
func (d Definition) Initialize(opts SentinelOptions) (Provider, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, eris.Wrapf(err, "provider: definition %q has an invalid id", d.Name)
	}

	switch d.Type {
	case TypeSentinelS2L2ACogs:
		if d.APIURL == "" {
			return nil, eris.Errorf("provider: definition %q misses apiUrl", d.Name)
		}
		return NewSentinelProvider(id, d.Name, d.APIURL, opts), nil
	default:
		return nil, eris.Errorf("provider: unknown provider type %q", d.Type)
	}
}

// InitializeAll builds a registry from a directory of definitions.
func InitializeAll(dir string, opts SentinelOptions) (*Registry, error) {
	definitions, err := LoadDefinitions(dir)
	if err != nil {
		return nil, err
	}
	providers := make([]Provider, 0, len(definitions))
	for _, def := range definitions {
		p, err := def.Initialize(opts)
		if err != nil {
			return nil, err
		}
		providers = append(providers, p)
	}
	return NewRegistry(providers...), nil
}
