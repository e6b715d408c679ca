package classifier

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// RegimeFile is the top-level YAML structure for a regime registry file.
// Operators use it to teach attestor the aliases their upstream systems
// emit (e.g. "EU-GDPR" meaning GDPR) without recompiling.
type RegimeFile struct {
	Regimes []RegimeConfig `yaml:"regimes"`
}

// RegimeConfig maps alias identifiers onto a canonical regime identifier.
type RegimeConfig struct {
	Identifier  string   `yaml:"identifier" json:"identifier"`
	Aliases     []string `yaml:"aliases,omitempty" json:"aliases,omitempty"`
	Description string   `yaml:"description,omitempty" json:"description,omitempty"`
	Enabled     *bool    `yaml:"enabled,omitempty" json:"enabled,omitempty"`
}

// isEnabled returns true if the regime mapping is enabled (defaults to true).
func (r *RegimeConfig) isEnabled() bool {
	if r.Enabled == nil {
		return true
	}
	return *r.Enabled
}

// ParseRegimeFile parses regime registry YAML bytes.
func ParseRegimeFile(data []byte) (*RegimeFile, error) {
	var rf RegimeFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("parsing regime YAML: %w", err)
	}
	return &rf, nil
}

// LoadRegimeFile reads and parses a regime registry YAML file from disk.
// Returns nil (not an error) if the file does not exist, so callers can
// treat a missing registry as a no-op.
func LoadRegimeFile(path string) (*RegimeFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading regime file %s: %w", path, err)
	}
	return ParseRegimeFile(data)
}

// MergeRegimes performs a layered merge: later layers override earlier
// ones by matching on Identifier; new regimes are appended.
func MergeRegimes(layers ...[]RegimeConfig) []RegimeConfig {
	index := make(map[string]int)
	var merged []RegimeConfig

	for _, layer := range layers {
		for _, rc := range layer {
			if idx, exists := index[rc.Identifier]; exists {
				merged[idx] = rc
			} else {
				index[rc.Identifier] = len(merged)
				merged = append(merged, rc)
			}
		}
	}
	return merged
}

// defaultRegimes are the aliases shipped with attestor.
var defaultRegimes = []RegimeConfig{
	{Identifier: RegimeGDPR, Aliases: []string{"EU-GDPR", "GDPR-EU"}, Description: "EU data privacy"},
	{Identifier: RegimeHIPAA, Aliases: []string{"US-HIPAA"}, Description: "US health data"},
	{Identifier: RegimeSOX, Aliases: []string{"SOX-404", "SARBANES-OXLEY"}, Description: "US financial controls"},
	{Identifier: RegimePCIDSS, Aliases: []string{"PCI", "PCIDSS"}, Description: "Payment card data"},
}

// Mapper normalizes regime aliases to canonical identifiers before
// classification. Unknown identifiers pass through unchanged so Classify
// can preserve them verbatim.
type Mapper struct {
	aliases map[string]string
}

// NewMapper builds a Mapper from the shipped defaults merged with the
// given override layers (later layers win).
func NewMapper(overrides ...[]RegimeConfig) *Mapper {
	layers := append([][]RegimeConfig{defaultRegimes}, overrides...)
	merged := MergeRegimes(layers...)

	aliases := make(map[string]string)
	for _, rc := range merged {
		if !rc.isEnabled() {
			continue
		}
		for _, a := range rc.Aliases {
			aliases[a] = rc.Identifier
		}
	}
	return &Mapper{aliases: aliases}
}

// Normalize maps each identifier through the alias table, leaving
// unrecognized identifiers untouched. The input slice is not mutated.
func (m *Mapper) Normalize(requirements []string) []string {
	if len(requirements) == 0 {
		return nil
	}
	out := make([]string, len(requirements))
	for i, r := range requirements {
		if canonical, ok := m.aliases[r]; ok {
			out[i] = canonical
		} else {
			out[i] = r
		}
	}
	return out
}
