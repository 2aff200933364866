package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/fleetops/induction/engine"
)

// Catalog is the decoded contents of a YAML catalog file: a rule set plus
// optional objective weights and constraint overrides. It lets depots
// version their induction policy alongside the deployment instead of
// seeding it by hand through the API.
type Catalog struct {
	Rules       []*engine.BusinessRule
	Objectives  map[string]float64
	Constraints *engine.ConstraintOverrides
}

type catalogFile struct {
	Rules       []engine.RuleSpec           `yaml:"rules"`
	Objectives  map[string]float64          `yaml:"objective_weights"`
	Constraints *engine.ConstraintOverrides `yaml:"constraints"`
}

// LoadCatalog reads and validates a YAML catalog file. Every rule passes
// through the condition constructors, so a file with an unknown operator
// or malformed bounds is rejected at load time.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}

	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse catalog file: %w", err)
	}

	catalog := &Catalog{
		Objectives:  file.Objectives,
		Constraints: file.Constraints,
	}

	seen := make(map[string]bool, len(file.Rules))
	for _, spec := range file.Rules {
		if seen[spec.ID] {
			return nil, fmt.Errorf("duplicate rule id %q in catalog file", spec.ID)
		}
		seen[spec.ID] = true

		rule, err := engine.ParseRule(spec)
		if err != nil {
			return nil, fmt.Errorf("invalid rule in catalog file: %w", err)
		}
		catalog.Rules = append(catalog.Rules, rule)
	}

	return catalog, nil
}

// Apply loads the catalog's rules into the store (existing IDs are
// replaced) and its objective weights into the engine.
func (c *Catalog) Apply(en *engine.Engine) error {
	for _, rule := range c.Rules {
		if _, err := en.Rule(rule.ID); err == nil {
			if err := en.UpdateRule(rule); err != nil {
				return fmt.Errorf("failed to update rule %s: %w", rule.ID, err)
			}
			continue
		}
		if err := en.AddRule(rule); err != nil {
			return fmt.Errorf("failed to add rule %s: %w", rule.ID, err)
		}
	}

	if len(c.Objectives) > 0 {
		if err := en.SetObjectiveWeights(c.Objectives); err != nil {
			return fmt.Errorf("failed to apply objective weights: %w", err)
		}
	}

	return nil
}
