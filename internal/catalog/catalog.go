// Package catalog loads the static product data: plans, tokens, the mock
// agents and the narration scripts of both sequencer flows.
package catalog

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/agentdesk/agentdesk/internal/core/domain"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Default returns the embedded catalog
func Default() domain.Catalog {
	c, err := Parse(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("embedded catalog is invalid: %v", err))
	}
	return c
}

// Load reads a catalog file. An empty path returns the embedded catalog.
func Load(path string) (domain.Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Catalog{}, fmt.Errorf("failed to read catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates catalog YAML
func Parse(data []byte) (domain.Catalog, error) {
	var c domain.Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return domain.Catalog{}, fmt.Errorf("failed to parse catalog: %w", err)
	}
	if err := validate(c); err != nil {
		return domain.Catalog{}, err
	}
	return c, nil
}

func validate(c domain.Catalog) error {
	if len(c.Plans) == 0 {
		return fmt.Errorf("catalog has no plans")
	}
	seen := make(map[domain.PlanID]bool, len(c.Plans))
	for _, p := range c.Plans {
		if p.ID == "" {
			return fmt.Errorf("catalog plan %q has no id", p.Name)
		}
		if seen[p.ID] {
			return fmt.Errorf("duplicate plan id %q", p.ID)
		}
		seen[p.ID] = true
		if p.Price < 0 {
			return fmt.Errorf("plan %q has a negative price", p.ID)
		}
	}

	native := false
	for _, t := range c.Tokens {
		if t.Symbol == domain.NativeToken {
			native = true
		}
	}
	if !native {
		return fmt.Errorf("catalog is missing the %s token", domain.NativeToken)
	}

	for _, a := range c.Agents {
		switch a.Status {
		case domain.AgentRunning, domain.AgentPaused, domain.AgentError:
		default:
			return fmt.Errorf("agent %q has invalid status %q", a.ID, a.Status)
		}
	}
	return nil
}
