package types

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadPredefinedPlan reads a predefined plan from a YAML file:
//
//	name: checkout
//	goal: buy the usual groceries
//	steps:
//	  - open the cart page
//	  - confirm the delivery slot
func LoadPredefinedPlan(path string) (*PredefinedPlan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading plan file: %w", err)
	}

	plan := &PredefinedPlan{}
	if err := yaml.Unmarshal(data, plan); err != nil {
		return nil, fmt.Errorf("parsing plan file: %w", err)
	}

	steps := plan.Steps[:0]
	for _, step := range plan.Steps {
		if strings.TrimSpace(step) != "" {
			steps = append(steps, strings.TrimSpace(step))
		}
	}
	plan.Steps = steps
	if len(plan.Steps) == 0 {
		return nil, fmt.Errorf("plan file %s has no steps", path)
	}
	return plan, nil
}
