package services

import (
	"fmt"
	"os"
	"sort"

	"github.com/berth-cd/berth/domain"
	"github.com/compose-spec/compose-go/v2/dotenv"
)

// LoadPlanFile reads and validates a deployment plan from a YAML file.
// Unknown fields are ignored; missing required fields fail validation before
// any runtime call is made.
func LoadPlanFile(path string) (*domain.DeploymentPlan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan file %s: %w", path, err)
	}

	plan, err := domain.UnmarshalPlan(data)
	if err != nil {
		return nil, err
	}

	if err := plan.Validate(); err != nil {
		return nil, err
	}

	return plan, nil
}

// ResolveEnvironment assembles the container environment from the plan's env
// file and inline mapping. Inline values win over file values. The result is
// passed opaquely to the runtime adapter and must never be logged.
func ResolveEnvironment(plan *domain.DeploymentPlan) ([]string, error) {
	merged := make(map[string]string)

	if plan.EnvFile != "" {
		fileVars, err := dotenv.Read(plan.EnvFile)
		if err != nil {
			return nil, domain.NewValidationError("env_file",
				fmt.Sprintf("cannot read %s: %v", plan.EnvFile, err))
		}
		for k, v := range fileVars {
			merged[k] = v
		}
	}

	for k, v := range plan.Env {
		merged[k] = v
	}

	if len(merged) == 0 {
		return nil, nil
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	env := make([]string, 0, len(keys))
	for _, k := range keys {
		env = append(env, k+"="+merged[k])
	}
	return env, nil
}
