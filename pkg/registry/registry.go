// pkg/registry/registry.go
package registry

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"pos-workers/internal/common/validation"
)

//go:embed activities.json
var embeddedRegistry []byte

// LoadRegistry reads a registry file from disk.
func LoadRegistry(path string) (*ActivityRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Default returns the registry compiled into the binary.
func Default() (*ActivityRegistry, error) {
	return Parse(embeddedRegistry)
}

// Load returns the registry at path, or the embedded one when path is empty.
func Load(path string) (*ActivityRegistry, error) {
	if path == "" {
		return Default()
	}
	return LoadRegistry(path)
}

func Parse(data []byte) (*ActivityRegistry, error) {
	var reg ActivityRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parse registry: %w", err)
	}
	return &reg, nil
}

// Find returns the activity serving taskType.
func (r *ActivityRegistry) Find(taskType string) (*Activity, bool) {
	for i := range r.Activities {
		if r.Activities[i].TaskType == taskType {
			return &r.Activities[i], true
		}
	}
	return nil, false
}

// TimeoutFor parses the activity's timeout, falling back to def.
func (a *Activity) TimeoutFor(def time.Duration) time.Duration {
	if a == nil || a.Timeout == "" {
		return def
	}
	d, err := time.ParseDuration(a.Timeout)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// Validate checks the registry for structural mistakes and uncompilable schemas.
func (r *ActivityRegistry) Validate() error {
	if len(r.Activities) == 0 {
		return fmt.Errorf("registry contains no activities")
	}

	ids := make(map[string]bool)
	taskTypes := make(map[string]bool)
	v := validation.NewValidator()

	for _, activity := range r.Activities {
		if activity.ID == "" {
			return fmt.Errorf("activity missing required field: ID")
		}
		if ids[activity.ID] {
			return fmt.Errorf("duplicate activity ID: %s", activity.ID)
		}
		ids[activity.ID] = true

		if activity.DisplayName == "" {
			return fmt.Errorf("activity %s missing required field: DisplayName", activity.ID)
		}
		if activity.TaskType == "" {
			return fmt.Errorf("activity %s missing required field: TaskType", activity.ID)
		}
		if taskTypes[activity.TaskType] {
			return fmt.Errorf("duplicate task type: %s", activity.TaskType)
		}
		taskTypes[activity.TaskType] = true

		if activity.Category == "" {
			return fmt.Errorf("activity %s missing required field: Category", activity.ID)
		}
		if activity.InputSchema != nil {
			if err := v.Register(activity.TaskType, activity.InputSchema); err != nil {
				return fmt.Errorf("activity %s: %w", activity.ID, err)
			}
		}
	}

	return nil
}

// Validator compiles every activity input schema, keyed by task type.
func (r *ActivityRegistry) Validator() (*validation.Validator, error) {
	v := validation.NewValidator()
	for _, activity := range r.Activities {
		if activity.InputSchema == nil {
			continue
		}
		if err := v.Register(activity.TaskType, activity.InputSchema); err != nil {
			return nil, fmt.Errorf("activity %s: %w", activity.ID, err)
		}
	}
	return v, nil
}
