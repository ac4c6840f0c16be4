package eval

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// HeuristicVersion is stamped on attempts scored without a rubric document.
const HeuristicVersion = "heuristic-v1"

// Rubric is the external scoring vocabulary. It changes what the notes say,
// never what the numbers are: scoring stays heuristic either way.
type Rubric struct {
	Version  string               `yaml:"version"`
	Criteria map[string]Criterion `yaml:"criteria"`
}

// Criterion documents one scored dimension and its per-band descriptions.
type Criterion struct {
	Description string         `yaml:"description"`
	Bands       map[int]string `yaml:"bands"`
}

// LoadRubric parses the rubric document at path. A missing or unparseable
// file is an error; callers fall back to a nil rubric.
func LoadRubric(path string) (*Rubric, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("op=eval.LoadRubric: %w", err)
	}
	var r Rubric
	if err := yaml.Unmarshal(b, &r); err != nil {
		return nil, fmt.Errorf("op=eval.LoadRubric: parse %s: %w", path, err)
	}
	if r.Version == "" {
		return nil, fmt.Errorf("op=eval.LoadRubric: %s has no version", path)
	}
	return &r, nil
}

// Vocabulary returns the rubric's description for a criterion at a score
// band, or "" when the rubric does not cover it.
func (r *Rubric) Vocabulary(criterion string, score int) string {
	if r == nil {
		return ""
	}
	c, ok := r.Criteria[strings.ToLower(criterion)]
	if !ok {
		return ""
	}
	return c.Bands[score]
}
