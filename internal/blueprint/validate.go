package blueprint

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/agentic-research/loom/api"
)

var structValidator = validator.New()

// Validate checks a blueprint before scheduling: required fields, unique
// node IDs, and edges that reference declared nodes. The message carries
// every problem found, not just the first.
func Validate(bp *api.Blueprint) error {
	var problems []string

	if err := structValidator.Struct(bp); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			for _, fe := range fieldErrs {
				problems = append(problems, fmt.Sprintf("%s: %s", fe.Namespace(), fe.Tag()))
			}
		} else {
			return fmt.Errorf("invalid blueprint: %w", err)
		}
	}

	seen := make(map[string]bool, len(bp.Nodes))
	for _, n := range bp.Nodes {
		if n.ID == "" {
			continue
		}
		if seen[n.ID] {
			problems = append(problems, fmt.Sprintf("duplicate node id %q", n.ID))
		}
		seen[n.ID] = true
	}
	for _, e := range bp.Edges {
		if e.Source != "" && !seen[e.Source] {
			problems = append(problems, fmt.Sprintf("edge source %q is not a declared node", e.Source))
		}
		if e.Target != "" && !seen[e.Target] {
			problems = append(problems, fmt.Sprintf("edge target %q is not a declared node", e.Target))
		}
	}

	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("invalid blueprint: %s", strings.Join(problems, "; "))
}
