package querybuilder

import (
	"fmt"
	"strings"
)

type CondType int

const (
	CondTypeAnd CondType = iota + 1
	CondTypeOr
)

func (c CondType) String() string {
	switch c {
	case CondTypeAnd:
		return "AND"
	case CondTypeOr:
		return "OR"
	default:
		return ""
	}
}

// Condition is one WHERE clause, or a parenthesized group of them
type Condition struct {
	condType   CondType
	clause     string
	args       []interface{}
	subCond    []Condition
	isSubGroup bool
}

func (c Condition) empty() bool {
	return c.isSubGroup && len(c.subCond) == 0
}

// buildCondition joins conditions with their operators. Empty groups are
// skipped together with their operator.
func buildCondition(conditions []Condition) (string, []interface{}) {
	parts := make([]string, 0, len(conditions))
	args := make([]interface{}, 0)

	for _, cond := range conditions {
		if cond.empty() {
			continue
		}
		if len(parts) > 0 {
			parts = append(parts, cond.condType.String())
		}
		if cond.isSubGroup {
			clause, subArgs := buildCondition(cond.subCond)
			parts = append(parts, fmt.Sprintf("(%s)", clause))
			args = append(args, subArgs...)
			continue
		}
		parts = append(parts, cond.clause)
		args = append(args, cond.args...)
	}

	return strings.Join(parts, " "), args
}
