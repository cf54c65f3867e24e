package tx

import (
	"context"
	"fmt"
	"strings"
)

// Manager wraps transactional boundaries for multi-adapter operations.
type Manager interface {
	Run(ctx context.Context, propagation Propagation, fn func(context.Context) error) error
}

// NoopManager runs every unit of work directly on the caller's context.
type NoopManager struct{}

func (NoopManager) Run(ctx context.Context, _ Propagation, fn func(context.Context) error) error {
	return fn(ctx)
}

// Propagation decides how a unit of work relates to the ambient transaction.
type Propagation int

const (
	Required Propagation = iota
	RequiresNew
	Supports
	NotSupported
	Mandatory
	Never
	Nested
)

var propagationNames = map[Propagation]string{
	Required:     "REQUIRED",
	RequiresNew:  "REQUIRES_NEW",
	Supports:     "SUPPORTS",
	NotSupported: "NOT_SUPPORTED",
	Mandatory:    "MANDATORY",
	Never:        "NEVER",
	Nested:       "NESTED",
}

func (p Propagation) String() string {
	if name, ok := propagationNames[p]; ok {
		return name
	}
	return fmt.Sprintf("Propagation(%d)", int(p))
}

// ParsePropagation accepts the canonical names as well as lower-case and
// dash-separated spellings ("requires-new").
func ParsePropagation(raw string) (Propagation, error) {
	normalized := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(raw), "-", "_"))
	for p, name := range propagationNames {
		if name == normalized {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown propagation %q", raw)
}
