package service

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"ledgertx/internal/modules/demo/domain"
	apperrors "ledgertx/internal/platform/errors"
)

// Step is one experiment bound to concrete account names.
type Step struct {
	domain.Experiment
	From string
	To   string
}

type DemoService struct{}

func NewDemoService() *DemoService {
	return &DemoService{}
}

// Plan binds every experiment to from and to, reversing the direction for
// experiments that ask for it.
func (s *DemoService) Plan(from, to string) ([]Step, error) {
	from, to = strings.TrimSpace(from), strings.TrimSpace(to)
	if from == "" || to == "" {
		return nil, fmt.Errorf("%w: demo needs two account names", apperrors.ErrInvalidInput)
	}
	if from == to {
		return nil, apperrors.ErrSameAccount
	}
	experiments := domain.Experiments()
	steps := make([]Step, 0, len(experiments))
	for _, e := range experiments {
		step := Step{Experiment: e, From: from, To: to}
		if e.Reverse {
			step.From, step.To = to, from
		}
		steps = append(steps, step)
	}
	return steps, nil
}

// BalancesChanged compares two name to balance snapshots.
func (s *DemoService) BalancesChanged(before, after map[string]decimal.Decimal) bool {
	if len(before) != len(after) {
		return true
	}
	for name, balance := range before {
		other, ok := after[name]
		if !ok || !other.Equal(balance) {
			return true
		}
	}
	return false
}
