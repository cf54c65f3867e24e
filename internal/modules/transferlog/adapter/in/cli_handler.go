package in

import (
	"context"
	"strings"

	logdto "ledgertx/internal/modules/transferlog/dto"
	login "ledgertx/internal/modules/transferlog/port/in"
)

type CLIHandler struct {
	usecase login.Usecase
}

func NewCLIHandler(usecase login.Usecase) CLIHandler {
	return CLIHandler{usecase: usecase}
}

// List returns every entry, or only those with status when it is set.
func (h CLIHandler) List(ctx context.Context, status string) ([]logdto.EntryOutput, error) {
	if strings.TrimSpace(status) == "" {
		return h.usecase.ListAll(ctx)
	}
	return h.usecase.ListByStatus(ctx, status)
}

func (h CLIHandler) Reset(ctx context.Context) error {
	return h.usecase.Reset(ctx)
}
