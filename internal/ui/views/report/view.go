// Package report renders ledger state and demo runs for the terminal.
package report

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	demodto "ledgertx/internal/modules/demo/dto"
	ledgerdto "ledgertx/internal/modules/ledger/dto"
	logdto "ledgertx/internal/modules/transferlog/dto"
	"ledgertx/internal/ui/theme"
)

const timeLayout = "15:04:05.000"

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(theme.Surface1)).
		Headers(headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return theme.Header
			}
			return theme.Cell
		})
}

func Accounts(accounts []ledgerdto.AccountOutput) string {
	if len(accounts) == 0 {
		return theme.Muted.Render("no accounts")
	}
	t := newTable("ACCOUNT", "BALANCE")
	for _, account := range accounts {
		t.Row(account.Name, account.Balance.StringFixed(2))
	}
	return t.Render()
}

func Logs(entries []logdto.EntryOutput) string {
	if len(entries) == 0 {
		return theme.Muted.Render("no transfer log entries")
	}
	t := newTable("ID", "FROM", "TO", "AMOUNT", "STATUS", "MESSAGE", "AT")
	for _, entry := range entries {
		t.Row(
			strconv.FormatInt(entry.ID, 10),
			entry.FromAccount,
			entry.ToAccount,
			entry.Amount.StringFixed(2),
			theme.Status(entry.Status),
			entry.Message,
			entry.CreatedAt.Format(timeLayout),
		)
	}
	return t.Render()
}

func Transfer(out ledgerdto.TransferOutput) string {
	return fmt.Sprintf("%s %s -> %s %s %s",
		theme.Pass.Render("transferred"),
		out.From,
		out.To,
		out.Amount.StringFixed(2),
		theme.Muted.Render(fmt.Sprintf("(log=%s id=%s)", out.LogMode, out.TransferID)),
	)
}

// Demo renders every experiment with the balances and log after it, then a
// one-line verdict per experiment.
func Demo(run demodto.RunOutput) string {
	var b strings.Builder
	b.WriteString(theme.Title.Render("Initial balances"))
	b.WriteString("\n")
	b.WriteString(Accounts(run.Initial))
	b.WriteString("\n\n")

	for _, step := range run.Steps {
		b.WriteString(stepPane(step))
		b.WriteString("\n\n")
	}

	b.WriteString(theme.Title.Render("Summary"))
	b.WriteString("\n")
	for _, step := range run.Steps {
		mark := theme.Pass.Render("PASS")
		if !step.Holds {
			mark = theme.Fail.Render("FAIL")
		}
		b.WriteString(fmt.Sprintf("  %s  %s %-12s %s\n", mark, step.Code, step.Propagation, step.Expectation))
	}
	return b.String()
}

func stepPane(step demodto.StepOutput) string {
	var b strings.Builder
	b.WriteString(theme.Title.Render(fmt.Sprintf("Experiment %s  %s", step.Code, step.Title)))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("%s -> %s  %s  %s\n",
		step.From, step.To, step.Amount, theme.Muted.Render("log propagation "+step.Propagation)))
	if step.Failure != "" {
		b.WriteString(theme.Hot.Render("simulated failure: " + step.Failure))
		b.WriteString("\n")
	}
	if step.Err != "" {
		b.WriteString(theme.Fail.Render("error: ") + step.Err + "\n")
	} else {
		b.WriteString(theme.Pass.Render("committed") + "\n")
	}
	b.WriteString(theme.Muted.Render(fmt.Sprintf("expected: %s, log entries added: %d", step.Expectation, step.LogsAdded)))
	b.WriteString("\n")
	b.WriteString(Accounts(step.Balances))
	b.WriteString("\n")
	b.WriteString(Logs(step.Logs))

	style := theme.Pane
	if !step.Holds {
		style = theme.PaneFailed
	}
	return style.Render(b.String())
}
