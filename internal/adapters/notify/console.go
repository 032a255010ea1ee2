package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/alejandrodnm/marketsim/internal/domain"
)

// Console implementa ports.Notifier.
type Console struct {
	out   io.Writer
	table bool
}

// NewConsole crea un notificador que escribe a stdout.
func NewConsole(table bool) *Console {
	return &Console{out: os.Stdout, table: table}
}

// NewConsoleWriter crea un notificador para tests.
func NewConsoleWriter(w io.Writer, table bool) *Console {
	return &Console{out: w, table: table}
}

// RoundCompleted imprime el resultado de la ronda en el modo configurado.
func (c *Console) RoundCompleted(_ context.Context, result domain.RoundResult) error {
	if c.table {
		c.printFull(result)
	} else {
		c.printCompact(result)
	}
	return nil
}

// printCompact imprime lo esencial en una línea por compañía.
func (c *Console) printCompact(result domain.RoundResult) {
	now := time.Now().Format("15:04:05")

	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] round %d cleared — %d companies", now, result.Round, len(result.Companies))

	for _, cr := range result.Companies {
		mark := ""
		if cr.Undersold {
			mark = " (undersold)"
		}
		fmt.Fprintf(&sb, " | %s @%.2f %d/%d%s",
			cr.CompanyID, cr.ClearingPrice, cr.TotalAllocated,
			cr.TotalAllocated+cr.Unsold, mark)
	}
	if n := len(result.Warnings); n > 0 {
		fmt.Fprintf(&sb, " | warnings:%d", n)
	}

	fmt.Fprintln(c.out, sb.String())
}

// printFull imprime la tabla completa de clearing por compañía.
func (c *Console) printFull(result domain.RoundResult) {
	fmt.Fprintf(c.out, "\n=== ROUND %d — IPO RESULTS (%s) ===\n",
		result.Round, result.CompletedAt.Format("15:04:05"))

	table := tablewriter.NewWriter(c.out)
	table.Header("Company", "Clearing $", "Allocated", "Unsold", "Winners", "Revenue", "Book")

	for _, cr := range result.Companies {
		revenue := 0.0
		for _, a := range cr.Allocations {
			revenue += a.Cost
		}

		book := "covered"
		if cr.Undersold {
			book = "UNDERSOLD"
		}
		if cr.TotalAllocated == 0 {
			book = "NO BIDS"
		}

		table.Append(
			cr.CompanyName,
			fmt.Sprintf("%.2f", cr.ClearingPrice),
			fmt.Sprintf("%d", cr.TotalAllocated),
			fmt.Sprintf("%d", cr.Unsold),
			fmt.Sprintf("%d", len(cr.Allocations)),
			fmt.Sprintf("$%.2f", revenue),
			book,
		)
	}
	table.Render()

	c.printAllocations(result)

	for _, w := range result.Warnings {
		fmt.Fprintf(c.out, "  !! %s\n", w)
	}
	fmt.Fprintln(c.out)
}

// printAllocations imprime las adjudicaciones por participante.
func (c *Console) printAllocations(result domain.RoundResult) {
	type line struct {
		participant string
		shares      int
		cost        float64
	}
	byParticipant := make(map[string]*line)
	for _, cr := range result.Companies {
		for _, a := range cr.Allocations {
			l, ok := byParticipant[a.ParticipantID]
			if !ok {
				l = &line{participant: a.ParticipantID}
				byParticipant[a.ParticipantID] = l
			}
			l.shares += a.Shares
			l.cost += a.Cost
		}
	}
	if len(byParticipant) == 0 {
		fmt.Fprintln(c.out, "  (no shares allocated this round)")
		return
	}

	lines := make([]*line, 0, len(byParticipant))
	for _, l := range byParticipant {
		lines = append(lines, l)
	}
	sort.Slice(lines, func(i, j int) bool {
		if lines[i].cost != lines[j].cost {
			return lines[i].cost > lines[j].cost
		}
		return lines[i].participant < lines[j].participant
	})

	for _, l := range lines {
		fmt.Fprintf(c.out, "  %-12s %6d shares  $%.2f\n", l.participant, l.shares, l.cost)
	}
}

// PrintLedger imprime el estado del ledger: cash, gastado, holdings y títulos
// de CEO por participante, ordenado por net worth.
func (c *Console) PrintLedger(snap domain.LedgerSnapshot) {
	fmt.Fprintf(c.out, "\n=== LEDGER — round %d, phase %s ===\n", snap.Round, snap.Phase)

	table := tablewriter.NewWriter(c.out)
	table.Header("Participant", "Cash", "Spent", "Holdings", "Net Worth", "CEO of")

	for _, p := range snap.Participants {
		name := p.Name
		if p.IsHuman {
			name += " *"
		}

		table.Append(
			name,
			fmt.Sprintf("$%.2f", p.Cash),
			fmt.Sprintf("$%.2f", p.TotalSpent),
			holdingsLabel(p.Shares),
			fmt.Sprintf("$%.2f", p.NetWorth),
			strings.Join(p.CEOOf, ", "),
		)
	}
	table.Render()
	fmt.Fprintln(c.out, "  * human player")
}

func holdingsLabel(shares map[string]int) string {
	if len(shares) == 0 {
		return "-"
	}
	ids := make([]string, 0, len(shares))
	for id := range shares {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, fmt.Sprintf("%s:%d", id, shares[id]))
	}
	return strings.Join(parts, " ")
}
