package statement

import (
	"sort"
	"time"

	"github.com/cleared-dev/forecourt/internal/model"
)

// Match pairs a statement line with a ledger entry.
type Match struct {
	Line  Line
	Entry model.LedgerEntry
	// ByCheque is set when the pair shares a cheque number.
	ByCheque bool
	DaysOff  int
}

// Result is the outcome of matching one statement against a ledger.
type Result struct {
	Matches   []Match
	Unmatched []Line
}

// MatchLines pairs each line with at most one unreconciled entry of the
// same amount and side dated within window days. A shared cheque number
// wins over date proximity; among equals the earliest entry in ledger
// order is taken. Entries are used at most once.
func MatchLines(lines []Line, entries []model.LedgerEntry, window int) Result {
	candidates := make([]model.LedgerEntry, 0, len(entries))
	for _, e := range entries {
		if !e.Reconciled {
			candidates = append(candidates, e)
		}
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Before(candidates[j]) })
	used := make([]bool, len(candidates))

	// Cheque-numbered lines go first so they claim their exact entries.
	order := make([]int, len(lines))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return lines[order[a]].ChequeNumber != "" && lines[order[b]].ChequeNumber == ""
	})

	var res Result
	matched := make([]*Match, len(lines))
	for _, li := range order {
		l := lines[li]
		best := -1
		bestCheque := false
		bestDays := 0
		for ci, e := range candidates {
			if used[ci] || e.Side != l.Side() || !e.Amount().Equal(l.Amount.Abs()) {
				continue
			}
			days := daysBetween(l.Date, e.Date)
			if days > window {
				continue
			}
			cheque := l.ChequeNumber != "" && l.ChequeNumber == e.ChequeNumber
			if best == -1 || (cheque && !bestCheque) || (cheque == bestCheque && days < bestDays) {
				best, bestCheque, bestDays = ci, cheque, days
			}
		}
		if best == -1 {
			continue
		}
		used[best] = true
		matched[li] = &Match{Line: l, Entry: candidates[best], ByCheque: bestCheque, DaysOff: bestDays}
	}

	for i, m := range matched {
		if m == nil {
			res.Unmatched = append(res.Unmatched, lines[i])
			continue
		}
		res.Matches = append(res.Matches, *m)
	}
	return res
}

func daysBetween(a, b time.Time) int {
	d := int(a.Sub(b).Hours() / 24)
	if d < 0 {
		return -d
	}
	return d
}
