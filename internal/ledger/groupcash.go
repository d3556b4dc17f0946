package ledger

import (
	"github.com/shopspring/decimal"

	"bachat/internal/core"
)

type (
	// GroupRow is one group cash entry with its running balance.
	GroupRow struct {
		core.Transaction
		Balance decimal.Decimal `json:"balance"`
	}

	GroupTotals struct {
		In           decimal.Decimal `json:"in"`
		Out          decimal.Decimal `json:"out"`
		FinalBalance decimal.Decimal `json:"finalBalance"`
	}

	GroupLedger struct {
		Rows   []GroupRow  `json:"rows"`
		Totals GroupTotals `json:"totals"`
	}
)

// ComputeGroupCash builds the group cash ledger for a fiscal year. There
// is no per-member scoping and no calendar pre-generation: entries are
// taken in the order storage listed them, which is not necessarily
// chronological, and the running balance follows that order.
func ComputeGroupCash(txs []core.Transaction, fy core.FiscalYear) GroupLedger {
	var out GroupLedger
	balance := decimal.Zero
	for _, tx := range txs {
		if tx.FiscalYear != fy {
			continue
		}
		switch tx.Kind {
		case core.KindCashIn:
			balance = balance.Add(tx.Amount)
			out.Totals.In = out.Totals.In.Add(tx.Amount)
		case core.KindCashOut:
			balance = balance.Sub(tx.Amount)
			out.Totals.Out = out.Totals.Out.Add(tx.Amount)
		default:
			continue
		}
		out.Rows = append(out.Rows, GroupRow{Transaction: tx, Balance: balance})
	}
	out.Totals.FinalBalance = balance
	return out
}
