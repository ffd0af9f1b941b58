package commands

import (
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/cleared-dev/forecourt/internal/reports"
)

func newReportCommand(g *globals) *cobra.Command {
	reportCmd := &cobra.Command{
		Use:   "report",
		Short: "Print financial statements",
	}
	reportCmd.AddCommand(
		newTrialBalanceCommand(g),
		newPnLCommand(g),
		newBalanceSheetCommand(g),
		newCashBookCommand(g),
		newDayBookCommand(g),
	)
	return reportCmd
}

// asOfFlag parses --as-of, defaulting to today.
func asOfFlag(s string) (time.Time, error) {
	if s == "" {
		s = "today"
	}
	return parseDate("as-of", s)
}

func newTrialBalanceCommand(g *globals) *cobra.Command {
	var asOf string

	cmd := &cobra.Command{
		Use:   "trial-balance",
		Short: "Closing balance of every account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			date, err := asOfFlag(asOf)
			if err != nil {
				return err
			}
			return g.withSession(cmd, func(s *session) error {
				tb, err := s.TrialBalance(cmd.Context(), s.tenant, date)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Trial balance of %s as of %s\n\n", s.cfg.Business.Name, formatDate(tb.AsOf))
				tw := newTable(out)
				fmt.Fprintln(tw, "CODE\tACCOUNT\tDEBIT\tCREDIT")
				for _, r := range tb.Rows {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Code, r.Name, blankZero(r.Debit), blankZero(r.Credit))
				}
				fmt.Fprintf(tw, "\tTOTAL\t%s\t%s\n", money(tb.TotalDebit), money(tb.TotalCredit))
				if err := tw.Flush(); err != nil {
					return err
				}
				printBalanced(out, tb.IsBalanced, tb.Warnings)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&asOf, "as-of", "", "report date, YYYY-MM-DD (default today)")
	return cmd
}

func newPnLCommand(g *globals) *cobra.Command {
	var from, to, tax string

	cmd := &cobra.Command{
		Use:   "pnl",
		Short: "Profit and loss for a period",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			start, err := parseDate("from", from)
			if err != nil {
				return err
			}
			end, err := parseDate("to", to)
			if err != nil {
				return err
			}
			taxExpense, err := parseAmount("tax", tax)
			if err != nil {
				return err
			}
			return g.withSession(cmd, func(s *session) error {
				pl, err := s.ProfitAndLoss(cmd.Context(), s.tenant, start, end, taxExpense)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Profit and loss of %s, %s to %s\n\n", s.cfg.Business.Name, formatDate(pl.From), formatDate(pl.To))
				tw := newTable(out)
				section(tw, "Income", pl.Income, pl.TotalIncome)
				section(tw, "Direct expenses", pl.DirectExpenses, pl.TotalDirectExpenses)
				fmt.Fprintf(tw, "GROSS PROFIT\t\t%s\n\n", money(pl.GrossProfit))
				section(tw, "Other income", pl.OtherIncome, pl.TotalOtherIncome)
				section(tw, "Indirect expenses", pl.IndirectExpenses, pl.TotalIndirectExpenses)
				fmt.Fprintf(tw, "PROFIT BEFORE TAX\t\t%s\n", money(pl.NetProfitBeforeTax))
				fmt.Fprintf(tw, "Tax\t\t%s\n", money(pl.TaxExpense))
				fmt.Fprintf(tw, "PROFIT AFTER TAX\t\t%s\n", money(pl.NetProfitAfterTax))
				return tw.Flush()
			})
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "first date, YYYY-MM-DD")
	cmd.Flags().StringVar(&to, "to", "", "last date, YYYY-MM-DD")
	cmd.Flags().StringVar(&tax, "tax", "", "tax expense to deduct on top of tax accounts")
	return cmd
}

func newBalanceSheetCommand(g *globals) *cobra.Command {
	var asOf string

	cmd := &cobra.Command{
		Use:   "balance-sheet",
		Short: "Assets, liabilities and equity as of a date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			date, err := asOfFlag(asOf)
			if err != nil {
				return err
			}
			return g.withSession(cmd, func(s *session) error {
				bs, err := s.BalanceSheet(cmd.Context(), s.tenant, date)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Balance sheet of %s as of %s\n\n", s.cfg.Business.Name, formatDate(bs.AsOf))
				tw := newTable(out)
				section(tw, "Current assets", bs.CurrentAssets, reports.Total(bs.CurrentAssets))
				section(tw, "Fixed assets", bs.FixedAssets, reports.Total(bs.FixedAssets))
				section(tw, "Other assets", bs.OtherAssets, reports.Total(bs.OtherAssets))
				fmt.Fprintf(tw, "TOTAL ASSETS\t\t%s\n\n", money(bs.TotalAssets))
				section(tw, "Current liabilities", bs.CurrentLiabilities, reports.Total(bs.CurrentLiabilities))
				section(tw, "Long-term liabilities", bs.LongTermLiabilities, reports.Total(bs.LongTermLiabilities))
				section(tw, "Equity", bs.Equity, reports.Total(bs.Equity))
				fmt.Fprintf(tw, "Retained earnings\t\t%s\n", money(bs.RetainedEarnings))
				fmt.Fprintf(tw, "TOTAL LIABILITIES AND EQUITY\t\t%s\n", money(bs.TotalLiabilities.Add(bs.TotalEquity)))
				if err := tw.Flush(); err != nil {
					return err
				}
				printBalanced(out, bs.IsBalanced, bs.Warnings)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&asOf, "as-of", "", "report date, YYYY-MM-DD (default today)")
	return cmd
}

func newCashBookCommand(g *globals) *cobra.Command {
	var from, to string

	cmd := &cobra.Command{
		Use:   "cash-book <account-code>",
		Short: "Receipts and payments of one account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			start, err := parseDate("from", from)
			if err != nil {
				return err
			}
			end, err := parseDate("to", to)
			if err != nil {
				return err
			}
			return g.withSession(cmd, func(s *session) error {
				ctx := cmd.Context()
				a, err := s.AccountByCode(ctx, s.tenant, args[0])
				if err != nil {
					return err
				}
				cb, err := s.CashBook(ctx, a.ID, start, end)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Cash book %s %s, %s to %s\n\n", cb.Code, cb.Name, formatDate(cb.From), formatDate(cb.To))
				tw := newTable(out)
				fmt.Fprintln(tw, "DATE\tVOUCHER\tNARRATION\tRECEIPT\tPAYMENT\tBALANCE\tREC")
				fmt.Fprintf(tw, "\t\tOpening balance\t\t\t%s\t\n", money(cb.Opening))
				for _, l := range cb.Lines {
					rec := ""
					if l.Reconciled {
						rec = "*"
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n", formatDate(l.Date), l.VoucherNumber, l.Narration,
						blankZero(l.Receipt), blankZero(l.Payment), money(l.Balance), rec)
				}
				fmt.Fprintf(tw, "\t\tClosing balance\t%s\t%s\t%s\t\n", money(cb.TotalReceipts), money(cb.TotalPayments), money(cb.Closing))
				return tw.Flush()
			})
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "first date, YYYY-MM-DD")
	cmd.Flags().StringVar(&to, "to", "", "last date, YYYY-MM-DD")
	return cmd
}

func newDayBookCommand(g *globals) *cobra.Command {
	var from, to string

	cmd := &cobra.Command{
		Use:   "day-book",
		Short: "Every posting of a day or period, by voucher",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			start, err := asOfFlag(from)
			if err != nil {
				return err
			}
			end, err := parseDate("to", to)
			if err != nil {
				return err
			}
			return g.withSession(cmd, func(s *session) error {
				db, err := s.DayBook(cmd.Context(), s.tenant, start, end)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Day book %s to %s: %d vouchers, %d entries\n\n", formatDate(db.From), formatDate(db.To), db.VoucherCount, db.EntryCount)
				tw := newTable(out)
				fmt.Fprintln(tw, "DATE\tVOUCHER\tACCOUNT\tDEBIT\tCREDIT")
				for _, v := range db.Vouchers {
					for i, l := range v.Lines {
						date, number := "", ""
						if i == 0 {
							date, number = formatDate(v.Date), v.Number
						}
						fmt.Fprintf(tw, "%s\t%s\t%s %s\t%s\t%s\n", date, number, l.AccountCode, l.AccountName, blankZero(l.Debit), blankZero(l.Credit))
					}
				}
				fmt.Fprintf(tw, "\t\tTOTAL\t%s\t%s\n", money(db.TotalDebit), money(db.TotalCredit))
				if err := tw.Flush(); err != nil {
					return err
				}
				printBalanced(out, db.IsBalanced, db.Warnings)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "first date, YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&to, "to", "", "last date, defaults to --from")
	return cmd
}

func section(w io.Writer, title string, lines []reports.Line, total decimal.Decimal) {
	fmt.Fprintf(w, "%s\t\t\n", title)
	for _, l := range lines {
		fmt.Fprintf(w, "  %s %s\t%s\t\n", l.Code, l.Name, money(l.Amount))
	}
	fmt.Fprintf(w, "\t\t%s\n", money(total))
}

func printBalanced(w io.Writer, balanced bool, warnings []reports.ConsistencyWarning) {
	if balanced {
		fmt.Fprintln(w, "\nBalanced.")
	} else {
		fmt.Fprintln(w, "\nNOT BALANCED.")
	}
	for _, warn := range warnings {
		fmt.Fprintf(w, "  %s: %s\n", warn.Kind, warn.Message)
	}
}
