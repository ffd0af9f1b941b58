package commands

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/cleared-dev/forecourt/internal/id"
	"github.com/cleared-dev/forecourt/internal/model"
	"github.com/cleared-dev/forecourt/internal/store"
	"github.com/cleared-dev/forecourt/internal/vouchers"
)

func newVoucherCommand(g *globals) *cobra.Command {
	voucherCmd := &cobra.Command{
		Use:   "voucher",
		Short: "Create, post and cancel vouchers",
	}
	voucherCmd.AddCommand(
		newVoucherCreateCommand(g),
		newVoucherPostCommand(g),
		newVoucherCancelCommand(g),
		newVoucherShowCommand(g),
		newVoucherListCommand(g),
	)
	for _, tc := range transferCommands {
		voucherCmd.AddCommand(newTransferCommand(g, tc))
	}
	return voucherCmd
}

func newVoucherCreateCommand(g *globals) *cobra.Command {
	var typ, on, narration, party, reference, cheque, total string
	var debits, credits []string
	var post bool

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a voucher from debit and credit lines",
		Example: `  forecourt voucher create --type RECEIPT --date 2025-06-02 \
    --debit 1110=1250.50 --credit 4000=1250.50 --narration "card batch 118" --post`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			date, err := parseDate("date", on)
			if err != nil {
				return err
			}
			if date.IsZero() {
				return fmt.Errorf("--date is required")
			}
			amount, err := parseAmount("total", total)
			if err != nil {
				return err
			}

			return g.withSession(cmd, func(s *session) error {
				ctx := cmd.Context()
				in := vouchers.NewVoucher{
					TenantID:    s.tenant,
					Type:        model.VoucherType(strings.ToUpper(typ)),
					Date:        date,
					Narration:   narration,
					TotalAmount: amount,
					CreatedBy:   s.actor,
				}
				for _, side := range []struct {
					side  model.Side
					flag  string
					lines []string
				}{{model.SideDebit, "debit", debits}, {model.SideCredit, "credit", credits}} {
					for _, l := range side.lines {
						e, err := parseLine(ctx, s, side.flag, l)
						if err != nil {
							return err
						}
						e.Side = side.side
						e.Party, e.Reference, e.ChequeNumber = party, reference, cheque
						in.Entries = append(in.Entries, e)
					}
				}

				var v model.Voucher
				if post {
					v, err = s.CreateAndPostVoucher(ctx, in)
				} else {
					v, err = s.CreateVoucher(ctx, in)
				}
				if v.ID != "" {
					fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s\n", v.Number, v.Status, money(v.TotalAmount))
				}
				return err
			})
		},
	}

	cmd.Flags().StringVar(&typ, "type", "JOURNAL", "PAYMENT, RECEIPT, JOURNAL, CONTRA, SALES, PURCHASE, CREDIT_NOTE, DEBIT_NOTE or CHEQUE_RETURN")
	cmd.Flags().StringVar(&on, "date", "", "voucher date, YYYY-MM-DD or today (required)")
	cmd.Flags().StringVar(&narration, "narration", "", "description")
	cmd.Flags().StringVar(&party, "party", "", "customer or supplier")
	cmd.Flags().StringVar(&reference, "reference", "", "external reference")
	cmd.Flags().StringVar(&cheque, "cheque", "", "cheque number")
	cmd.Flags().StringVar(&total, "total", "", "voucher total, defaults to the debit sum")
	cmd.Flags().StringArrayVar(&debits, "debit", nil, "CODE=AMOUNT debit line, repeatable")
	cmd.Flags().StringArrayVar(&credits, "credit", nil, "CODE=AMOUNT credit line, repeatable")
	cmd.Flags().BoolVar(&post, "post", false, "post immediately")

	return cmd
}

// parseLine resolves a CODE=AMOUNT flag value to a voucher entry.
func parseLine(ctx context.Context, s *session, flag, value string) (model.VoucherEntry, error) {
	code, amt, ok := strings.Cut(value, "=")
	if !ok {
		return model.VoucherEntry{}, fmt.Errorf("--%s %q: want CODE=AMOUNT", flag, value)
	}
	amount, err := parseAmount(flag, amt)
	if err != nil {
		return model.VoucherEntry{}, err
	}
	a, err := s.AccountByCode(ctx, s.tenant, strings.TrimSpace(code))
	if err != nil {
		return model.VoucherEntry{}, fmt.Errorf("--%s %q: %w", flag, value, err)
	}
	return model.VoucherEntry{AccountID: a.ID, Amount: amount}, nil
}

func newVoucherPostCommand(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "post <number|id>",
		Short: "Post a draft voucher to the ledger",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withSession(cmd, func(s *session) error {
				ctx := cmd.Context()
				v, err := findVoucher(ctx, s, args[0])
				if err != nil {
					return err
				}
				if v, err = s.PostVoucher(ctx, v.ID, s.actor); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", v.Number, v.Status)
				return nil
			})
		},
	}
}

func newVoucherCancelCommand(g *globals) *cobra.Command {
	var reason string

	cmd := &cobra.Command{
		Use:   "cancel <number|id>",
		Short: "Void a draft or reverse a posted voucher",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withSession(cmd, func(s *session) error {
				ctx := cmd.Context()
				v, err := findVoucher(ctx, s, args[0])
				if err != nil {
					return err
				}
				if v, err = s.CancelVoucher(ctx, v.ID, reason, s.actor); err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%s %s\n", v.Number, v.Status)
				if v.ReversedBy != "" {
					rev, err := s.Voucher(ctx, v.ReversedBy)
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "  reversed by %s dated %s\n", rev.Number, formatDate(rev.Date))
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&reason, "reason", "", "why the voucher is cancelled (required)")
	_ = cmd.MarkFlagRequired("reason")

	return cmd
}

func newVoucherShowCommand(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "show <number|id>",
		Short: "Show a voucher and its lines",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withSession(cmd, func(s *session) error {
				ctx := cmd.Context()
				v, err := findVoucher(ctx, s, args[0])
				if err != nil {
					return err
				}
				return printVoucher(ctx, cmd.OutOrStdout(), s, v)
			})
		},
	}
}

// findVoucher resolves a voucher number of the current tenant or a raw
// voucher id.
func findVoucher(ctx context.Context, s *session, ref string) (model.Voucher, error) {
	_, tenantID, _, _, err := id.ParseVoucherNumber(ref)
	if err != nil {
		return s.Voucher(ctx, ref)
	}
	if tenantID != s.tenant {
		return model.Voucher{}, fmt.Errorf("voucher %s belongs to %s, not %s", ref, tenantID, s.tenant)
	}
	return s.VoucherByNumber(ctx, s.tenant, ref)
}

func printVoucher(ctx context.Context, w io.Writer, s *session, v model.Voucher) error {
	fmt.Fprintf(w, "%s  %s  %s  %s\n", v.Number, v.Type, formatDate(v.Date), v.Status)
	if v.Narration != "" {
		fmt.Fprintf(w, "  %s\n", v.Narration)
	}
	if v.CancelReason != "" {
		fmt.Fprintf(w, "  cancelled by %s: %s\n", v.CancelledBy, v.CancelReason)
	}

	tw := newTable(w)
	fmt.Fprintln(tw, "ACCOUNT\tNAME\tDEBIT\tCREDIT\tNARRATION")
	for _, e := range v.Entries {
		a, err := s.Account(ctx, e.AccountID)
		if err != nil {
			return err
		}
		debit, credit := e.Amount, decimal.Zero
		if e.Side == model.SideCredit {
			debit, credit = credit, debit
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", a.Code, a.Name, blankZero(debit), blankZero(credit), e.Narration)
	}
	fmt.Fprintf(tw, "\t\t%s\t%s\t\n", money(v.TotalAmount), money(v.TotalAmount))
	return tw.Flush()
}

func newVoucherListCommand(g *globals) *cobra.Command {
	var from, to, status, typ string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List vouchers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := store.VoucherFilter{
				Status: model.VoucherStatus(strings.ToUpper(status)),
				Type:   model.VoucherType(strings.ToUpper(typ)),
			}
			var err error
			if f.From, err = parseDate("from", from); err != nil {
				return err
			}
			if f.To, err = parseDate("to", to); err != nil {
				return err
			}
			return g.withSession(cmd, func(s *session) error {
				f.TenantID = s.tenant
				vs, err := s.Vouchers(cmd.Context(), f)
				if err != nil {
					return err
				}
				tw := newTable(cmd.OutOrStdout())
				fmt.Fprintln(tw, "NUMBER\tDATE\tSTATUS\tTOTAL\tNARRATION")
				for _, v := range vs {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", v.Number, formatDate(v.Date), v.Status, money(v.TotalAmount), v.Narration)
				}
				return tw.Flush()
			})
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "first date, YYYY-MM-DD")
	cmd.Flags().StringVar(&to, "to", "", "last date, YYYY-MM-DD")
	cmd.Flags().StringVar(&status, "status", "", "DRAFT, POSTED or CANCELLED")
	cmd.Flags().StringVar(&typ, "type", "", "voucher type")

	return cmd
}
