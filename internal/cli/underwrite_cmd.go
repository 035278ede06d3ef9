package cli

import (
	"fmt"

	"github.com/ajharbinger/dealflowos/internal/underwriting"
	"github.com/spf13/cobra"
)

func newUnderwriteCmd(app *App) *cobra.Command {
	var arv, repairs, multiplier, fee, offer float64

	cmd := &cobra.Command{
		Use:   "underwrite",
		Short: "Compute MOA and deal score for a property",
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			in := underwriting.Inputs{}
			if flags.Changed("arv") {
				in.ARV = underwriting.Float(arv)
			}
			if flags.Changed("repairs") {
				in.EstimatedRepairs = underwriting.Float(repairs)
			}
			if flags.Changed("multiplier") {
				in.InvestorMultiplier = underwriting.Float(multiplier)
			}
			if flags.Changed("fee") {
				in.DesiredAssignmentFee = underwriting.Float(fee)
			}
			if flags.Changed("offer") {
				in.OfferPrice = underwriting.Float(offer)
			}

			engine := underwriting.NewEngine(app.Config.DefaultInvestorMultiplier)
			result := engine.Recalculate(in)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "MOA:        %s\n", formatMoney(result.MOA))
			if result.DealScore == nil {
				fmt.Fprintln(out, "Deal score: n/a")
				return nil
			}
			fmt.Fprintf(out, "Deal score: %.0f\n", *result.DealScore)
			if b := result.Breakdown; b != nil {
				fmt.Fprintf(out, "  repair points: %d\n", b.RepairPoints)
				fmt.Fprintf(out, "  moa points:    %d\n", b.MOAPoints)
				if b.Penalty > 0 {
					fmt.Fprintf(out, "  offer penalty: -%d\n", b.Penalty)
				}
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.Float64Var(&arv, "arv", 0, "After-repair value")
	flags.Float64Var(&repairs, "repairs", 0, "Estimated repairs")
	flags.Float64Var(&multiplier, "multiplier", 0, "Investor multiplier (defaults to DEFAULT_INVESTOR_MULTIPLIER)")
	flags.Float64Var(&fee, "fee", 0, "Desired assignment fee")
	flags.Float64Var(&offer, "offer", 0, "Offer price")
	_ = cmd.MarkFlagRequired("arv")
	return cmd
}

func formatMoney(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("$%.2f", *v)
}
