package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"binance-grid-bot-go/internal/futures"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		scenarioPath string
		asJSON       bool
		flags        = futures.DefaultScenario()
	)

	cmd := &cobra.Command{
		Use:   "calc",
		Short: "Leveraged futures take-profit / stop-loss calculator",
		Long: "Computes position size, TP and SL prices, the profit or loss at each,\n" +
			"and the price move needed to earn a target share of the capital.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := futures.DefaultScenario()
			if scenarioPath != "" {
				loaded, err := futures.LoadScenario(scenarioPath)
				if err != nil {
					return err
				}
				s = loaded
			}
			overrideChanged(cmd, &s, flags)

			r, err := futures.Calculate(s)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), s, r)
			}
			writeReport(cmd.OutOrStdout(), s, r)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&scenarioPath, "scenario", "s", "", "YAML scenario file")
	f.BoolVar(&asJSON, "json", false, "print the result as JSON")
	f.Float64Var(&flags.Capital, "capital", flags.Capital, "total capital (USDT)")
	f.Float64Var(&flags.InvestPercent, "invest", flags.InvestPercent, "investment per position (% of capital)")
	f.IntVar(&flags.Leverage, "leverage", flags.Leverage, "leverage (1-125)")
	f.Float64Var(&flags.EntryPrice, "entry", flags.EntryPrice, "entry price")
	f.Float64Var(&flags.TakeProfitPercent, "tp", flags.TakeProfitPercent, "take profit (% from entry)")
	f.Float64Var(&flags.StopLossPercent, "sl", flags.StopLossPercent, "stop loss (% from entry)")
	f.Float64Var(&flags.TargetCapitalPercent, "target", flags.TargetCapitalPercent, "target profit (% of capital)")

	return cmd
}

// overrideChanged applies the flags given on the command line on top of s.
func overrideChanged(cmd *cobra.Command, s *futures.Scenario, flags futures.Scenario) {
	changed := cmd.Flags().Changed
	if changed("capital") {
		s.Capital = flags.Capital
	}
	if changed("invest") {
		s.InvestPercent = flags.InvestPercent
	}
	if changed("leverage") {
		s.Leverage = flags.Leverage
	}
	if changed("entry") {
		s.EntryPrice = flags.EntryPrice
	}
	if changed("tp") {
		s.TakeProfitPercent = flags.TakeProfitPercent
	}
	if changed("sl") {
		s.StopLossPercent = flags.StopLossPercent
	}
	if changed("target") {
		s.TargetCapitalPercent = flags.TargetCapitalPercent
	}
}

func writeJSON(w io.Writer, s futures.Scenario, r futures.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		Scenario futures.Scenario `json:"scenario"`
		Result   futures.Result   `json:"result"`
		Levels   []futures.Level  `json:"levels"`
	}{s, r, r.Levels(s.EntryPrice)})
}

func writeReport(w io.Writer, s futures.Scenario, r futures.Result) {
	fmt.Fprintf(w, "Investment per position: %s USDT\n", r.Investment.StringFixed(2))
	fmt.Fprintf(w, "Leverage: %dx -> position size: %s USDT\n", s.Leverage, r.PositionSize.StringFixed(2))
	fmt.Fprintf(w, "Take profit price: %s USDT (+%g%%)\n", r.TakeProfitPrice.StringFixed(2), s.TakeProfitPercent)
	fmt.Fprintf(w, "Stop loss price: %s USDT (-%g%%)\n", r.StopLossPrice.StringFixed(2), s.StopLossPercent)
	fmt.Fprintf(w, "Profit at take profit: %s USDT\n", r.ProfitAtTakeProfit.StringFixed(2))
	fmt.Fprintf(w, "Loss at stop loss: %s USDT\n", r.LossAtStopLoss.StringFixed(2))
	fmt.Fprintf(w, "Price move for a %g%% capital target: %s%%\n", s.TargetCapitalPercent, r.RequiredMovePercent.StringFixed(2))
	fmt.Fprintf(w, "Target prices: %s USDT (up) / %s USDT (down)\n", r.RequiredPriceUp.StringFixed(2), r.RequiredPriceDown.StringFixed(2))

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Levels:")
	for _, l := range r.Levels(s.EntryPrice) {
		fmt.Fprintf(w, "  %-12s %s\n", l.Name, l.Price.StringFixed(2))
	}
}
