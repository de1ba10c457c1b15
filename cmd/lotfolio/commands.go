package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/bobmcallan/lotfolio/internal/app"
	"github.com/bobmcallan/lotfolio/internal/common"
	"github.com/bobmcallan/lotfolio/internal/interfaces"
	"github.com/bobmcallan/lotfolio/internal/models"
)

// cli holds the flags shared by every subcommand and the app they open.
type cli struct {
	configPath string
	portfolio  string
	asJSON     bool

	// newApp is swapped in tests
	newApp func(configPath string) (*app.App, error)
	app    *app.App
}

func newRootCmd() *cobra.Command {
	c := &cli{newApp: app.NewApp}

	root := &cobra.Command{
		Use:           "lotfolio",
		Short:         "FIFO tax-lot ledger and portfolio valuation timeline",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if c.app != nil {
				c.app.Close()
				c.app = nil
			}
		},
	}

	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default: LOTFOLIO_CONFIG or config/lotfolio.toml)")
	root.PersistentFlags().StringVarP(&c.portfolio, "portfolio", "p", "", "portfolio name (default: default_portfolio from config)")
	root.PersistentFlags().BoolVar(&c.asJSON, "json", false, "print JSON instead of tables")

	root.AddCommand(
		c.buyCmd(),
		c.sellCmd(),
		c.lotsCmd(),
		c.holdingsCmd(),
		c.timelineCmd(),
		c.importCmd(),
		versionCmd(),
	)
	return root
}

// open initializes the app and resolves the portfolio name.
func (c *cli) open() (*app.App, string, error) {
	if c.app == nil {
		a, err := c.newApp(c.configPath)
		if err != nil {
			return nil, "", err
		}
		c.app = a
	}
	portfolio := c.portfolio
	if portfolio == "" {
		portfolio = c.app.DefaultPortfolio
	}
	return c.app, portfolio, nil
}

func (c *cli) buyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "buy SYMBOL QUANTITY PRICE DATE",
		Short: "Record a purchase lot",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			qty, price, err := parseQuantityPrice(args[1], args[2])
			if err != nil {
				return err
			}
			a, portfolio, err := c.open()
			if err != nil {
				return err
			}

			lot, err := a.LedgerService.Buy(cmd.Context(), portfolio, models.BuyOrder{
				Symbol:        args[0],
				Quantity:      qty,
				PurchasePrice: price,
				PurchaseDate:  args[3],
			})
			if err != nil {
				return err
			}

			if c.asJSON {
				return printJSON(cmd.OutOrStdout(), lot)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Bought %g %s @ %.2f on %s (lot %s)\n",
				lot.Quantity, lot.Symbol, lot.PurchasePrice, lot.PurchaseDate, lot.ID)
			return nil
		},
	}
}

func (c *cli) sellCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sell SYMBOL QUANTITY PRICE DATE",
		Short: "Sell shares, consuming the oldest lots first",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			qty, price, err := parseQuantityPrice(args[1], args[2])
			if err != nil {
				return err
			}
			a, portfolio, err := c.open()
			if err != nil {
				return err
			}

			result, err := a.LedgerService.Sell(cmd.Context(), portfolio, models.SellOrder{
				Symbol:    args[0],
				Quantity:  qty,
				SellPrice: price,
				SellDate:  args[3],
			})
			if err != nil {
				return err
			}

			if c.asJSON {
				return printJSON(cmd.OutOrStdout(), result)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Sold %g for %.2f\n", result.SoldQuantity, result.Proceeds)
			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "LOT\tBOUGHT\tQTY\tCOST\tPROCEEDS\tGAIN")
			for _, f := range result.Fills {
				fmt.Fprintf(tw, "%s\t%s\t%g\t%.2f\t%.2f\t%.2f\n",
					f.LotID, f.PurchaseDate, f.Quantity, f.CostBasis, f.Proceeds, f.RealizedGain)
			}
			return tw.Flush()
		},
	}
}

func (c *cli) lotsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lots",
		Short: "List every lot in the ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, portfolio, err := c.open()
			if err != nil {
				return err
			}
			ledger, err := a.LedgerService.GetLedger(cmd.Context(), portfolio)
			if err != nil {
				return err
			}

			if c.asJSON {
				return printJSON(cmd.OutOrStdout(), ledger)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSYMBOL\tBOUGHT\tQTY\tPRICE\tSOLD\tSELL DATE\tSELL PRICE")
			for _, l := range ledger.Lots {
				sellDate, sellPrice := "-", "-"
				if l.SellDate != nil {
					sellDate = l.SellDate.String()
				}
				if l.SellPrice != nil {
					sellPrice = strconv.FormatFloat(*l.SellPrice, 'f', 2, 64)
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%g\t%.2f\t%g\t%s\t%s\n",
					l.ID, l.Symbol, l.PurchaseDate, l.Quantity, l.PurchasePrice, l.SoldQuantity, sellDate, sellPrice)
			}
			fmt.Fprintf(tw, "\nCash withdrawn from sales:\t%.2f\n", ledger.CashWithdrawnFromSales)
			return tw.Flush()
		},
	}
}

func (c *cli) holdingsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "holdings",
		Short: "Show open positions per symbol",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, portfolio, err := c.open()
			if err != nil {
				return err
			}
			holdings, err := a.LedgerService.GetHoldings(cmd.Context(), portfolio)
			if err != nil {
				return err
			}

			if c.asJSON {
				return printJSON(cmd.OutOrStdout(), holdings)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "SYMBOL\tQTY\tAVG COST\tCOST BASIS\tLOTS\tSINCE")
			for _, h := range holdings {
				fmt.Fprintf(tw, "%s\t%g\t%.2f\t%.2f\t%d\t%s\n",
					h.Symbol, h.Quantity, h.AverageCost, h.CostBasis, h.OpenLots, h.FirstPurchase)
			}
			return tw.Flush()
		},
	}
}

func (c *cli) timelineCmd() *cobra.Command {
	var from, to string

	cmd := &cobra.Command{
		Use:   "timeline",
		Short: "Reconstruct the day-by-day portfolio value",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var opts interfaces.TimelineOptions
			if from != "" {
				d, err := models.ParseDate(from)
				if err != nil {
					return fmt.Errorf("--from: %w", err)
				}
				opts.From = d
			}
			if to != "" {
				d, err := models.ParseDate(to)
				if err != nil {
					return fmt.Errorf("--to: %w", err)
				}
				opts.To = d
			}

			a, portfolio, err := c.open()
			if err != nil {
				return err
			}
			tl, err := a.TimelineService.GetTimeline(cmd.Context(), portfolio, opts)
			if err != nil {
				return err
			}

			if c.asJSON {
				return printJSON(cmd.OutOrStdout(), tl)
			}
			out := cmd.OutOrStdout()
			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "DATE\tVALUE\tPOSITIONS")
			for _, day := range tl.Days {
				fmt.Fprintf(tw, "%s\t%.2f\t%d\n", day.Date, day.TotalValue, len(day.Stocks))
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			if len(tl.FailedSymbols) > 0 {
				fmt.Fprintf(out, "\nNo prices for: %v\n", tl.FailedSymbols)
			}
			if len(tl.Gaps) > 0 {
				fmt.Fprintf(out, "Missing price points: %d\n", len(tl.Gaps))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "first date to emit (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "last date to emit (YYYY-MM-DD)")
	return cmd
}

func (c *cli) importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Replay a CSV of type,symbol,quantity,price,date rows",
		Long: "Replay a trade file in row order. The header row must name the columns\n" +
			"type,symbol,quantity,price,date. If any row fails, nothing is applied.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open trade file: %w", err)
			}
			defer f.Close()

			a, portfolio, err := c.open()
			if err != nil {
				return err
			}
			summary, err := a.LedgerService.ImportCSV(cmd.Context(), portfolio, f)
			if err != nil {
				return err
			}

			if c.asJSON {
				return printJSON(cmd.OutOrStdout(), summary)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d rows into %s (%d buys, %d sells, proceeds %.2f)\n",
				summary.Rows, summary.Portfolio, summary.Buys, summary.Sells, summary.Proceeds)
			return nil
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), common.GetFullVersion())
		},
	}
}

func parseQuantityPrice(qtyArg, priceArg string) (float64, float64, error) {
	qty, err := strconv.ParseFloat(qtyArg, 64)
	if err != nil {
		return 0, 0, models.NewValidationError("quantity", "not a number: %q", qtyArg)
	}
	price, err := strconv.ParseFloat(priceArg, 64)
	if err != nil {
		return 0, 0, models.NewValidationError("price", "not a number: %q", priceArg)
	}
	return qty, price, nil
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
