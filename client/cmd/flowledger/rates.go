package main

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"flowLedger/client/backend"
	"flowLedger/client/dto"
)

var (
	ratesDate      string
	ratesJSON      bool
	convertDate    string
	idempotencyKey string
)

var exchangeRatesCmd = &cobra.Command{
	Use:   "exchange-rates BASE [QUOTE]",
	Short: "Reads exchange rates for a base currency",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := backend.RateQuery{Base: args[0], Date: ratesDate}
		if len(args) == 2 {
			query.Quote = args[1]
		}

		rates, err := deps.client.GetExchangeRates(cmd.Context(), query)
		if err != nil {
			return err
		}
		if ratesJSON {
			return printJSON(rates)
		}
		return printRates(rates)
	},
}

var convertCmd = &cobra.Command{
	Use:   "convert AMOUNT FROM TO",
	Short: "Converts an amount between two currencies",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		key := idempotencyKey
		if key == "" {
			key = uuid.NewString()
		}

		out, err := deps.client.Convert(cmd.Context(), dto.ConvertRequest{
			Amount: args[0],
			From:   args[1],
			To:     args[2],
			Date:   convertDate,
		}, key)
		if err != nil {
			return err
		}
		return printJSON(out)
	},
}

func printRates(rates *dto.ExchangeRates) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "BASE\tQUOTE\tRATE\tEFFECTIVE")
	if rates.Single() {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", rates.Base, rates.Quote, rates.Rate, rates.EffectiveDate)
		return w.Flush()
	}

	quotes := make([]string, 0, len(rates.Rates))
	for quote := range rates.Rates {
		quotes = append(quotes, quote)
	}
	sort.Strings(quotes)
	for _, quote := range quotes {
		entry := rates.Rates[quote]
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", rates.Base, quote, entry.Rate, entry.EffectiveDate)
	}
	return w.Flush()
}

func init() {
	exchangeRatesCmd.Flags().StringVar(&ratesDate, "date", "", "rate date (YYYY-MM-DD), latest when empty")
	exchangeRatesCmd.Flags().BoolVar(&ratesJSON, "json", false, "print JSON instead of a table")
	convertCmd.Flags().StringVar(&convertDate, "date", "", "rate date (YYYY-MM-DD), latest when empty")
	convertCmd.Flags().StringVar(&idempotencyKey, "idempotency-key", "", "key sent with the request (default a new UUID)")

	rootCmd.AddCommand(exchangeRatesCmd)
	rootCmd.AddCommand(convertCmd)
}
