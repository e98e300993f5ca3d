package commands

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/damon-houk/fintrack/internal/domain/failure"
	"github.com/damon-houk/fintrack/internal/domain/money"
)

func newRefreshCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh BASE...",
		Short: "Fetch the latest rate tables and store them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			a, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer func() { err = multierr.Append(err, a.Close()) }()

			out := cmd.OutOrStdout()
			var failed error
			for _, base := range args {
				result, refreshErr := a.Fetcher.Refresh(cmd.Context(), base)
				switch {
				case refreshErr == nil:
					fmt.Fprintf(out, "%s: %d upserted, %d skipped, as of %s\n",
						result.Base, len(result.Upserted), len(result.Skipped), result.AsOf.Format("2006-01-02T15:04:05Z07:00"))
				case errors.Is(refreshErr, failure.ErrPartialRefresh):
					fmt.Fprintf(out, "%s: %d upserted, %d failed\n", result.Base, len(result.Upserted), len(result.Failed))
					failed = multierr.Append(failed, refreshErr)
				default:
					fmt.Fprintf(out, "%s: %s\n", strings.ToUpper(base), failure.Classify(refreshErr))
					failed = multierr.Append(failed, refreshErr)
				}
			}
			return failed
		},
	}
}

func newListCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "list BASE",
		Short: "Print every rate stored for a base currency",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			a, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer func() { err = multierr.Append(err, a.Close()) }()

			rates, err := a.Resolver.StoredRates(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(rates) == 0 {
				fmt.Fprintf(out, "no rates stored for %s\n", strings.ToUpper(args[0]))
				return nil
			}
			for _, rate := range rates {
				fmt.Fprintf(out, "%s %s %s\n", rate.Pair(), rate.Rate.String(), rate.AsOfDate.Format("2006-01-02"))
			}
			return nil
		},
	}
}

func newResolveCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve FROM TO",
		Short: "Print the stored rate between two currencies",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			a, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer func() { err = multierr.Append(err, a.Close()) }()

			res, err := a.Resolver.ResolveDetailed(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}

			path := "direct"
			switch {
			case res.Identity:
				path = "identity"
			case res.Inverted:
				path = "inverse"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "1 %s = %s %s (%s)\n", res.From, res.Rate.String(), res.To, path)
			return nil
		},
	}
}

func newConvertCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "convert AMOUNT FROM TO",
		Short: "Convert an amount in minor units, falling back to the unconverted amount",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			amount, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("amount must be an integer number of minor units: %w", err)
			}

			a, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer func() { err = multierr.Append(err, a.Close()) }()

			conversion := a.Converter.ConvertDetailed(cmd.Context(), amount, args[1], args[2])
			if !conversion.Converted {
				fmt.Fprintf(cmd.OutOrStdout(), "%s (unconverted: no rate to %s)\n",
					money.Format(amount, args[1]), strings.ToUpper(args[2]))
				return nil
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", money.Format(amount, args[1]), money.Format(conversion.Amount, args[2]))
			return nil
		},
	}
}
