package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"salonbook/internal/domain/refund"
)

func quoteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Show the refund a cancellation would get right now",
		Long: `Computes the cancellation refund for a booking from its date, time and
price using the tiered policy. Runs offline.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			date, _ := cmd.Flags().GetString("date")
			clock, _ := cmd.Flags().GetString("time")
			price, _ := cmd.Flags().GetInt64("price")
			tz, _ := cmd.Flags().GetString("tz")

			loc, err := time.LoadLocation(tz)
			if err != nil {
				return fmt.Errorf("invalid timezone %q: %w", tz, err)
			}
			comp, err := refund.CalculateFor(date, clock, loc, price, time.Now())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Policy:     %s\n", comp.Tier.Label)
			if !comp.IsPastBooking {
				fmt.Fprintf(out, "Time left:  %dh %dm\n", comp.HoursRemaining, comp.MinutesRemaining)
			}
			fmt.Fprintf(out, "Refund:     %d%% = %d\n", comp.Percentage, comp.RefundAmount)
			fmt.Fprintf(out, "Deduction:  %d\n", comp.DeductionAmount)
			return nil
		},
	}

	cmd.Flags().String("date", "", "Booking date (YYYY-MM-DD)")
	cmd.Flags().String("time", "", "Booking time (HH:MM)")
	cmd.Flags().Int64("price", 0, "Booking price in rupees")
	cmd.Flags().String("tz", "Asia/Kolkata", "Salon timezone")
	_ = cmd.MarkFlagRequired("date")
	_ = cmd.MarkFlagRequired("time")
	_ = cmd.MarkFlagRequired("price")

	return cmd
}
