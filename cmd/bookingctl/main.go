package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:     "bookingctl",
		Short:   "Salon booking client tools: refund quotes and checkout",
		Version: Version,
	}

	rootCmd.PersistentFlags().String("api", envOr("BOOKING_API_URL", "http://localhost:8080/api/v1"), "Booking API base URL")
	rootCmd.PersistentFlags().String("token", os.Getenv("BOOKING_API_TOKEN"), "Bearer token for the API")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log checkout state transitions")

	rootCmd.AddCommand(quoteCmd())
	rootCmd.AddCommand(payCmd())
	rootCmd.AddCommand(reconcileCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func envOr(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
