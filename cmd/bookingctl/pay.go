package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"salonbook/internal/cache"
	"salonbook/internal/checkout"
	"salonbook/internal/pkg/logger"
)

func payCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pay",
		Short: "Pay for a booking through the hosted checkout",
		Long: `Creates (or reuses) a gateway order for the booking, prints the checkout
link and waits for the outcome on stdin:

  paid <payment_id> <signature>
  fail <code> [source=.. step=.. reason=..] <description>
  dismiss

Failed attempts are retried with backoff. Dismissing or exhausting retries
asks the server for the authoritative payment status.`,
		RunE: runPay,
	}

	cmd.Flags().Int64("booking", 0, "Booking id")
	cmd.Flags().Int64("amount", 0, "Amount in rupees")
	cmd.Flags().String("currency", checkout.DefaultCurrency, "Currency code")
	cmd.Flags().String("name", "", "Customer name for prefill")
	cmd.Flags().String("email", "", "Customer email for prefill")
	cmd.Flags().String("contact", "", "Customer phone for prefill")
	cmd.Flags().Int("retries", checkout.DefaultMaxRetries, "Maximum automatic retries")
	cmd.Flags().String("redis", os.Getenv("REDIS_ADDR"), "Redis address for the shared order cache")
	_ = cmd.MarkFlagRequired("booking")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}

func runPay(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	bookingID, _ := cmd.Flags().GetInt64("booking")
	amount, _ := cmd.Flags().GetInt64("amount")
	currency, _ := cmd.Flags().GetString("currency")
	name, _ := cmd.Flags().GetString("name")
	email, _ := cmd.Flags().GetString("email")
	contact, _ := cmd.Flags().GetString("contact")
	retries, _ := cmd.Flags().GetInt("retries")
	redisAddr, _ := cmd.Flags().GetString("redis")
	verbose, _ := cmd.Flags().GetBool("verbose")

	log := zap.NewNop()
	if verbose {
		log = logger.New("dev")
	}
	defer func() { _ = log.Sync() }()

	orders, closeOrders := orderStore(ctx, redisAddr, log)
	defer closeOrders()

	out := cmd.OutOrStdout()
	orch := checkout.New(apiClient(cmd), checkout.NewTerminal(cmd.InOrStdin(), out), orders,
		checkout.WithMaxRetries(retries),
		checkout.WithLogger(log),
		checkout.WithNotices(func(n checkout.Notice) {
			fmt.Fprintf(out, "» %s\n", n.Message)
		}),
	)

	res, err := orch.Pay(ctx, checkout.Request{
		BookingID: bookingID,
		Amount:    amount,
		Currency:  currency,
		Name:      "Salon booking",
		Prefill:   checkout.Prefill{Name: name, Email: email, Contact: contact},
		Notes:     map[string]string{"booking_id": fmt.Sprint(bookingID)},
	})
	if res != nil {
		printResult(cmd, res)
	}
	return err
}

func reconcileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Ask the server for the payment status of a booking",
		RunE: func(cmd *cobra.Command, args []string) error {
			bookingID, _ := cmd.Flags().GetInt64("booking")
			orderID, _ := cmd.Flags().GetString("order")

			res, err := apiClient(cmd).Reconcile(cmd.Context(), checkout.ReconcileRequest{
				BookingID: bookingID,
				OrderID:   orderID,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Status:     %s\n", res.Status)
			if res.PaymentID != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Payment:    %s\n", res.PaymentID)
			}
			return nil
		},
	}

	cmd.Flags().Int64("booking", 0, "Booking id")
	cmd.Flags().String("order", "", "Gateway order id")
	_ = cmd.MarkFlagRequired("booking")
	_ = cmd.MarkFlagRequired("order")

	return cmd
}

func apiClient(cmd *cobra.Command) *checkout.HTTPClient {
	base, _ := cmd.Flags().GetString("api")
	token, _ := cmd.Flags().GetString("token")
	return checkout.NewHTTPClient(base, token)
}

func orderStore(ctx context.Context, addr string, log *zap.Logger) (cache.OrderStore, func()) {
	if addr == "" {
		return cache.NewMemory(cache.DefaultOrderTTL), func() {}
	}
	client, err := cache.NewRedisClient(ctx, cache.RedisOptions{Addr: addr})
	if err != nil {
		log.Warn("redis unavailable, using in-process order cache", zap.Error(err))
		return cache.NewMemory(cache.DefaultOrderTTL), func() {}
	}
	return cache.NewRedis(client, cache.DefaultOrderTTL), func() { _ = client.Close() }
}

func printResult(cmd *cobra.Command, res *checkout.Result) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "State:      %s\n", res.State)
	if res.OrderID != "" {
		fmt.Fprintf(out, "Order:      %s\n", res.OrderID)
	}
	if res.PaymentID != "" {
		fmt.Fprintf(out, "Payment:    %s\n", res.PaymentID)
	}
	if res.RetryCount > 0 {
		fmt.Fprintf(out, "Retries:    %d\n", res.RetryCount)
	}
	if res.CancelCause != checkout.CauseNone {
		fmt.Fprintf(out, "Cause:      %s\n", res.CancelCause)
	}
	if res.GatewayError != nil {
		fmt.Fprintf(out, "Last error: %s\n", res.GatewayError.Error())
	}
	if res.Message != "" {
		fmt.Fprintln(out, res.Message)
	}
}
