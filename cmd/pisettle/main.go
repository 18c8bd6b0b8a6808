package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/chris/pi-settlement/pkg/app"
	"github.com/chris/pi-settlement/pkg/config"
	"github.com/chris/pi-settlement/pkg/logging"
	"github.com/chris/pi-settlement/pkg/models"
	"github.com/chris/pi-settlement/pkg/settlement"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var Version = "dev"

// Service is the part of the orchestrator exposed to operators.
type Service interface {
	SettleRetry(ctx context.Context, paymentID, txid string) (*models.Settlement, error)
	Recover(ctx context.Context, paymentID string) (*models.Settlement, error)
	Approve(ctx context.Context, paymentID string) (*models.Payment, error)
	VerifyTransaction(ctx context.Context, req settlement.VerifyRequest) (*settlement.VerifyOutcome, error)
	Settlement(ctx context.Context, paymentID string) (*models.Settlement, error)
}

type serviceFactory func(ctx context.Context) (Service, error)

func main() {
	root := newRootCmd(loadService, os.Stdout)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadService(ctx context.Context) (Service, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	components, err := app.Build(ctx, cfg, logging.NewWithWriter(os.Stderr, cfg.Logging))
	if err != nil {
		return nil, err
	}
	return components.Orchestrator, nil
}

func newRootCmd(newService serviceFactory, out io.Writer) *cobra.Command {
	var configFile string

	root := &cobra.Command{
		Use:           "pisettle",
		Short:         "Operate Pi payment settlement",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if configFile != "" {
				return os.Setenv("CONFIG_FILE", configFile)
			}
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&configFile, "config", "c", "", "YAML config file")
	root.SetOut(out)

	root.AddCommand(settleCmd(newService))
	root.AddCommand(recoverCmd(newService))
	root.AddCommand(approveCmd(newService))
	root.AddCommand(verifyCmd(newService))
	root.AddCommand(settlementCmd(newService))
	return root
}

func settleCmd(newService serviceFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "settle <paymentId> <txid>",
		Short: "Complete, verify and record a payment",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newService(cmd.Context())
			if err != nil {
				return err
			}
			rec, err := svc.SettleRetry(cmd.Context(), args[0], args[1])
			return printResult(cmd, rec, err)
		},
	}
}

func recoverCmd(newService serviceFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "recover <paymentId>",
		Short: "Settle a payment using the txid known to the platform",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newService(cmd.Context())
			if err != nil {
				return err
			}
			rec, err := svc.Recover(cmd.Context(), args[0])
			return printResult(cmd, rec, err)
		},
	}
}

func approveCmd(newService serviceFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "approve <paymentId>",
		Short: "Approve a payment on the platform",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newService(cmd.Context())
			if err != nil {
				return err
			}
			payment, err := svc.Approve(cmd.Context(), args[0])
			return printResult(cmd, payment, err)
		},
	}
}

func settlementCmd(newService serviceFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "settlement <paymentId>",
		Short: "Show the recorded settlement of a payment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newService(cmd.Context())
			if err != nil {
				return err
			}
			rec, err := svc.Settlement(cmd.Context(), args[0])
			return printResult(cmd, rec, err)
		},
	}
}

func verifyCmd(newService serviceFactory) *cobra.Command {
	var (
		amount      string
		req         settlement.VerifyRequest
		autoRelease bool
	)

	cmd := &cobra.Command{
		Use:   "verify <txid>",
		Short: "Verify a ledger transaction against an order or explicit expectations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.TransactionHash = args[0]
			req.AutoRelease = autoRelease
			if amount != "" {
				d, err := decimal.NewFromString(amount)
				if err != nil {
					return fmt.Errorf("invalid amount %q: %w", amount, err)
				}
				req.ExpectedAmount = &d
			}

			svc, err := newService(cmd.Context())
			if err != nil {
				return err
			}
			outcome, err := svc.VerifyTransaction(cmd.Context(), req)
			return printResult(cmd, outcome, err)
		},
	}

	cmd.Flags().StringVarP(&req.OrderID, "order", "o", "", "Order id; its total and store wallet become the expectations")
	cmd.Flags().StringVarP(&amount, "amount", "a", "", "Expected amount in Pi")
	cmd.Flags().StringVarP(&req.ExpectedRecipient, "recipient", "r", "", "Expected recipient wallet")
	cmd.Flags().StringVarP(&req.ExpectedMemo, "memo", "m", "", "Expected memo")
	cmd.Flags().BoolVar(&autoRelease, "release", false, "Mark the order paid when verified")
	return cmd
}

// printResult writes v as indented JSON. A settlement error is printed with its details
// before being returned.
func printResult(cmd *cobra.Command, v any, err error) error {
	if err != nil {
		var sErr *settlement.Error
		if errors.As(err, &sErr) {
			_ = writeJSON(cmd.OutOrStdout(), map[string]any{
				"error":        sErr.Message,
				"kind":         sErr.Kind,
				"details":      sErr.Details,
				"verification": sErr.Verification,
			})
		}
		return err
	}
	return writeJSON(cmd.OutOrStdout(), v)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
