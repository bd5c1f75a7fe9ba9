// Binary sweeper withdraws staked BONK for every configured owner and forwards it.
package main

import (
	"fmt"
	"os"
	ossignal "os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"stakesweep-go/internal/config"
	dex "stakesweep-go/internal/dex/solana"
	"stakesweep-go/internal/execution"
	"stakesweep-go/internal/metrics"
	"stakesweep-go/internal/report"
	"stakesweep-go/internal/sweep"
	"stakesweep-go/internal/util"
)

const defaultConfigPath = "config.toml"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string
	root := &cobra.Command{
		Use:           "sweeper",
		Short:         "Withdraw staked tokens and forward them to a single destination",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", defaultConfigPath, "config file (.toml or .yaml)")
	root.AddCommand(newRunCmd(&configPath), newCheckCmd(&configPath), newPlanCmd(&configPath))
	return root
}

// load reads the config and validates every identity. Nothing here touches the network.
func load(path string) (*config.Config, *sweep.Setup, zerolog.Logger, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, zerolog.Nop(), fmt.Errorf("config: %w", err)
	}
	log := util.NewLogger(cfg.App.LogLevel, cfg.App.LogFormat)
	setup, err := sweep.Validate(cfg)
	if err != nil {
		return nil, nil, log, fmt.Errorf("config: %w", err)
	}
	return cfg, setup, log, nil
}

func newExecutor(cfg *config.Config, log zerolog.Logger) (*execution.Executor, error) {
	client, err := dex.NewRPC(cfg.RPCURL)
	if err != nil {
		return nil, err
	}
	delivery, err := deliveryFromConfig(cfg.Delivery)
	if err != nil {
		return nil, err
	}
	return execution.NewExecutor(client, delivery, log), nil
}

func newRunCmd(configPath *string) *cobra.Command {
	var once bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Sweep every target in a loop",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, setup, log, err := load(*configPath)
			if err != nil {
				return err
			}
			exec, err := newExecutor(cfg, log)
			if err != nil {
				return err
			}

			if cfg.App.MetricsAddr != "" {
				srv := metrics.Serve(cfg.App.MetricsAddr)
				defer srv.Close()
				log.Info().Str("addr", cfg.App.MetricsAddr).Msg("metrics up")
			}

			opts := []sweep.Option{
				sweep.WithInterval(cfg.Loop.Interval()),
				sweep.WithMaxPasses(cfg.Loop.MaxPasses),
			}
			if once {
				opts = append(opts, sweep.WithMaxPasses(1))
			}
			if cfg.Report.Path != "" {
				rec, err := report.NewJSONLRecorder(cfg.Report.Path)
				if err != nil {
					return fmt.Errorf("report: %w", err)
				}
				defer rec.Close()
				opts = append(opts, sweep.WithRecorder(rec))
			}

			ctx, cancel := ossignal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			log.Info().
				Str("fee_payer", setup.FeePayer.PublicKey.String()).
				Str("forward", setup.ForwardHolding.String()).
				Int("targets", len(setup.Targets)).
				Msg("sweeper started")
			runner := sweep.NewRunner(setup, exec, log, opts...)
			err = runner.Run(ctx)
			submitted, failed := runner.Totals()
			log.Info().Int("submitted", submitted).Int("failed", failed).Msg("sweeper stopped")
			if err != nil && ctx.Err() != nil {
				log.Info().Msg("shutting down")
				return nil
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&once, "once", false, "run a single pass and exit")
	return cmd
}

func newCheckCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate config and identities without touching the network",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, setup, _, err := load(*configPath)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "fee payer:       %s\n", setup.FeePayer.PublicKey)
			fmt.Fprintf(out, "forward holding: %s (owner %s)\n", setup.ForwardHolding, setup.ForwardOwner)
			for _, t := range setup.Targets {
				holding, err := dex.AssociatedTokenAddress(t.Owner.PublicKey, setup.Program.Mint)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "target %d: owner %s holding %s amount %s (%d base units)\n",
					t.Index, t.Owner.PublicKey, holding, t.Quantity.String(), t.Amount)
			}
			return nil
		},
	}
}

func newPlanCmd(configPath *string) *cobra.Command {
	var encode bool
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Print the instruction bundle for every target without sending it",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, setup, log, err := load(*configPath)
			if err != nil {
				return err
			}
			var exec *execution.Executor
			if encode {
				if exec, err = newExecutor(cfg, log); err != nil {
					return err
				}
			}
			out := cmd.OutOrStdout()
			for _, t := range setup.Targets {
				plan, err := setup.Plan(t)
				if err != nil {
					return fmt.Errorf("target %d: %w", t.Index, err)
				}
				fmt.Fprintf(out, "target %d (%s):\n", t.Index, t.Owner.PublicKey)
				for i, ix := range plan.Instructions {
					fmt.Fprintf(out, "  %d. program %s, %d accounts\n", i+1, ix.ProgramID(), len(ix.Accounts()))
				}
				if exec == nil {
					continue
				}
				blockhash, err := exec.LatestBlockhash(cmd.Context())
				if err != nil {
					return err
				}
				tx, err := execution.Compose(plan.Instructions, blockhash, setup.FeePayer, t.Owner)
				if err != nil {
					return err
				}
				b64, err := execution.Encode(tx)
				if err != nil {
					return err
				}
				decoded, err := execution.Decode(b64)
				if err != nil {
					return err
				}
				if err := execution.CheckSigners(decoded, setup.FeePayer.PublicKey, t.Owner.PublicKey); err != nil {
					return fmt.Errorf("target %d: encoded tx: %w", t.Index, err)
				}
				fmt.Fprintf(out, "  tx: %s\n", b64)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&encode, "encode", false, "fetch a blockhash and print the signed base64 transaction")
	return cmd
}

func deliveryFromConfig(d config.Delivery) (execution.Delivery, error) {
	preflight, err := dex.ParseCommitment(d.PreflightCommitment, "")
	if err != nil {
		return execution.Delivery{}, fmt.Errorf("delivery.preflight_commitment: %w", err)
	}
	blockhash, err := dex.ParseCommitment(d.BlockhashCommitment, "")
	if err != nil {
		return execution.Delivery{}, fmt.Errorf("delivery.blockhash_commitment: %w", err)
	}
	return execution.Delivery{
		SkipPreflight:       d.SkipPreflight,
		PreflightCommitment: preflight,
		BlockhashCommitment: blockhash,
		MaxRetries:          d.MaxRetries,
		MinContextSlot:      d.MinContextSlot,
		Timeout:             d.Timeout(),
	}, nil
}
