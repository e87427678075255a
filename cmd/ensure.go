package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"dbboot/bootstrap"
	"dbboot/driver"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// ensureResult is the machine-readable outcome for --json output.
type ensureResult struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Error    string `json:"error,omitempty"`
}

// newEnsureCmd creates the 'ensure' subcommand
func newEnsureCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "ensure",
		Short: "Connect and ensure the target database exists",
		Long: `Connect to the configured server, create the target database if it is
absent, select it, and report readiness. Exits non-zero on any failure.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			// The bootstrap core imposes no deadline of its own; the CLI
			// bounds the attempt through the context instead.
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()

			sugar := zap.NewNop().Sugar()
			if !quiet && !outputJSON {
				var err error
				_, sugar, err = bootstrap.InitLogger()
				if err != nil {
					return fmt.Errorf("failed to initialize logger: %w", err)
				}
			}

			cfg, err := bootstrap.InitConfig(sugar)
			if err != nil {
				return err
			}

			done := make(chan error, 1)
			b, err := bootstrap.New(cfg, driver.NewMongoDriver(sugar), sugar,
				func(err error, h driver.Handle) {
					if err == nil {
						_ = h.Close(context.Background())
					}
					done <- err
				})
			if err != nil {
				return err
			}

			if !quiet && !outputJSON {
				infoColor.Printf("Ensuring database %q on %s\n", b.Database(), cfg.EffectiveURI())
			}

			var s *spinner.Spinner
			if !outputJSON && !quiet {
				s = spinner.New(spinner.CharSets[14], 100*time.Millisecond)
				s.Suffix = " Bootstrapping connection..."
				s.Start()
			}

			if err := b.Start(ctx); err != nil {
				if s != nil {
					s.Stop()
				}
				return err
			}
			bootErr := <-done

			if s != nil {
				s.Stop()
			}

			if outputJSON {
				if err := outputAsJSON(ensureOutcome(b.Database(), bootErr)); err != nil {
					return err
				}
				if bootErr != nil {
					return fmt.Errorf("bootstrap failed: %w", bootErr)
				}
				return nil
			}

			if bootErr != nil {
				errorColor.Printf("Bootstrap failed: %v\n", bootErr)
				if remediation := bootstrap.ClassifyConnectError(bootErr, cfg.EffectiveURI()); remediation != "" {
					fmt.Fprintln(os.Stderr, remediation)
				}
				return fmt.Errorf("bootstrap failed: %w", bootErr)
			}

			successColor.Printf("Database %q is ready\n", b.Database())
			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "Overall bootstrap timeout")

	return cmd
}

func ensureOutcome(database string, err error) ensureResult {
	if err != nil {
		return ensureResult{Status: "failed", Database: database, Error: err.Error()}
	}
	return ensureResult{Status: "ready", Database: database}
}

// outputAsJSON writes v to stdout as indented JSON.
func outputAsJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
