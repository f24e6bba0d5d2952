package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/architeacher/svc-stomp-worker/internal/consumer"
	"github.com/architeacher/svc-stomp-worker/internal/runtime"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "stomp-worker",
		Short:         "STOMP reliable queue worker",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(newWorkerCommand(), newSendCommand())

	return rootCmd
}

func newWorkerCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "worker <queue>",
		Short: "Process items from a STOMP queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lease, _ := cmd.Flags().GetInt("lease-time")
			itemsLimit, _ := cmd.Flags().GetInt("items-limit")

			return runtime.NewWorker(args[0], consumer.Options{
				Lease:     time.Duration(lease) * time.Second,
				ItemLimit: itemsLimit,
			}).Run()
		},
	}

	cmd.Flags().Int("lease-time", int(consumer.DefaultLease/time.Second), "Lease time in seconds")
	cmd.Flags().Int("items-limit", 0, "Number of items to process before stopping, 0 means unlimited")

	return cmd
}

func newSendCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "send <queue> <payload>",
		Short: "Send an item to a STOMP queue",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			asJSON, _ := cmd.Flags().GetBool("json")

			var data any = args[1]
			if asJSON {
				var decoded map[string]any
				if err := json.Unmarshal([]byte(args[1]), &decoded); err != nil {
					return fmt.Errorf("payload is not a JSON object: %w", err)
				}

				data = decoded
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			id, err := runtime.Send(ctx, args[0], data)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), id)

			return nil
		},
	}

	cmd.Flags().Bool("json", false, "Send the payload as a JSON object")

	return cmd
}
