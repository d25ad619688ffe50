package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newSweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Complete reservations of every timeslot that has ended, once",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := bootstrap(ctx, nil)
			if err != nil {
				return err
			}
			defer a.Close()

			n, err := a.svc.Completion.Sweep(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "completed %d reservation(s)\n", n)
			return nil
		},
	}
}
