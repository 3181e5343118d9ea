package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"fieldops/internal/sequence"
	"fieldops/pkg/db"
)

var counterCmd = &cobra.Command{
	Use:   "counter",
	Short: "Inspect and seed document-number counters",
}

var counterShowCmd = &cobra.Command{
	Use:   "show <series>",
	Short: "Show a series' counter without allocating",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		pool, err := db.Open(ctx, cfg)
		if err != nil {
			return err
		}
		defer pool.Close()

		c, ok, err := sequence.NewPGStore(pool).Peek(ctx, args[0])
		if err != nil {
			return err
		}
		if !ok {
			fmt.Printf("series %s has not allocated yet; next allocation formats as %s\n",
				args[0], sequence.Format(sequence.DefaultsFor(args[0]).Prefix, cfg.Numbering.Padding, 1))
			return nil
		}
		fmt.Printf("series=%s next=%d prefix=%s padding=%d (next number %s)\n",
			c.Series, c.NextValue, c.Prefix, c.Padding, sequence.Format(c.Prefix, c.Padding, c.NextValue))
		return nil
	},
}

var (
	counterPrefix  string
	counterPadding int
	counterNext    int64
)

var counterSetCmd = &cobra.Command{
	Use:   "set <series>",
	Short: "Seed or reshape a series (next value only ever moves forward)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		pool, err := db.Open(ctx, cfg)
		if err != nil {
			return err
		}
		defer pool.Close()

		series := args[0]
		prefix := counterPrefix
		if prefix == "" {
			prefix = sequence.DefaultsFor(series).Prefix
		}
		c, err := sequence.NewPGStore(pool).Configure(ctx, series, prefix, counterPadding, counterNext)
		if err != nil {
			return err
		}
		fmt.Printf("series=%s next=%d prefix=%s padding=%d\n", c.Series, c.NextValue, c.Prefix, c.Padding)
		return nil
	},
}

func init() {
	counterSetCmd.Flags().StringVar(&counterPrefix, "prefix", "", "document-number prefix (defaults to the series default)")
	counterSetCmd.Flags().IntVar(&counterPadding, "padding", 4, "zero-pad width")
	counterSetCmd.Flags().Int64Var(&counterNext, "next", 1, "next value to allocate (never moves backwards)")

	counterCmd.AddCommand(counterShowCmd)
	counterCmd.AddCommand(counterSetCmd)
	rootCmd.AddCommand(counterCmd)
}
