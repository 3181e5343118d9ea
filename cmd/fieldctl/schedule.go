package main

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"fieldops/internal/schedule"
)

var (
	previewTotal     string
	previewCount     int
	previewFrequency string
	previewStart     string
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Payment schedule utilities",
}

var schedulePreviewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Dry-run the installment builder without touching storage",
	RunE: func(cmd *cobra.Command, args []string) error {
		total, err := decimal.NewFromString(previewTotal)
		if err != nil {
			return fmt.Errorf("invalid --total: %w", err)
		}
		freq, err := schedule.ParseFrequency(previewFrequency)
		if err != nil {
			return err
		}
		start, err := time.Parse("2006-01-02", previewStart)
		if err != nil {
			return fmt.Errorf("invalid --start, want YYYY-MM-DD: %w", err)
		}

		installments, err := schedule.Build(total, previewCount, freq, start, cfg.Schedule.MaxInstallments)
		if err != nil {
			return err
		}

		for _, ins := range installments {
			fmt.Printf("#%d  %s  %s\n", ins.Index+1, ins.DueDate.Format("2006-01-02"), ins.Amount.StringFixed(2))
		}
		sum := decimal.Zero
		for _, ins := range installments {
			sum = sum.Add(ins.Amount)
		}
		fmt.Printf("total %s\n", sum.StringFixed(2))
		return nil
	},
}

func init() {
	schedulePreviewCmd.Flags().StringVar(&previewTotal, "total", "", "plan total, e.g. 1234.56")
	schedulePreviewCmd.Flags().IntVar(&previewCount, "count", 3, "number of installments")
	schedulePreviewCmd.Flags().StringVar(&previewFrequency, "frequency", "monthly", "weekly, biweekly or monthly")
	schedulePreviewCmd.Flags().StringVar(&previewStart, "start", time.Now().Format("2006-01-02"), "first due date (YYYY-MM-DD)")
	_ = schedulePreviewCmd.MarkFlagRequired("total")

	scheduleCmd.AddCommand(schedulePreviewCmd)
	rootCmd.AddCommand(scheduleCmd)
}
