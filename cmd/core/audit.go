package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// runAudit 對每位小孩重播交易紀錄，有不一致時以錯誤結束
func runAudit(cmd *cobra.Command, _ []string) error {
	children, err := cmd.Flags().GetStringSlice("child")
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	// 只讀取，不需要 fallback 到空的記憶體帳本
	cfg.Store.FallbackToMemory = false

	a, err := newApp(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer a.close()

	out := cmd.OutOrStdout()
	inconsistent := 0
	for _, childID := range children {
		report, err := a.core.Audit(cmd.Context(), childID)
		if err != nil {
			return fmt.Errorf("audit %s: %w", childID, err)
		}
		state := "ok"
		if !report.Consistent() {
			state = "MISMATCH"
			inconsistent++
		}
		fmt.Fprintf(out, "%-24s %-8s total=%d/%d lifetime=%d/%d transactions=%d\n",
			childID, state,
			report.Stored.TotalStars, report.Replayed.TotalStars,
			report.Stored.LifetimeStars, report.Replayed.LifetimeStars,
			report.Transactions)
	}
	if inconsistent > 0 {
		return fmt.Errorf("%d of %d children failed the audit", inconsistent, len(children))
	}
	return nil
}
