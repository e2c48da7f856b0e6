package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	model "reel/internal/model/generation"
	"reel/internal/service/pipeline"
)

var (
	draftsStatus string
	draftsLimit  int
)

var draftsCmd = &cobra.Command{
	Use:   "drafts",
	Short: "List drafts with their status, step and spend",
	RunE:  runDrafts,
}

func init() {
	rootCmd.AddCommand(draftsCmd)

	draftsCmd.Flags().StringVarP(&draftsStatus, "status", "s", "", "comma separated statuses, e.g. filming,ready")
	draftsCmd.Flags().IntVarP(&draftsLimit, "limit", "n", model.DefaultListLimit, "maximum number of drafts")
}

func runDrafts(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	filter, err := parseFilter(draftsStatus, draftsLimit)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close(context.Background())
	defer a.svc.Shutdown(context.Background())

	drafts, err := a.svc.List(ctx, filter)
	if err != nil {
		return fmt.Errorf("list drafts: %w", err)
	}
	if len(drafts) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No drafts")
		return nil
	}

	renderTable(cmd.OutOrStdout(),
		[]string{"ID", "Title", "Status", "Step", "Cost (USD)", "Updated"},
		draftRows(drafts), 5)
	return nil
}

func parseFilter(statuses string, limit int) (*model.ListFilter, error) {
	filter := &model.ListFilter{Limit: limit}
	for _, s := range strings.Split(statuses, ",") {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		status := model.Status(s)
		if !status.IsValid() {
			return nil, fmt.Errorf("invalid status %q", s)
		}
		filter.Statuses = append(filter.Statuses, status)
	}
	return filter, nil
}

func draftRows(drafts []pipeline.Draft) [][]string {
	rows := make([][]string, 0, len(drafts))
	for _, d := range drafts {
		step := d.StepLabel
		if step == "" {
			step = "-"
		}
		rows = append(rows, []string{
			d.ID,
			d.Title,
			string(d.Status),
			step,
			fmt.Sprintf("%.4f", d.CostTotal),
			d.UpdatedAt.Local().Format(time.DateTime),
		})
	}
	return rows
}
