package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"reel/internal/service/pipeline"
)

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Reconcile films still marked as filming with the generation backend",
	Long: `Query the generation backend once for every draft that is still filming and
write the result back: completed films become ready, failed ones failed, and
jobs the backend no longer knows become interrupted. No polling is started.`,
	RunE: runResume,
}

func init() {
	rootCmd.AddCommand(resumeCmd)
}

func runResume(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	ctx := cmd.Context()
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close(context.Background())
	defer a.svc.Shutdown(context.Background())

	results, err := a.svc.ReconcileFilms(ctx)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No films in progress")
		return nil
	}

	renderTable(cmd.OutOrStdout(),
		[]string{"Generation", "Film", "Before", "After", "Error"},
		reconcileRows(results))
	return nil
}

func reconcileRows(results []pipeline.ReconcileResult) [][]string {
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		film := r.FilmID
		if film == "" {
			film = "-"
		}
		errMsg := ""
		if r.Err != nil {
			errMsg = r.Err.Error()
		}
		rows = append(rows, []string{r.GenerationID, film, string(r.Before), string(r.After), errMsg})
	}
	return rows
}
