package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/windsync/internal/formatter"
	"github.com/desertthunder/windsync/internal/repositories"
)

// HistoryList prints past sync runs, newest first.
func (r *Runner) HistoryList(ctx context.Context, cmd *cli.Command) error {
	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	criteria := map[string]any{
		"limit": int(cmd.Int("limit")),
	}
	if status := cmd.String("status"); status != "" {
		criteria["status"] = status
	}

	runs, err := repositories.NewSyncRunRepository(db).List(criteria)
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		return r.writePlain("No sync runs recorded yet.\n")
	}

	if cmd.Bool("csv") {
		data, err := formatter.HistoryToCSV(runs)
		if err != nil {
			return err
		}
		return r.writePlain("%s", data)
	}
	return r.writePlain("%s", formatter.HistoryToText(runs))
}
