package main

import (
	"context"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/windsync/internal/formatter"
	"github.com/desertthunder/windsync/internal/tasks"
)

// CacheRefresh rebuilds the filename cache from the Photos library.
func (r *Runner) CacheRefresh(ctx context.Context, cmd *cli.Command) error {
	tokens, err := r.authTokens()
	if err != nil {
		return err
	}

	dest := r.destFactory(tokens)()
	cache := tasks.NewNameCache(r.config.Cache.Path, dest.ListAllNames, r.logger)

	if err := cache.Rebuild(ctx); err != nil {
		return err
	}

	return r.writePlain("✓ Cache rebuilt: %d names\n", cache.Len())
}

// CacheShow prints cache status from the snapshot on disk.
func (r *Runner) CacheShow(ctx context.Context, cmd *cli.Command) error {
	// Reading the snapshot never hits the network. A missing snapshot
	// shows as an empty cache rather than triggering a rebuild.
	cache := tasks.NewNameCache(r.config.Cache.Path, nil, r.logger)
	if _, err := cache.LoadSnapshot(); err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(map[string]any{
			"path":       r.config.Cache.Path,
			"item_count": cache.Len(),
			"as_of":      formatCacheTime(cache.AsOf()),
			"filenames":  cache.Names(),
		}, true)
	}

	return r.writePlain("%s", formatter.CacheToText(cache.Names(), cache.AsOf(), cmd.Bool("names")))
}

func formatCacheTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}
