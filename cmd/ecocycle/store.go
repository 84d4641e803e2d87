package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/sakif/ecocycle/internal/repository"
	redisrepo "github.com/sakif/ecocycle/internal/repository/redis"
	sqliterepo "github.com/sakif/ecocycle/internal/repository/sqlite"
	"github.com/sakif/ecocycle/internal/service"
)

// openStore opens (and migrates) the configured database.
func (a *app) openStore() (*sqliterepo.DB, error) {
	if a.cfg.DBPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(a.cfg.DBPath), 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}
	return sqliterepo.New(a.cfg.DBPath)
}

// leaderboard returns a leaderboard service backed by Redis when it is
// configured and reachable. The returned close function is never nil.
func (a *app) leaderboard(ctx context.Context, db *sqliterepo.DB) (*service.LeaderboardService, func()) {
	var cache repository.LeaderboardCache
	closeFn := func() {}
	if a.cfg.Redis.Addr != "" {
		client, err := redisrepo.Connect(ctx, a.cfg.Redis.Addr, a.cfg.Redis.Password, a.cfg.Redis.DB)
		if err != nil {
			a.logger.Warn("redis unavailable, leaderboard cache not updated",
				slog.String("error", err.Error()),
			)
		} else {
			cache = redisrepo.NewLeaderboard(client, a.cfg.Redis.Key)
			closeFn = func() { _ = client.Close() }
		}
	}
	return service.NewLeaderboardService(db, cache, a.logger), closeFn
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
