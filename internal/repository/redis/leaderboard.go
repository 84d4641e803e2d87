// Package redis caches the all-time leaderboard in a Redis sorted set.
//
// Layout:
//
//	ecocycle:leaderboard:alltime        ZSET  member=userID score=points
//	ecocycle:leaderboard:alltime:users  HASH  field=userID value={"name":..,"items":..}
//
// The sorted set gives O(log n) rank lookups. Ties in score are ordered by
// Redis lexicographically on member; callers that need the name tiebreak
// re-sort the slice they get back.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/sakif/ecocycle/internal/model"
	"github.com/sakif/ecocycle/internal/repository"
)

const (
	DefaultKey  = "ecocycle:leaderboard:alltime"
	usersSuffix = ":users"
)

var _ repository.LeaderboardCache = (*Leaderboard)(nil)

// member is the per-user payload kept beside the sorted set.
type member struct {
	Name  string `json:"name"`
	Items int    `json:"items"`
}

// Leaderboard implements repository.LeaderboardCache.
type Leaderboard struct {
	client goredis.UniversalClient
	key    string
}

// NewLeaderboard wraps an already-connected client. An empty key uses
// DefaultKey.
func NewLeaderboard(client goredis.UniversalClient, key string) *Leaderboard {
	if key == "" {
		key = DefaultKey
	}
	return &Leaderboard{client: client, key: key}
}

// Connect opens a client for addr and pings it.
func Connect(ctx context.Context, addr, password string, db int) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis: ping %s: %w", addr, err)
	}
	return client, nil
}

func (l *Leaderboard) usersKey() string { return l.key + usersSuffix }

// SetScore stores the entry's points and display data in one pipeline.
func (l *Leaderboard) SetScore(ctx context.Context, e model.LeaderboardEntry) error {
	data, err := json.Marshal(member{Name: e.UserName, Items: e.ItemsRecycled})
	if err != nil {
		return fmt.Errorf("redis: encoding member: %w", err)
	}

	_, err = l.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.ZAdd(ctx, l.key, goredis.Z{Score: float64(e.Points), Member: e.UserID})
		pipe.HSet(ctx, l.usersKey(), e.UserID, data)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis: setting score for %s: %w", e.UserID, err)
	}
	return nil
}

// Top returns the n highest-scoring entries with 1-based ranks.
func (l *Leaderboard) Top(ctx context.Context, n int) ([]model.LeaderboardEntry, error) {
	if n <= 0 {
		return []model.LeaderboardEntry{}, nil
	}

	zs, err := l.client.ZRevRangeWithScores(ctx, l.key, 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: reading top %d: %w", n, err)
	}
	if len(zs) == 0 {
		return []model.LeaderboardEntry{}, nil
	}

	ids := make([]string, len(zs))
	for i, z := range zs {
		ids[i] = z.Member.(string)
	}
	raw, err := l.client.HMGet(ctx, l.usersKey(), ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: reading members: %w", err)
	}

	entries := make([]model.LeaderboardEntry, len(zs))
	for i, z := range zs {
		entries[i] = model.LeaderboardEntry{
			UserID: ids[i],
			Points: int(z.Score),
			Rank:   i + 1,
		}
		if s, ok := raw[i].(string); ok {
			var m member
			if json.Unmarshal([]byte(s), &m) == nil {
				entries[i].UserName = m.Name
				entries[i].ItemsRecycled = m.Items
			}
		}
	}
	return entries, nil
}

// Entry returns one user's cached position, or nil if the user is not in
// the set.
func (l *Leaderboard) Entry(ctx context.Context, userID string) (*model.LeaderboardEntry, error) {
	rank, err := l.client.ZRevRank(ctx, l.key, userID).Result()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis: rank of %s: %w", userID, err)
	}

	score, err := l.client.ZScore(ctx, l.key, userID).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: score of %s: %w", userID, err)
	}

	e := &model.LeaderboardEntry{UserID: userID, Points: int(score), Rank: int(rank) + 1}

	s, err := l.client.HGet(ctx, l.usersKey(), userID).Result()
	switch {
	case errors.Is(err, goredis.Nil):
	case err != nil:
		return nil, fmt.Errorf("redis: member of %s: %w", userID, err)
	default:
		var m member
		if json.Unmarshal([]byte(s), &m) == nil {
			e.UserName = m.Name
			e.ItemsRecycled = m.Items
		}
	}
	return e, nil
}

// Reset drops the cached ranking. The next rebuild repopulates it.
func (l *Leaderboard) Reset(ctx context.Context) error {
	return l.client.Del(ctx, l.key, l.usersKey()).Err()
}
