package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/sakif/ecocycle/internal/apperror"
	"github.com/sakif/ecocycle/internal/model"
	"github.com/sakif/ecocycle/internal/repository"
)

// =========================================================================
// FAKE STORE
// =========================================================================

// fakeStore is an in-memory repository.Store. It mirrors the SQLite
// semantics the services rely on (not-found and conflict errors, badge
// de-duplication, newest-first ordering) without any SQL.
type fakeStore struct {
	mu          sync.Mutex
	nextID      int
	users       map[string]*model.User
	creds       map[string]*model.Credential
	records     map[string][]model.RecycleRecord
	badges      map[string][]model.Badge
	challenges  map[string][]model.Challenge
	redemptions map[string][]model.Redemption
	settings    map[string]model.Settings

	// set to simulate database failures
	applyErr  error
	createErr error
	upsertErr error
}

var _ repository.Store = (*fakeStore)(nil)

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:       make(map[string]*model.User),
		creds:       make(map[string]*model.Credential),
		records:     make(map[string][]model.RecycleRecord),
		badges:      make(map[string][]model.Badge),
		challenges:  make(map[string][]model.Challenge),
		redemptions: make(map[string][]model.Redemption),
		settings:    make(map[string]model.Settings),
	}
}

func (f *fakeStore) id(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s-%d", prefix, f.nextID)
}

// addUser is a test helper that inserts a user directly.
func (f *fakeStore) addUser(name string, points int) *model.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := &model.User{ID: f.id("user"), Name: name, Email: name + "@example.com", Points: points}
	f.users[u.ID] = u
	return u
}

func (f *fakeStore) CreateUser(_ context.Context, user *model.User, cred *model.Credential) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	for _, u := range f.users {
		if u.Email == user.Email {
			return apperror.Conflict("Email already registered")
		}
	}
	user.ID = f.id("user")
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	copied := *user
	f.users[user.ID] = &copied
	if cred != nil {
		cred.UserID = user.ID
		c := *cred
		f.creds[cred.Email] = &c
	}
	return nil
}

func (f *fakeStore) GetUser(_ context.Context, id string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	copied := *u
	return &copied, nil
}

func (f *fakeStore) GetCredential(_ context.Context, email string) (*model.Credential, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.creds[email]
	if !ok {
		return nil, apperror.NotFound("credential", email)
	}
	copied := *c
	return &copied, nil
}

func (f *fakeStore) UpsertGitHubUser(_ context.Context, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil {
		return f.upsertErr
	}
	for _, u := range f.users {
		if u.GitHubID != nil && *u.GitHubID == *user.GitHubID {
			u.Name = user.Name
			*user = *u
			return nil
		}
	}
	for _, u := range f.users {
		if u.Email == user.Email {
			u.GitHubID = user.GitHubID
			*user = *u
			return nil
		}
	}
	user.ID = f.id("user")
	copied := *user
	f.users[user.ID] = &copied
	return nil
}

func (f *fakeStore) ListUserIDs(_ context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]string, 0, len(f.users))
	for id := range f.users {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (f *fakeStore) ListRecords(_ context.Context, userID string, opts repository.ListOptions) ([]model.RecycleRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	all := append([]model.RecycleRecord(nil), f.records[userID]...)
	sort.SliceStable(all, func(i, j int) bool { return all[i].DepositedAt.After(all[j].DepositedAt) })

	out := []model.RecycleRecord{}
	for _, r := range all {
		if !opts.Since.IsZero() && r.DepositedAt.Before(opts.Since) {
			continue
		}
		out = append(out, r)
	}
	if opts.Offset > 0 {
		if opts.Offset >= len(out) {
			return []model.RecycleRecord{}, nil
		}
		out = out[opts.Offset:]
	}
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (f *fakeStore) ListBadges(_ context.Context, userID string) ([]model.Badge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Badge{}, f.badges[userID]...), nil
}

func (f *fakeStore) ApplyCredit(_ context.Context, c repository.Credit) ([]model.Badge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.applyErr != nil {
		return nil, f.applyErr
	}
	u, ok := f.users[c.UserID]
	if !ok {
		return nil, apperror.NotFound("user", c.UserID)
	}
	u.Points += c.Points
	u.CO2Saved += c.CO2
	for i := range c.Records {
		if c.Records[i].ID == "" {
			c.Records[i].ID = f.id("rec")
		}
		c.Records[i].UserID = c.UserID
		f.records[c.UserID] = append(f.records[c.UserID], c.Records[i])
	}
	stored := make([]model.Badge, 0, len(c.Badges))
next:
	for _, b := range c.Badges {
		for _, held := range f.badges[c.UserID] {
			if held.Name == b.Name {
				continue next
			}
		}
		if b.ID == "" {
			b.ID = f.id("badge")
		}
		f.badges[c.UserID] = append(f.badges[c.UserID], b)
		stored = append(stored, b)
	}
	return stored, nil
}

func (f *fakeStore) ListChallenges(_ context.Context, userID string) ([]model.Challenge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Challenge{}, f.challenges[userID]...), nil
}

func (f *fakeStore) ReplaceChallenges(_ context.Context, userID string, cs []model.Challenge) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.challenges[userID] = append([]model.Challenge(nil), cs...)
	return nil
}

func (f *fakeStore) UpdateChallenge(_ context.Context, userID string, c *model.Challenge) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.challenges[userID] {
		if f.challenges[userID][i].ID == c.ID {
			f.challenges[userID][i].Progress = c.Progress
			f.challenges[userID][i].Completed = c.Completed
			return nil
		}
	}
	return apperror.NotFound("challenge", c.ID)
}

func (f *fakeStore) ClaimChallenge(_ context.Context, userID, challengeID string, reward int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.challenges[userID] {
		c := &f.challenges[userID][i]
		if c.ID != challengeID {
			continue
		}
		if !c.Completed {
			return apperror.ValidationFailed("challengeId", "Challenge is not completed yet")
		}
		if c.Claimed {
			return apperror.Conflict("Reward already claimed")
		}
		c.Claimed = true
		f.users[userID].Points += reward
		return nil
	}
	return apperror.NotFound("challenge", challengeID)
}

func (f *fakeStore) Spend(_ context.Context, r *model.Redemption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[r.UserID]
	if !ok {
		return apperror.NotFound("user", r.UserID)
	}
	if u.Balance() < r.Points {
		return apperror.ValidationFailed("points", "Insufficient points")
	}
	u.SpentPoints += r.Points
	r.ID = f.id("red")
	r.CreatedAt = time.Now()
	f.redemptions[r.UserID] = append([]model.Redemption{*r}, f.redemptions[r.UserID]...)
	return nil
}

func (f *fakeStore) ListRedemptions(_ context.Context, userID string) ([]model.Redemption, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Redemption{}, f.redemptions[userID]...), nil
}

func (f *fakeStore) GetSettings(_ context.Context, userID string) (model.Settings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.settings[userID], nil
}

func (f *fakeStore) SaveSettings(_ context.Context, userID string, s model.Settings) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.settings[userID] = s
	return nil
}

func (f *fakeStore) LeaderboardRows(_ context.Context, since time.Time) ([]model.LeaderboardEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.LeaderboardEntry
	for id, u := range f.users {
		if since.IsZero() {
			out = append(out, model.LeaderboardEntry{
				UserID: id, UserName: u.Name, Points: u.Points, ItemsRecycled: len(f.records[id]),
			})
			continue
		}
		e := model.LeaderboardEntry{UserID: id, UserName: u.Name}
		for _, r := range f.records[id] {
			if !r.DepositedAt.Before(since) {
				e.Points += r.PointsEarned
				e.ItemsRecycled++
			}
		}
		if e.ItemsRecycled > 0 {
			out = append(out, e)
		}
	}
	return out, nil
}

// =========================================================================
// OTHER FAKES
// =========================================================================

// recordingProgress captures challenge progress events.
type recordingProgress struct {
	mu     sync.Mutex
	events map[string]int
	err    error
}

func newRecordingProgress() *recordingProgress {
	return &recordingProgress{events: make(map[string]int)}
}

func (r *recordingProgress) UpdateProgress(_ context.Context, _, challengeID string, inc int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.events[challengeID] += inc
	return nil
}

// fakeCache is an in-memory repository.LeaderboardCache.
type fakeCache struct {
	mu      sync.Mutex
	entries map[string]model.LeaderboardEntry
	err     error
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]model.LeaderboardEntry)}
}

func (c *fakeCache) SetScore(_ context.Context, e model.LeaderboardEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.entries[e.UserID] = e
	return nil
}

func (c *fakeCache) sorted() []model.LeaderboardEntry {
	out := make([]model.LeaderboardEntry, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, e)
	}
	Rank(out)
	return out
}

func (c *fakeCache) Top(_ context.Context, n int) ([]model.LeaderboardEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	out := c.sorted()
	if len(out) > n {
		out = out[:n]
	}
	return out, nil
}

func (c *fakeCache) Entry(_ context.Context, userID string) (*model.LeaderboardEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	for _, e := range c.sorted() {
		if e.UserID == userID {
			return &e, nil
		}
	}
	return nil, nil
}

var errBoom = errors.New("database is on fire")

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
