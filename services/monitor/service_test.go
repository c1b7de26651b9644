package monitor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hungwahenry/instagram-auto-poster/lib/appconfig"
	"github.com/hungwahenry/instagram-auto-poster/lib/instagram"
	"github.com/hungwahenry/instagram-auto-poster/lib/testutil"
	"github.com/hungwahenry/instagram-auto-poster/services/keychain"
	keychaindb "github.com/hungwahenry/instagram-auto-poster/services/keychain/db"
	"github.com/hungwahenry/instagram-auto-poster/services/ledger"
	ledgerdb "github.com/hungwahenry/instagram-auto-poster/services/ledger/db"
	"github.com/hungwahenry/instagram-auto-poster/services/notifier"
)

type postedComment struct {
	MediaID string
	Text    string
}

// fakeClient implements Client without touching the network.
type fakeClient struct {
	username string

	loginErr    error
	validateErr error
	resolveErr  error
	fetchErr    error
	postErr     error

	loginCalls int
	imported   [][]byte
	exported   []byte
	resolved   map[string]string
	feed       []instagram.Media
	posted     []postedComment
}

func (c *fakeClient) Login(ctx context.Context) error {
	c.loginCalls++
	return c.loginErr
}

func (c *fakeClient) ValidateSession(ctx context.Context) error {
	return c.validateErr
}

func (c *fakeClient) ExportSession() ([]byte, error) {
	if c.exported == nil {
		return []byte("session:" + c.username), nil
	}
	return c.exported, nil
}

func (c *fakeClient) ImportSession(blob []byte) error {
	c.imported = append(c.imported, blob)
	return nil
}

func (c *fakeClient) ResolveUserID(ctx context.Context, username string) (string, error) {
	if c.resolveErr != nil {
		return "", c.resolveErr
	}
	id, ok := c.resolved[username]
	if !ok {
		return "", &instagram.ResolutionError{
			Username: username,
			Err:      errors.New("user not found"),
		}
	}
	return id, nil
}

func (c *fakeClient) FetchRecent(ctx context.Context, userID string, count int) ([]instagram.Media, error) {
	if c.fetchErr != nil {
		return nil, c.fetchErr
	}
	return c.feed, nil
}

func (c *fakeClient) PostComment(ctx context.Context, mediaID, text string) error {
	if c.postErr != nil {
		return c.postErr
	}
	c.posted = append(c.posted, postedComment{MediaID: mediaID, Text: text})
	return nil
}

type fixture struct {
	service    *Service
	config     *appconfig.Manager
	configPath string
	ledger     ledger.Service
	keychain   keychain.Service
	sleeps     []time.Duration
	clients    map[string]*fakeClient
}

// newFixture wires a Service against in-memory databases, a temp
// config file, a disabled notifier, fake platform clients, recorded
// sleeps and pinned randomness.
func newFixture(t *testing.T, name string, config appconfig.Config) *fixture {
	ledgerSetup, ledgerCleanup := testutil.SetupService(t, testutil.ServiceParams{
		Name:     fmt.Sprintf("services/monitor/%s/ledger", name),
		DbSchema: ledgerdb.Schema,
	})
	t.Cleanup(ledgerCleanup)
	keychainSetup, keychainCleanup := testutil.SetupService(t, testutil.ServiceParams{
		Name:     fmt.Sprintf("services/monitor/%s/keychain", name),
		DbSchema: keychaindb.Schema,
	})
	t.Cleanup(keychainCleanup)

	configPath := filepath.Join(t.TempDir(), "config.json5")
	manager := appconfig.NewManager(configPath)
	require.NoError(t, manager.Save(config))

	f := &fixture{
		config:     manager,
		configPath: configPath,
		ledger:     ledger.NewService(ledgerSetup.DB),
		keychain:   keychain.NewService(keychainSetup.DB),
		clients:    map[string]*fakeClient{},
	}
	f.service = NewService(Options{
		Config:   manager,
		Ledger:   f.ledger,
		Keychain: f.keychain,
		Notifier: notifier.NewService(notifier.Options{Enabled: false}),
		NewClient: func(ctx context.Context, options instagram.ClientOptions) (Client, error) {
			client, ok := f.clients[options.Username]
			if !ok {
				return nil, fmt.Errorf("no fake client for %q", options.Username)
			}
			return client, nil
		},
		Sleep: func(ctx context.Context, d time.Duration) {
			f.sleeps = append(f.sleeps, d)
		},
		RandInt: func(min, max int) int { return min },
	})
	return f
}

// attach registers an already authenticated fake sub account, skipping
// the login phase for tests that only exercise the cycle.
func (f *fixture) attach(username string, client *fakeClient) {
	client.username = username
	f.clients[username] = client
	f.service.clients[username] = client
	if f.service.monitorClient == nil {
		f.service.monitorClient = client
	}
}

func baseConfig() appconfig.Config {
	return appconfig.Config{
		MainAccounts:       []appconfig.MainAccount{{Username: "acme", UserID: "111", Enabled: true}},
		SubAccounts:        []appconfig.SubAccount{{Username: "sub1", Password: "pw", Enabled: true}},
		PredefinedComments: []string{"nice!", "love this"},
		CheckInterval:      300,
		CommentDelayRange:  [2]int{1, 1},
		MaxCommentsPerPost: 2,
	}
}

func TestAuthenticate(t *testing.T) {
	config := baseConfig()
	config.SubAccounts = []appconfig.SubAccount{
		{Username: "sub1", Password: "pw", Enabled: true},
		{Username: "sub2", Password: "pw", Enabled: true},
		{Username: "sub3", Password: "pw", Enabled: true},
		{Username: "sub4", Password: "pw", Enabled: false},
	}
	f := newFixture(t, "authenticate", config)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	// sub1 has a saved session that still validates
	require.NoError(t, f.keychain.SetSession(ctx, "sub1", []byte("saved-session")))
	sub1 := &fakeClient{username: "sub1"}
	sub2 := &fakeClient{username: "sub2"}
	sub3 := &fakeClient{username: "sub3", loginErr: &instagram.AuthError{
		Username: "sub3", Err: errors.New("bad credentials"),
	}}
	f.clients["sub1"] = sub1
	f.clients["sub2"] = sub2
	f.clients["sub3"] = sub3

	snapshot, err := f.config.Snapshot()
	require.NoError(t, err)
	f.service.authenticate(ctx, snapshot)

	// restored from keychain, never logged in fresh
	require.Equal(t, [][]byte{[]byte("saved-session")}, sub1.imported)
	require.Zero(t, sub1.loginCalls)

	// no saved session means a fresh login whose session gets saved
	require.Equal(t, 1, sub2.loginCalls)
	require.Equal(t, []byte("session:sub2"), f.keychain.GetSession(ctx, "sub2"))

	// the failed login is excluded, the disabled account never tried
	require.Len(t, f.service.clients, 2)
	require.Contains(t, f.service.clients, "sub1")
	require.Contains(t, f.service.clients, "sub2")
	require.NotContains(t, f.service.clients, "sub3")
	require.NotContains(t, f.service.clients, "sub4")

	// the first successful login does the monitoring
	require.Same(t, sub1, f.service.monitorClient.(*fakeClient))
}

func TestStaleSessionFallsBackToLogin(t *testing.T) {
	f := newFixture(t, "stale-session", baseConfig())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	require.NoError(t, f.keychain.SetSession(ctx, "sub1", []byte("stale")))
	sub1 := &fakeClient{
		username:    "sub1",
		validateErr: errors.New("401 unauthorized"),
	}
	f.clients["sub1"] = sub1

	snapshot, err := f.config.Snapshot()
	require.NoError(t, err)
	f.service.authenticate(ctx, snapshot)

	require.Equal(t, 1, sub1.loginCalls)
	// the stale blob was replaced with the fresh one
	require.Equal(t, []byte("session:sub1"), f.keychain.GetSession(ctx, "sub1"))
}

func TestRunCycle(t *testing.T) {
	f := newFixture(t, "cycle", baseConfig())
	sub1 := &fakeClient{
		feed: []instagram.Media{
			{ID: "3", Code: "P3", TakenAt: 3000, Type: instagram.MediaPhoto},
			{ID: "2", Code: "P2", TakenAt: 2000, Type: instagram.MediaPhoto},
		},
	}
	f.attach("sub1", sub1)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()
	snapshot, err := f.config.Snapshot()
	require.NoError(t, err)

	{
		// first cycle: cold start comments on the newest post only
		stats := f.service.runCycle(ctx, snapshot)
		require.Equal(t, CycleStats{
			AccountsChecked:    1,
			NewPostsFound:      1,
			SuccessfulComments: 1,
		}, stats)
		require.Equal(t, []postedComment{{MediaID: "3", Text: "nice!"}}, sub1.posted)

		record := f.ledger.Load(ctx, "acme")
		require.True(t, record.Seen("3"))
		require.Equal(t, int64(3000), record.LastCommentTimestamp)
	}
	{
		// same feed again: everything already handled
		stats := f.service.runCycle(ctx, snapshot)
		require.Equal(t, CycleStats{AccountsChecked: 1}, stats)
		require.Len(t, sub1.posted, 1)
	}
	{
		// a newer post shows up
		sub1.feed = append([]instagram.Media{
			{ID: "4", Code: "P4", TakenAt: 4000, Type: instagram.MediaPhoto},
		}, sub1.feed...)
		stats := f.service.runCycle(ctx, snapshot)
		require.Equal(t, CycleStats{
			AccountsChecked:    1,
			NewPostsFound:      1,
			SuccessfulComments: 1,
		}, stats)
		require.Equal(t, postedComment{MediaID: "4", Text: "nice!"}, sub1.posted[1])
	}
	{
		// a fetch failure reads as an empty feed, not a crash
		sub1.fetchErr = &instagram.FetchError{UserID: "111", Err: errors.New("500")}
		stats := f.service.runCycle(ctx, snapshot)
		require.Equal(t, CycleStats{AccountsChecked: 1}, stats)
		sub1.fetchErr = nil
	}
}

func TestResolvedUserIDWrittenBack(t *testing.T) {
	config := baseConfig()
	config.MainAccounts = []appconfig.MainAccount{{Username: "acme", Enabled: true}}
	f := newFixture(t, "resolve", config)
	sub1 := &fakeClient{
		resolved: map[string]string{"acme": "777"},
		feed:     []instagram.Media{{ID: "1", Code: "P1", TakenAt: 1000, Type: instagram.MediaPhoto}},
	}
	f.attach("sub1", sub1)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()
	snapshot, err := f.config.Snapshot()
	require.NoError(t, err)

	stats := f.service.runCycle(ctx, snapshot)
	require.Equal(t, 1, stats.SuccessfulComments)

	// the resolved id persists so later runs skip the lookup
	updated, err := f.config.Snapshot()
	require.NoError(t, err)
	require.Equal(t, "777", updated.MainAccounts[0].UserID)
}

func TestRunStopsOnCancel(t *testing.T) {
	f := newFixture(t, "run", baseConfig())
	sub1 := &fakeClient{
		feed: []instagram.Media{{ID: "1", Code: "P1", TakenAt: 1000, Type: instagram.MediaPhoto}},
	}
	sub1.username = "sub1"
	f.clients["sub1"] = sub1

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	// cancel during the first interval wait
	f.service.sleep = func(ctx context.Context, d time.Duration) {
		if d == 300*time.Second {
			cancel()
		}
	}

	require.NoError(t, f.service.Run(ctx))
	require.Equal(t, StateStopped, f.service.State())
	require.Len(t, sub1.posted, 1)

	status := f.service.Status()
	require.Equal(t, "stopped", status.State)
	require.Equal(t, 1, status.LastCycle.SuccessfulComments)
	require.False(t, status.LastCycleAt.IsZero())
}

func TestRunKeepsIntervalOnConfigError(t *testing.T) {
	f := newFixture(t, "config-error", baseConfig())
	sub1 := &fakeClient{
		feed: []instagram.Media{{ID: "1", Code: "P1", TakenAt: 1000, Type: instagram.MediaPhoto}},
	}
	sub1.username = "sub1"
	f.clients["sub1"] = sub1

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// record the interval waits, skipping login pacing and comment delays
	var intervals []time.Duration
	f.service.sleep = func(ctx context.Context, d time.Duration) {
		if d != 0 && d < 100*time.Second {
			return
		}
		intervals = append(intervals, d)
		switch len(intervals) {
		case 1:
			// break the config during the first wait
			require.NoError(t, os.WriteFile(f.configPath, []byte("{not json5"), 0o644))
		case 3:
			cancel()
		}
	}

	require.NoError(t, f.service.Run(ctx))

	// cycles against the broken file still wait out the last good interval
	require.Len(t, intervals, 3)
	for _, d := range intervals {
		require.Equal(t, 300*time.Second, d)
	}
}

func TestRunFailsWithoutLogins(t *testing.T) {
	f := newFixture(t, "no-logins", baseConfig())
	f.clients["sub1"] = &fakeClient{loginErr: &instagram.AuthError{
		Username: "sub1", Err: errors.New("checkpoint required"),
	}}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	require.Error(t, f.service.Run(ctx))
	require.Equal(t, StateFailed, f.service.State())
}
