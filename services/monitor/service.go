package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/mazen160/go-random"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/hungwahenry/instagram-auto-poster/lib/appconfig"
	"github.com/hungwahenry/instagram-auto-poster/lib/instagram"
	"github.com/hungwahenry/instagram-auto-poster/services/keychain"
	"github.com/hungwahenry/instagram-auto-poster/services/ledger"
	"github.com/hungwahenry/instagram-auto-poster/services/notifier"
)

var tracer = otel.Tracer("services/monitor")

// Client is the slice of the platform client the monitor uses. The
// concrete implementation is *instagram.Client.
type Client interface {
	Login(ctx context.Context) error
	ValidateSession(ctx context.Context) error
	ExportSession() ([]byte, error)
	ImportSession(blob []byte) error
	ResolveUserID(ctx context.Context, username string) (string, error)
	FetchRecent(ctx context.Context, userID string, count int) ([]instagram.Media, error)
	PostComment(ctx context.Context, mediaID, text string) error
}

// Options configures a monitor Service. NewClient, Sleep and RandInt
// exist so tests can swap the platform, skip real delays and pin
// randomness; leaving them nil gets the production behavior.
type Options struct {
	Config   *appconfig.Manager
	Ledger   ledger.Service
	Keychain keychain.Service
	Notifier notifier.Service

	NewClient func(ctx context.Context, options instagram.ClientOptions) (Client, error)
	Sleep     func(ctx context.Context, d time.Duration)
	RandInt   func(min, max int) int
}

// Service drives the poll-and-comment loop: authenticate the sub
// accounts once, then on every cycle fetch recent posts for each
// monitored account, pick the new ones and dispatch comments.
type Service struct {
	config   *appconfig.Manager
	ledger   ledger.Service
	keychain keychain.Service
	notifier notifier.Service

	newClient func(ctx context.Context, options instagram.ClientOptions) (Client, error)
	sleep     func(ctx context.Context, d time.Duration)
	randInt   func(min, max int) int

	// sub account username -> authenticated client
	clients map[string]Client
	// the client recent posts are fetched through
	monitorClient Client
	// username -> resolved numeric id, for monitored accounts whose
	// id could not be written back to config
	resolvedIDs *expirable.LRU[string, string]

	mu          sync.Mutex
	state       State
	lastStats   CycleStats
	lastCycleAt time.Time
}

func NewService(options Options) *Service {
	s := &Service{
		config:      options.Config,
		ledger:      options.Ledger,
		keychain:    options.Keychain,
		notifier:    options.Notifier,
		newClient:   options.NewClient,
		sleep:       options.Sleep,
		randInt:     options.RandInt,
		clients:     map[string]Client{},
		resolvedIDs: expirable.NewLRU[string, string](256, nil, 24*time.Hour),
		state:       StateIdle,
	}
	if s.newClient == nil {
		s.newClient = func(ctx context.Context, options instagram.ClientOptions) (Client, error) {
			return instagram.NewClient(ctx, options)
		}
	}
	if s.sleep == nil {
		s.sleep = sleepContext
	}
	if s.randInt == nil {
		s.randInt = randIntInclusive
	}
	return s
}

func sleepContext(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func randIntInclusive(min, max int) int {
	if max <= min {
		return min
	}
	n, err := random.IntRange(min, max+1)
	if err != nil {
		return min
	}
	return n
}

func (s *Service) setState(state State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == state {
		return
	}
	slog.Info("monitor state changed", "from", s.state.String(), "to", state.String())
	s.state = state
}

func (s *Service) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// StatusReport is what the status endpoint serves.
type StatusReport struct {
	State       string     `json:"state"`
	LastCycle   CycleStats `json:"last_cycle"`
	LastCycleAt time.Time  `json:"last_cycle_at"`
}

func (s *Service) Status() StatusReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return StatusReport{
		State:       s.state.String(),
		LastCycle:   s.lastStats,
		LastCycleAt: s.lastCycleAt,
	}
}

func (s *Service) recordCycle(stats CycleStats) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastStats = stats
	s.lastCycleAt = time.Now()
}

// Run authenticates the sub accounts and then loops until ctx is
// cancelled. A panic escaping the loop is reported as a critical error
// and returned, so the process can exit non-zero.
func (s *Service) Run(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("monitor crashed: %v", r)
			s.setState(StateFailed)
			s.notifier.SendError(ctx, "Critical Error", fmt.Sprint(r), "main monitoring loop")
			s.notifier.SendShutdown(ctx, "critical error")
		}
	}()

	s.setState(StateAuthenticating)

	config, err := s.config.Snapshot()
	if err != nil {
		s.setState(StateFailed)
		return fmt.Errorf("reading config: %w", err)
	}

	s.authenticate(ctx, config)
	if len(s.clients) == 0 {
		s.setState(StateFailed)
		s.notifier.SendError(ctx, "Startup Failed",
			"no sub accounts could be logged in", "authentication")
		return errors.New("no sub accounts could be logged in")
	}

	s.notifier.SendStartup(ctx, len(s.clients), countEnabledMains(config))
	s.setState(StateMonitoring)

	for {
		// Keep the last good snapshot when a read fails so the loop
		// still waits out the configured interval instead of spinning.
		if snapshot, err := s.config.Snapshot(); err != nil {
			slog.Error("failed to read config, skipping cycle", "error", err)
		} else {
			config = snapshot
			stats := s.runCycle(ctx, config)
			s.recordCycle(stats)
			s.notifier.SendCycleSummary(ctx,
				stats.AccountsChecked, stats.NewPostsFound,
				stats.SuccessfulComments, stats.FailedComments)
			slog.Info("cycle complete",
				"accounts_checked", stats.AccountsChecked,
				"new_posts", stats.NewPostsFound,
				"successes", stats.SuccessfulComments,
				"failures", stats.FailedComments,
				"next_check_seconds", config.CheckInterval)
		}

		s.sleep(ctx, time.Duration(config.CheckInterval)*time.Second)
		if ctx.Err() != nil {
			s.setState(StateStopped)
			s.notifier.SendShutdown(ctx, "stop signal received")
			return nil
		}
	}
}

func countEnabledMains(config appconfig.Config) int {
	count := 0
	for _, account := range config.MainAccounts {
		if account.Enabled {
			count++
		}
	}
	return count
}

// authenticate logs in every enabled sub account, restoring a saved
// session where one exists and still validates. Accounts that fail are
// reported and skipped; the rest of the run continues without them.
func (s *Service) authenticate(ctx context.Context, config appconfig.Config) {
	ctx, span := tracer.Start(ctx, "authenticate")
	defer span.End()

	var failed []string
	for _, account := range config.SubAccounts {
		if !account.Enabled {
			continue
		}

		client, err := s.login(ctx, account)
		if err != nil {
			span.RecordError(err)
			slog.Error("failed to log in sub account",
				"username", account.Username, "error", err)
			failed = append(failed, account.Username)
			continue
		}

		s.clients[account.Username] = client
		if s.monitorClient == nil {
			s.monitorClient = client
			slog.Info("using sub account for monitoring", "username", account.Username)
		}

		// pace the logins a little so a restart does not hammer the
		// login endpoint with back to back attempts
		s.sleep(ctx, time.Duration(s.randInt(3, 8))*time.Second)
	}

	span.SetAttributes(attribute.Int("logged_in", len(s.clients)))
	s.notifier.SendLoginIssues(ctx, failed)
}

func (s *Service) login(ctx context.Context, account appconfig.SubAccount) (Client, error) {
	ctx, span := tracer.Start(ctx, "login")
	defer span.End()
	span.SetAttributes(attribute.String("username", account.Username))

	client, err := s.newClient(ctx, instagram.ClientOptions{
		Username: account.Username,
		Password: account.Password,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to construct client")
		return nil, err
	}

	if blob := s.keychain.GetSession(ctx, account.Username); blob != nil {
		err := client.ImportSession(blob)
		if err == nil {
			err = client.ValidateSession(ctx)
		}
		if err == nil {
			slog.Info("restored saved session", "username", account.Username)
			return client, nil
		}
		slog.Info("saved session is stale, logging in fresh",
			"username", account.Username, "error", err)
		if err := s.keychain.DeleteSession(ctx, account.Username); err != nil {
			slog.Warn("failed to delete stale session",
				"username", account.Username, "error", err)
		}
	}

	if err := client.Login(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "login failed")
		return nil, err
	}
	s.persistSession(ctx, account.Username, client)
	return client, nil
}

func (s *Service) persistSession(ctx context.Context, username string, client Client) {
	blob, err := client.ExportSession()
	if err != nil {
		slog.Warn("failed to export session", "username", username, "error", err)
		return
	}
	if err := s.keychain.SetSession(ctx, username, blob); err != nil {
		slog.Warn("failed to save session", "username", username, "error", err)
	}
}

// runCycle does one pass over the enabled monitored accounts. A
// failure on one account never stops the others.
func (s *Service) runCycle(ctx context.Context, config appconfig.Config) CycleStats {
	ctx, span := tracer.Start(ctx, "runCycle")
	defer span.End()

	var stats CycleStats
	allowed := AllowedTypes(config.AllowedMediaTypes)

	for _, account := range config.MainAccounts {
		if !account.Enabled {
			continue
		}
		stats.AccountsChecked++
		s.checkAccount(ctx, config, account, allowed, &stats)
	}

	span.SetAttributes(
		attribute.Int("accounts_checked", stats.AccountsChecked),
		attribute.Int("new_posts", stats.NewPostsFound),
	)
	return stats
}

func (s *Service) checkAccount(
	ctx context.Context,
	config appconfig.Config,
	account appconfig.MainAccount,
	allowed map[instagram.MediaType]bool,
	stats *CycleStats,
) {
	ctx, span := tracer.Start(ctx, "checkAccount")
	defer span.End()
	span.SetAttributes(attribute.String("username", account.Username))

	defer func() {
		if r := recover(); r != nil {
			span.SetStatus(codes.Error, "panic while checking account")
			slog.Error("panic while checking account",
				"username", account.Username, "panic", r)
			s.notifier.SendError(ctx, "Account Check Failed",
				fmt.Sprint(r), fmt.Sprintf("checking @%s", account.Username))
		}
	}()

	userID, err := s.userID(ctx, account)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to resolve user id")
		slog.Error("failed to resolve user id",
			"username", account.Username, "error", err)
		s.notifier.SendError(ctx, "Resolution Failed", err.Error(),
			fmt.Sprintf("resolving @%s", account.Username))
		return
	}

	posts, err := s.monitorClient.FetchRecent(ctx, userID, config.FetchCount)
	if err != nil {
		// transient fetch failures are treated as an empty feed and
		// retried next cycle
		span.RecordError(err)
		slog.Error("failed to fetch recent posts",
			"username", account.Username, "error", err)
		return
	}

	record := s.ledger.Load(ctx, account.Username)
	selected := SelectNewPosts(record, posts, allowed)
	stats.NewPostsFound += len(selected)
	if len(selected) == 0 {
		return
	}
	slog.Info("found new posts", "username", account.Username, "count", len(selected))

	for _, post := range selected {
		if record.Seen(post.ID) {
			continue
		}
		result := s.dispatchComments(ctx, config, account.Username, post, record)
		stats.SuccessfulComments += result.Successes
		stats.FailedComments += result.Failures
		if result.Marked {
			record = result.Record
		}
	}
}

// userID returns the numeric id for a monitored account, resolving it
// through the platform on first sight and writing it back to config so
// later runs skip the lookup. The LRU covers the case where the config
// write fails.
func (s *Service) userID(ctx context.Context, account appconfig.MainAccount) (string, error) {
	if account.UserID != "" {
		return account.UserID, nil
	}
	if id, ok := s.resolvedIDs.Get(account.Username); ok {
		return id, nil
	}

	id, err := s.monitorClient.ResolveUserID(ctx, account.Username)
	if err != nil {
		return "", err
	}
	s.resolvedIDs.Add(account.Username, id)

	err = s.config.Update(func(config *appconfig.Config) error {
		for i := range config.MainAccounts {
			if config.MainAccounts[i].Username == account.Username {
				config.MainAccounts[i].UserID = id
			}
		}
		return nil
	})
	if err != nil {
		slog.Warn("failed to write resolved user id back to config",
			"username", account.Username, "error", err)
	}
	return id, nil
}
