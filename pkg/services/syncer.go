package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/vpnda/cardless-sync/db"
	"github.com/vpnda/cardless-sync/pkg/clock"
	"github.com/vpnda/cardless-sync/pkg/http/gocardless"
	"github.com/vpnda/cardless-sync/pkg/http/lm"
	"github.com/vpnda/cardless-sync/pkg/models"
)

// DefaultLookbackDays is how far back each fetch reaches.
const DefaultLookbackDays = 14

// AccountResult is the outcome of one account in a pass.
type AccountResult struct {
	AccountId string
	AssetId   int64
	Status    models.SyncStatus
	Submitted int
	Err       error
}

// SyncReport summarises one sync pass.
type SyncReport struct {
	RunId    string
	Accounts []AccountResult
}

type SyncerOption func(*Syncer)

func WithClock(cl clock.Clock) SyncerOption {
	return func(s *Syncer) {
		s.clock = cl
	}
}

func WithLookbackDays(days int) SyncerOption {
	return func(s *Syncer) {
		if days > 0 {
			s.lookbackDays = days
		}
	}
}

func WithInterval(interval time.Duration) SyncerOption {
	return func(s *Syncer) {
		s.interval = interval
	}
}

// WithAccountSource enables provider account lookups, used for IBANs in
// LinkStatuses and by Banks.
func WithAccountSource(source gocardless.AccountSource) SyncerOption {
	return func(s *Syncer) {
		s.accounts = source
	}
}

// WithRegisterer registers the sync metrics with reg.
func WithRegisterer(reg prometheus.Registerer) SyncerOption {
	return func(s *Syncer) {
		s.registerer = reg
	}
}

// Syncer runs sync passes from the provider into the ledger. Only one pass
// runs at a time.
type Syncer struct {
	tokens    *TokenManager
	source    gocardless.TransactionSource
	ledger    lm.LunchMoneyClientInterface
	store     db.DBInterface
	accounts  gocardless.AccountSource
	banks     *BankDirectory
	status    *StatusTracker
	submitter *BatchSubmitter
	metrics   *syncMetrics

	clock        clock.Clock
	lookbackDays int
	interval     time.Duration
	registerer   prometheus.Registerer

	mu            sync.Mutex
	manualPending atomic.Int32
	triggers      sync.WaitGroup
}

func NewSyncer(tokens gocardless.TokenSource, source gocardless.TransactionSource,
	ledger lm.LunchMoneyClientInterface, store db.DBInterface, opts ...SyncerOption) *Syncer {
	s := &Syncer{
		source:       source,
		ledger:       ledger,
		store:        store,
		clock:        clock.New(),
		lookbackDays: DefaultLookbackDays,
		interval:     DefaultSyncInterval,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.tokens = NewTokenManager(tokens, s.clock)
	if s.accounts != nil {
		s.banks = NewBankDirectory(s.tokens, s.accounts)
	}
	s.status = NewStatusTracker(store, s.clock, s.interval)
	s.submitter = NewBatchSubmitter(ledger)
	s.metrics = initSyncMetrics(s.registerer)
	return s
}

// Synchronize runs a manual pass over one provider account, or every linked
// account when accountId is empty, waiting for any running pass to finish.
// Per-account failures only show in the report and the stored status; the
// returned error covers link loading and authentication.
func (s *Syncer) Synchronize(ctx context.Context, accountId string) (*SyncReport, error) {
	s.manualPending.Add(1)
	s.mu.Lock()
	s.manualPending.Add(-1)
	defer s.mu.Unlock()

	return s.run(ctx, accountId)
}

// SynchronizeScheduled runs a pass over every account unless a pass is
// running or a manual one is waiting, in which case it reports false.
func (s *Syncer) SynchronizeScheduled(ctx context.Context) (*SyncReport, bool, error) {
	if s.manualPending.Load() > 0 || !s.mu.TryLock() {
		s.metrics.passesSkipped.Inc()
		log.Info().Msg("skipping scheduled sync, another sync is running or pending")
		return nil, false, nil
	}
	defer s.mu.Unlock()

	report, err := s.run(ctx, "")
	return report, true, err
}

// Trigger starts a manual pass in the background and returns at once.
func (s *Syncer) Trigger(ctx context.Context, accountId string) {
	s.triggers.Add(1)
	go func() {
		defer s.triggers.Done()
		if _, err := s.Synchronize(ctx, accountId); err != nil {
			log.Error().Err(err).Str("account", accountId).Msg("triggered sync failed")
		}
	}()
}

// Wait blocks until every triggered pass returned.
func (s *Syncer) Wait() {
	s.triggers.Wait()
}

// GetStatus returns the status of a provider account. Stale statuses are
// reset first when no pass is running.
func (s *Syncer) GetStatus(accountId string) (*models.AccountStatus, error) {
	if s.mu.TryLock() {
		_, err := s.status.ResetStale()
		s.mu.Unlock()
		if err != nil {
			return nil, err
		}
	}
	return s.status.Get(accountId)
}

// ResetStaleStatuses fails every status left in progress by an interrupted pass.
func (s *Syncer) ResetStaleStatuses() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status.ResetStale()
}

// Banks browses provider banks and accounts with the syncer's token. It is
// nil without WithAccountSource.
func (s *Syncer) Banks() *BankDirectory {
	return s.banks
}

// LinkStatuses lists every link with its ledger account name, provider IBAN
// and status. Lookup failures fall back to UnknownAccountName.
func (s *Syncer) LinkStatuses(ctx context.Context) ([]LinkStatus, error) {
	if _, err := s.ResetStaleStatuses(); err != nil {
		return nil, err
	}

	links, err := s.store.LoadLinks("")
	if err != nil {
		return nil, err
	}
	if len(links) == 0 {
		return nil, nil
	}

	directory := NewAccountDirectory(s.ledger)
	if err := directory.Load(ctx); err != nil {
		log.Warn().Err(err).Msg("failed to load ledger accounts, names unavailable")
	}
	providerName := s.providerNames(ctx)

	statuses := make([]LinkStatus, 0, len(links))
	for _, link := range links {
		status, err := s.status.Get(link.GocardlessId)
		if err != nil {
			return nil, err
		}
		statuses = append(statuses, LinkStatus{
			Link:         link,
			AccountName:  directory.Name(link.LunchMoneyId),
			ProviderName: providerName(link.GocardlessId),
			Status:       status,
		})
	}
	return statuses, nil
}

// providerNames resolves provider account ids to IBANs with one token.
func (s *Syncer) providerNames(ctx context.Context) func(accountId string) string {
	unknown := func(string) string { return UnknownAccountName }
	if s.banks == nil {
		return unknown
	}
	token, err := s.tokens.GetToken(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("failed to obtain provider token, IBANs unavailable")
		return unknown
	}
	return func(accountId string) string {
		return s.banks.iban(ctx, token, accountId)
	}
}

func (s *Syncer) run(ctx context.Context, accountId string) (*SyncReport, error) {
	report := &SyncReport{RunId: uuid.NewString()}
	logger := log.With().Str("run_id", report.RunId).Logger()

	start := time.Now()
	defer func() {
		s.metrics.passDuration.Observe(time.Since(start).Seconds())
	}()

	links, err := s.store.LoadLinks(accountId)
	if err != nil {
		return report, fmt.Errorf("failed to load account links: %w", err)
	}
	if len(links) == 0 {
		logger.Warn().Str("account", accountId).Msg("no linked accounts to sync")
		return report, nil
	}
	logger.Info().Int("accounts", len(links)).Msg("starting sync")

	token, err := s.tokens.GetToken(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("failed to obtain provider token, aborting sync")
		for _, link := range links {
			report.Accounts = append(report.Accounts, s.fail(logger, link, err))
		}
		return report, err
	}

	for _, link := range links {
		report.Accounts = append(report.Accounts, s.syncAccount(ctx, logger, link, token))
	}
	logger.Info().Int("accounts", len(links)).Msg("finished sync")
	return report, nil
}

// fail records an error status for an account that never started.
func (s *Syncer) fail(logger zerolog.Logger, link models.AccountLink, cause error) AccountResult {
	if err := s.status.Complete(link.GocardlessId, SyncOutcome{Err: cause}); err != nil {
		logger.Error().Err(err).Str("account", link.GocardlessId).Msg("failed to record sync status")
	}
	s.metrics.accountSyncs.WithLabelValues(string(models.SyncStatusError)).Inc()
	return AccountResult{
		AccountId: link.GocardlessId,
		AssetId:   link.LunchMoneyId,
		Status:    models.SyncStatusError,
		Err:       cause,
	}
}

// syncAccount is the per-account error boundary: nothing that happens here,
// panics included, escapes to the other accounts of the pass.
func (s *Syncer) syncAccount(ctx context.Context, logger zerolog.Logger, link models.AccountLink, token string) (result AccountResult) {
	l := logger.With().Str("account", link.GocardlessId).Int64("asset_id", link.LunchMoneyId).Logger()
	result = AccountResult{AccountId: link.GocardlessId, AssetId: link.LunchMoneyId}

	if err := s.status.Begin(link.GocardlessId); err != nil {
		l.Error().Err(err).Msg("failed to start account sync")
		result.Status = models.SyncStatusError
		result.Err = err
		s.metrics.accountSyncs.WithLabelValues(string(result.Status)).Inc()
		return result
	}

	var rl *models.RateLimit
	defer func() {
		if r := recover(); r != nil {
			result.Err = fmt.Errorf("panic during account sync: %v", r)
		}

		result.Status = models.SyncStatusSuccess
		if result.Err != nil {
			result.Status = models.SyncStatusError
			l.Error().Err(result.Err).Int("submitted", result.Submitted).Msg("account sync failed")
		} else {
			l.Info().Int("submitted", result.Submitted).Msg("account synced")
		}

		err := s.status.Complete(link.GocardlessId, SyncOutcome{
			Err:          result.Err,
			Transactions: result.Submitted,
			RateLimit:    rl,
		})
		if err != nil {
			l.Error().Err(err).Msg("failed to record sync status")
		}
		s.metrics.observeRateLimit(link.GocardlessId, rl)
		s.metrics.accountSyncs.WithLabelValues(string(result.Status)).Inc()
		s.metrics.transactionsSubmitted.Add(float64(result.Submitted))
	}()

	result.Submitted, rl, result.Err = s.syncTransactions(ctx, l, link, token)
	return result
}

func (s *Syncer) syncTransactions(ctx context.Context, l zerolog.Logger, link models.AccountLink,
	token string) (int, *models.RateLimit, error) {
	now := s.clock.Now()
	from := now.AddDate(0, 0, -s.lookbackDays)

	fetched, rl, err := s.source.FetchTransactions(ctx, link.GocardlessId, token, from, &now)
	if errors.Is(err, ErrRateLimited) {
		l.Warn().Msg("provider rate limit reached, nothing fetched this round")
		return 0, rl, nil
	}
	if err != nil {
		return 0, rl, fmt.Errorf("%w: %w", ErrFetchFailure, err)
	}
	if fetched == nil {
		return 0, rl, nil
	}

	// Pending transactions change until they settle and are left out.
	transactions := make([]models.Transaction, 0, len(fetched.Booked))
	for _, tx := range fetched.Booked {
		t, err := TransformTransaction(tx, link.LunchMoneyId)
		if err != nil {
			l.Warn().Err(err).Str("transaction", tx.InternalTransactionId).Msg("skipping transaction")
			continue
		}
		transactions = append(transactions, t)
	}
	l.Debug().Int("booked", len(fetched.Booked)).Int("pending", len(fetched.Pending)).
		Int("transformed", len(transactions)).Msg("fetched transactions")

	fresh, err := FilterNew(ctx, transactions, s.ledger.ListTransactions)
	if err != nil {
		return 0, rl, err
	}
	if skipped := len(transactions) - len(fresh); skipped > 0 {
		l.Info().Int("duplicates", skipped).Msg("skipping transactions already in the ledger")
	}

	results, err := s.submitter.Submit(ctx, fresh)
	return SubmittedCount(results), rl, err
}
