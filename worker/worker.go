package worker

import (
	"context"
	"math/big"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/rcrowley/go-metrics"
	log "github.com/sirupsen/logrus"

	"guess-bet-worker/config"
	"guess-bet-worker/worker/store"
)

// WorkerService runs betting campaigns: one approval, then strictly
// sequential bet / wait / resolve / report / cooldown rounds.
type WorkerService struct {
	conf      *config.GuessWorkerConfig
	gw        Gateway
	id        *SigningIdentity
	contract  common.Address
	token     common.Address
	allowance *AllowanceManager
	submitter *BetSubmitter
	resolver  *Resolver
	reporter  Reporter
	journal   store.Store
	confirm   Waiter
	cooldown  Waiter
	registry  metrics.Registry
	metrics   *campaignMetrics
	decimals  int32
	state     CampaignState
	logger    *log.Entry
}

type Option func(*WorkerService)

func WithReporter(r Reporter) Option {
	return func(s *WorkerService) {
		s.reporter = r
	}
}

// WithStore journals every bet to st. Without it bets are not journaled.
func WithStore(st store.Store) Option {
	return func(s *WorkerService) {
		s.journal = st
	}
}

func WithRegistry(r metrics.Registry) Option {
	return func(s *WorkerService) {
		s.registry = r
	}
}

// WithConfirmWaiter replaces the wait between a mined bet and its resolution.
func WithConfirmWaiter(w Waiter) Option {
	return func(s *WorkerService) {
		s.confirm = w
	}
}

// WithCooldownWaiter replaces the pause between rounds.
func WithCooldownWaiter(w Waiter) Option {
	return func(s *WorkerService) {
		s.cooldown = w
	}
}

func NewWorkerService(conf *config.GuessWorkerConfig, gw Gateway, id *SigningIdentity, opts ...Option) *WorkerService {
	s := &WorkerService{
		conf:     conf,
		id:       id,
		contract: common.HexToAddress(conf.ContractAddr),
		token:    common.HexToAddress(conf.TokenAddr),
		decimals: conf.TokenDecimals,
		logger:   log.WithField("module", "worker"),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.registry == nil {
		s.registry = metrics.NewRegistry()
	}
	if s.reporter == nil {
		s.reporter = NewLogReporter(os.Stdout)
	}

	s.gw = withCallInterceptor(gw, conf.CallTimeout, s.registry)
	s.metrics = newCampaignMetrics(s.registry)

	if s.confirm == nil {
		if conf.ConfirmBlocks > 0 {
			s.confirm = BlockWaiter{Gateway: s.gw, Blocks: conf.ConfirmBlocks, PollEvery: conf.ReceiptPoll}
		} else {
			s.confirm = DelayWaiter{Delay: conf.ConfirmDelay}
		}
	}
	if s.cooldown == nil {
		s.cooldown = DelayWaiter{Delay: conf.Cooldown}
	}

	tx := newTransactor(s.gw, id, conf.ReceiptTimeout, conf.Simulate)
	s.allowance = NewAllowanceManager(tx, s.token, conf.ApproveGasLimit)
	s.submitter = NewBetSubmitter(tx, s.contract, conf.BetGasLimit)
	s.resolver = NewResolver(tx, s.gw, s.contract, conf.ResolveGasLimit)

	return s
}

// TokenDecimals returns the configured decimals, or asks the token once
// when none were configured.
func (s *WorkerService) TokenDecimals(ctx context.Context) int32 {
	if s.decimals == 0 {
		s.decimals = s.allowance.Decimals(ctx)
	}
	return s.decimals
}

// State returns a copy of the current campaign state.
func (s *WorkerService) State() CampaignState {
	st := s.state
	if st.Wager != nil {
		st.Wager = new(big.Int).Set(st.Wager)
	}
	return st
}

func (s *WorkerService) setPhase(p Phase) {
	s.state.Phase = p
	s.logger.WithFields(log.Fields{"phase": p, "round": s.state.Round}).Debug("phase")
}

func validateParams(p CampaignParams) error {
	if _, err := ParseGuess(p.Guess); err != nil {
		return err
	}
	if p.Wager == nil || p.Wager.Sign() <= 0 {
		return ErrInvalidWager
	}
	if p.Rounds <= 0 {
		return ErrInvalidRounds
	}
	return nil
}

// Run executes one campaign. Round failures are logged and counted; only an
// approval failure or a cancelled ctx ends the campaign early. The summary
// is always reported once parameters are valid.
func (s *WorkerService) Run(ctx context.Context, params CampaignParams) (summary Summary, err error) {
	if err := validateParams(params); err != nil {
		return Summary{}, err
	}
	guess, _ := ParseGuess(params.Guess)
	decimals := s.TokenDecimals(ctx)

	s.state = CampaignState{
		Guess:       guess,
		Wager:       new(big.Int).Set(params.Wager),
		TotalRounds: params.Rounds,
		Phase:       PhaseInit,
	}
	summary = Summary{Guess: guess, Total: params.Rounds}

	defer func() {
		summary.Attempted = s.state.CompletedRounds
		summary.Succeeded = s.state.SuccessCount
		summary.Failed = summary.Attempted - summary.Succeeded
		s.setPhase(PhaseDone)
		s.logger.WithField("total", summary.Total).Infof("done: %d/%d attempted rounds succeeded", summary.Succeeded, summary.Attempted)
		s.reporter.ReportSummary(summary)
		s.metrics.logSnapshot()
	}()

	s.logger.WithFields(log.Fields{
		"guess":  guess,
		"wager":  ToDisplay(params.Wager, decimals).String(),
		"rounds": params.Rounds,
		"bettor": s.id.Address.Hex(),
	}).Info("campaign starting")
	if counter, err := s.resolver.BetCounter(ctx); err == nil {
		s.logger.WithField("betCounter", counter).Info("contract bet counter")
	}

	s.setPhase(PhaseApproving)
	required := new(big.Int).Mul(params.Wager, big.NewInt(int64(params.Rounds)))
	if _, err := s.allowance.EnsureAllowance(ctx, s.id.Address, s.contract, required); err != nil {
		s.logger.WithError(err).Error("approval failed, campaign aborted")
		summary.Aborted = true
		return summary, err
	}

	for i := 1; i <= params.Rounds; i++ {
		if ctx.Err() != nil {
			summary.Aborted = true
			break
		}

		s.state.Round = i
		s.state.CompletedRounds++
		s.metrics.attempted.Inc(1)
		s.logger.Infof("round %d/%d: guess=%s", i, params.Rounds, guess)

		start := time.Now()
		won, err := s.runRound(ctx, i, decimals)
		s.metrics.roundTime.UpdateSince(start)
		if err != nil {
			kind := failureKind(err)
			s.metrics.failure(kind)
			s.logger.WithError(err).WithFields(log.Fields{"round": i, "kind": kind}).Errorf("round %d failed", i)
		} else {
			s.state.SuccessCount++
			s.metrics.succeeded.Inc(1)
			if won {
				summary.Wins++
				s.metrics.wins.Inc(1)
			}
		}

		if i == params.Rounds {
			break
		}
		s.setPhase(PhaseCooldown)
		if err := s.cooldown.Wait(ctx, 0); err != nil {
			summary.Aborted = true
			break
		}
	}

	if ctx.Err() != nil {
		summary.Aborted = true
		return summary, ctx.Err()
	}
	return summary, nil
}

// runRound places, waits for, resolves and reports a single bet. It reports
// whether the bet won.
func (s *WorkerService) runRound(ctx context.Context, round int, decimals int32) (bool, error) {
	if s.conf.AllowanceTopUp && round > 1 {
		remaining := new(big.Int).Mul(s.state.Wager, big.NewInt(int64(s.state.TotalRounds-round+1)))
		if _, err := s.allowance.EnsureAllowance(ctx, s.id.Address, s.contract, remaining); err != nil {
			return false, err
		}
	}

	s.setPhase(PhaseBetting)
	placement, err := s.submitter.SubmitBet(ctx, s.state.Guess, s.state.Wager)
	if err != nil {
		if placement != nil {
			status := store.StatusFailed
			var extraction *BetIDExtractionError
			if errors.As(err, &extraction) {
				status = store.StatusUnknownID
			}
			s.record(placement.TxHash.Hex(), s.placedRecord(round, placement, status, err))
		}
		return false, err
	}
	betKey := placement.BetID.String()
	s.record(betKey, s.placedRecord(round, placement, store.StatusPlaced, nil))

	s.setPhase(PhaseWaitingConfirmation)
	if err := s.confirm.Wait(ctx, placement.BlockNumber.Uint64()); err != nil {
		return false, errors.Wrap(err, "confirmation wait interrupted")
	}

	s.setPhase(PhaseResolving)
	bet, resolveTx, err := s.resolver.ResolveBet(ctx, placement.BetID)
	if err != nil {
		rec := s.placedRecord(round, placement, store.StatusFailed, err)
		if resolveTx != (common.Hash{}) {
			rec.ResolveTxHash = resolveTx.Hex()
		}
		s.record(betKey, rec)
		return false, err
	}
	s.record(betKey, s.resolvedRecord(round, placement, bet, resolveTx))

	win := reportOutcome(round, bet, resolveTx, decimals)
	if win == nil {
		s.logger.WithFields(log.Fields{
			"betId":  bet.ID,
			"target": bet.TargetChar(),
		}).Info("bet lost")
		return false, nil
	}

	s.reporter.ReportWin(*win)
	s.logger.WithFields(log.Fields{
		"betId":      win.BetID,
		"rewardTxId": win.RewardTxID.Hex(),
		"reward":     win.RewardDisplay.String(),
	}).Infof("congratulations! bet %s won, %s tokens sent to your address", win.BetID, win.RewardDisplay)
	return true, nil
}

// record journals bet under key: the bet id, or the bet tx hash when the
// id was never recovered.
func (s *WorkerService) record(key string, bet *store.Bet) {
	if s.journal == nil {
		return
	}
	if err := s.journal.Set(key, bet); err != nil {
		s.logger.WithError(err).WithField("key", key).Warn("failed to journal bet")
	}
}

func (s *WorkerService) placedRecord(round int, p *BetPlacement, status store.Status, cause error) *store.Bet {
	now := time.Now().UTC()
	rec := &store.Bet{
		Round:       round,
		Guess:       s.state.Guess,
		Amount:      s.state.Wager.String(),
		Status:      status,
		BetTxHash:   p.TxHash.Hex(),
		TimeCreated: &now,
	}
	if p.BetID != nil {
		rec.ID = p.BetID.String()
	}
	if p.BlockNumber != nil {
		rec.BetBlock = p.BlockNumber.Uint64()
	}
	if cause != nil {
		rec.Error = cause.Error()
	}
	return rec
}

func (s *WorkerService) resolvedRecord(round int, p *BetPlacement, bet *Bet, resolveTx common.Hash) *store.Bet {
	rec := s.placedRecord(round, p, store.StatusResolved, nil)
	now := time.Now().UTC()
	rec.ResolveTxHash = resolveTx.Hex()
	rec.Target = bet.TargetChar()
	rec.Won = bet.Won
	if bet.Reward != nil {
		rec.Reward = bet.Reward.String()
	}
	rec.TimeResolved = &now
	return rec
}

// Close releases the node connection and the journal.
func (s *WorkerService) Close() {
	s.gw.Close()
	if s.journal != nil {
		if err := s.journal.Close(); err != nil {
			s.logger.WithError(err).Warn("failed to close bet journal")
		}
	}
}
