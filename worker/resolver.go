package worker

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

type Resolver struct {
	tx       *transactor
	gw       Gateway
	contract common.Address
	gasLimit uint64
	logger   *log.Entry
}

func NewResolver(tx *transactor, gw Gateway, contract common.Address, gasLimit uint64) *Resolver {
	return &Resolver{
		tx:       tx,
		gw:       gw,
		contract: contract,
		gasLimit: gasLimit,
		logger:   log.WithField("module", "resolver"),
	}
}

// ResolveBet asks the contract to settle betID and reads the settled record
// back. It must run only after the bet's target block is final.
func (r *Resolver) ResolveBet(ctx context.Context, betID *big.Int) (*Bet, common.Hash, error) {
	r.logger.WithField("betId", betID).Info("resolving bet")

	data, err := gameABI.Pack("resolveBet", betID)
	if err != nil {
		return nil, common.Hash{}, &SubmissionError{Op: "resolveBet", Err: errors.Wrap(err, "failed to pack resolveBet")}
	}

	ptx, err := r.tx.execute(ctx, "resolveBet", r.contract, data, r.gasLimit)
	if err != nil {
		var hash common.Hash
		if ptx != nil {
			hash = ptx.Hash
		}
		return nil, hash, err
	}

	bet, err := r.GetBet(ctx, betID)
	if err != nil {
		return nil, ptx.Hash, &SubmissionError{Op: "getBet", Err: err}
	}
	if !bet.Resolved {
		return bet, ptx.Hash, errors.Wrapf(ErrBetNotResolved, "bet %s", betID)
	}

	fields := log.Fields{
		"betId":       betID,
		"blockNumber": bet.BlockNumber,
		"target":      bet.TargetChar(),
	}
	if bet.BlockNumber != nil {
		if hash, err := r.gw.ReadBlock(ctx, bet.BlockNumber); err != nil {
			r.logger.WithError(err).WithField("betId", betID).Warn("failed to read bet block hash")
		} else {
			fields["blockHash"] = hash.Hex()
		}
	}
	r.logger.WithFields(fields).Info("bet resolved")

	return bet, ptx.Hash, nil
}

// GetBet reads a bet record without changing chain state.
func (r *Resolver) GetBet(ctx context.Context, betID *big.Int) (*Bet, error) {
	data, err := gameABI.Pack("getBet", betID)
	if err != nil {
		return nil, err
	}
	result, err := r.tx.call(ctx, r.contract, data)
	if err != nil {
		return nil, errors.Wrap(err, "failed to call getBet")
	}
	return unpackBet(betID, result)
}

// BetCounter returns how many bets the contract has recorded.
func (r *Resolver) BetCounter(ctx context.Context) (*big.Int, error) {
	data, err := gameABI.Pack("betCounter")
	if err != nil {
		return nil, err
	}
	result, err := r.tx.call(ctx, r.contract, data)
	if err != nil {
		return nil, errors.Wrap(err, "failed to call betCounter")
	}
	var counter *big.Int
	if err := gameABI.UnpackIntoInterface(&counter, "betCounter", result); err != nil {
		return nil, err
	}
	return counter, nil
}
