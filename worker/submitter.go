package worker

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// BetPlacement is what a confirmed placeBet hands to the resolver.
type BetPlacement struct {
	BlockNumber *big.Int
	TxHash      common.Hash
	BetID       *big.Int
}

type BetSubmitter struct {
	tx       *transactor
	contract common.Address
	gasLimit uint64
	logger   *log.Entry
}

func NewBetSubmitter(tx *transactor, contract common.Address, gasLimit uint64) *BetSubmitter {
	return &BetSubmitter{
		tx:       tx,
		contract: contract,
		gasLimit: gasLimit,
		logger:   log.WithField("module", "submitter"),
	}
}

// SubmitBet places one bet and recovers the id the contract assigned to it
// from the BetPlaced event in the receipt. When the tx was mined but the
// event is missing the returned placement still carries the tx hash and
// block so the caller can record the spent wager. A signed bet that failed
// later (reverted or unconfirmed) also comes back with its tx hash.
func (s *BetSubmitter) SubmitBet(ctx context.Context, guess string, amount *big.Int) (*BetPlacement, error) {
	data, err := gameABI.Pack("placeBet", guess, amount)
	if err != nil {
		return nil, &SubmissionError{Op: "placeBet", Err: errors.Wrap(err, "failed to pack placeBet")}
	}

	ptx, err := s.tx.execute(ctx, "placeBet", s.contract, data, s.gasLimit)
	if err != nil {
		if ptx == nil || ptx.Hash == (common.Hash{}) {
			return nil, err
		}
		failed := &BetPlacement{TxHash: ptx.Hash}
		if ptx.Receipt != nil {
			failed.BlockNumber = ptx.Receipt.BlockNumber
		}
		return failed, err
	}

	placement := &BetPlacement{
		BlockNumber: ptx.Receipt.BlockNumber,
		TxHash:      ptx.Hash,
	}

	ev, ok := extractBetID(s.contract, ptx.Receipt.Logs)
	if !ok {
		s.logger.WithField("tx", ptx.Hash.Hex()).Error("cannot extract bet id")
		return placement, &BetIDExtractionError{TxHash: ptx.Hash}
	}
	placement.BetID = ev.BetID

	s.logger.WithFields(log.Fields{
		"tx":     ptx.Hash.Hex(),
		"height": placement.BlockNumber,
		"betId":  ev.BetID,
		"guess":  ev.Guess,
	}).Info("bet placed")
	return placement, nil
}
