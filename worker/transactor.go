package worker

import (
	"context"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const defaultReceiptTimeout = 2 * time.Minute

// transactor runs one transaction through Built -> Signed -> Submitted ->
// Confirmed|Failed. Callers serialize their use of it, so the nonce read
// before each build is always the successor of the last confirmed one.
type transactor struct {
	gw             Gateway
	id             *SigningIdentity
	receiptTimeout time.Duration
	simulate       bool
	logger         *log.Entry
}

func newTransactor(gw Gateway, id *SigningIdentity, receiptTimeout time.Duration, simulate bool) *transactor {
	if receiptTimeout <= 0 {
		receiptTimeout = defaultReceiptTimeout
	}
	return &transactor{
		gw:             gw,
		id:             id,
		receiptTimeout: receiptTimeout,
		simulate:       simulate,
		logger:         log.WithField("module", "transactor"),
	}
}

// execute builds, signs, submits and confirms a call to `to` with payload.
// The returned PendingTransaction is non-nil whenever a build happened, so
// callers can log its hash even on failure.
func (t *transactor) execute(ctx context.Context, op string, to common.Address, payload []byte, gasLimit uint64) (*PendingTransaction, error) {
	if t.simulate {
		if err := t.preflight(ctx, op, to, payload, gasLimit); err != nil {
			return nil, err
		}
	}

	nonce, err := t.gw.NextNonce(ctx, t.id.Address)
	if err != nil {
		return nil, &SubmissionError{Op: op, Err: errors.Wrap(err, "failed to get nonce")}
	}

	gasPrice, err := t.gw.GasPrice(ctx)
	if err != nil {
		return nil, &SubmissionError{Op: op, Err: errors.Wrap(err, "failed to get gas price")}
	}

	ptx := &PendingTransaction{
		Op:       op,
		Nonce:    nonce,
		GasLimit: gasLimit,
		GasPrice: gasPrice,
		To:       to,
		Payload:  payload,
		State:    TxBuilt,
	}

	signed, err := t.gw.Sign(types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      gasLimit,
		To:       &to,
		Value:    big.NewInt(0),
		Data:     payload,
	}), t.id)
	if err != nil {
		ptx.State = TxFailed
		return ptx, &SubmissionError{Op: op, Err: errors.Wrap(err, "failed to sign transaction")}
	}
	ptx.State = TxSigned
	ptx.Hash = signed.Hash()

	if _, err := t.gw.Submit(ctx, signed); err != nil {
		ptx.State = TxFailed
		if isRevert(err) {
			return ptx, &ContractRejectedError{Op: op, Err: err}
		}
		return ptx, &SubmissionError{Op: op, Err: errors.Wrap(err, "failed to send transaction")}
	}
	ptx.State = TxSubmitted

	t.logger.WithFields(log.Fields{
		"op":       op,
		"tx":       ptx.Hash.Hex(),
		"nonce":    nonce,
		"gasPrice": gasPrice,
	}).Info("transaction submitted")

	receipt, err := t.gw.WaitForConfirmation(ctx, ptx.Hash, t.receiptTimeout)
	if err != nil {
		ptx.State = TxFailed
		var timeout *TimeoutError
		if errors.As(err, &timeout) || ctx.Err() != nil {
			return ptx, err
		}
		return ptx, &SubmissionError{Op: op, Err: errors.Wrap(err, "failed to wait for receipt")}
	}
	ptx.Receipt = receipt

	if receipt.Status != types.ReceiptStatusSuccessful {
		ptx.State = TxFailed
		return ptx, &ContractRejectedError{Op: op, TxHash: ptx.Hash, Err: errors.New("transaction reverted")}
	}
	ptx.State = TxConfirmed

	t.logger.WithFields(log.Fields{
		"op":     op,
		"tx":     ptx.Hash.Hex(),
		"height": receipt.BlockNumber,
	}).Info("transaction confirmed")
	return ptx, nil
}

// preflight runs the payload as an eth_call from the bettor so that a revert
// is reported before any gas is spent.
func (t *transactor) preflight(ctx context.Context, op string, to common.Address, payload []byte, gasLimit uint64) error {
	_, err := t.gw.Call(ctx, ethereum.CallMsg{
		From: t.id.Address,
		To:   &to,
		Gas:  gasLimit,
		Data: payload,
	})
	if err == nil {
		return nil
	}
	if isRevert(err) {
		return &ContractRejectedError{Op: op, Err: err}
	}
	return &SubmissionError{Op: op, Err: errors.Wrap(err, "failed to simulate transaction")}
}

// call performs a read-only contract call and returns the raw output.
func (t *transactor) call(ctx context.Context, to common.Address, payload []byte) ([]byte, error) {
	return t.gw.Call(ctx, ethereum.CallMsg{
		From: t.id.Address,
		To:   &to,
		Data: payload,
	})
}

func isRevert(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "execution reverted")
}
