package worker

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const defaultTokenDecimals = 18

// AllowanceManager keeps the game contract's token allowance large enough
// for the bets still to be placed.
type AllowanceManager struct {
	tx       *transactor
	token    common.Address
	gasLimit uint64
	logger   *log.Entry
}

func NewAllowanceManager(tx *transactor, token common.Address, gasLimit uint64) *AllowanceManager {
	return &AllowanceManager{
		tx:       tx,
		token:    token,
		gasLimit: gasLimit,
		logger:   log.WithField("module", "allowance"),
	}
}

// Allowance returns how much spender may still pull from owner.
func (m *AllowanceManager) Allowance(ctx context.Context, owner, spender common.Address) (*big.Int, error) {
	data, err := erc20ABI.Pack("allowance", owner, spender)
	if err != nil {
		return nil, err
	}

	result, err := m.tx.call(ctx, m.token, data)
	if err != nil {
		return nil, err
	}

	var allowance *big.Int
	if err := erc20ABI.UnpackIntoInterface(&allowance, "allowance", result); err != nil {
		return nil, err
	}
	return allowance, nil
}

// EnsureAllowance approves requiredTotal only if the current allowance is
// below it. It returns the approval transaction, or nil when none was needed.
func (m *AllowanceManager) EnsureAllowance(ctx context.Context, owner, spender common.Address, requiredTotal *big.Int) (*PendingTransaction, error) {
	allowance, err := m.Allowance(ctx, owner, spender)
	if err != nil {
		return nil, &ApprovalError{Required: requiredTotal.String(), Err: errors.Wrap(err, "failed to get allowance")}
	}

	if allowance.Cmp(requiredTotal) >= 0 {
		m.logger.WithFields(log.Fields{
			"allowance": allowance,
			"required":  requiredTotal,
		}).Info("allowance already sufficient")
		return nil, nil
	}

	data, err := erc20ABI.Pack("approve", spender, requiredTotal)
	if err != nil {
		return nil, &ApprovalError{Required: requiredTotal.String(), Err: errors.Wrap(err, "failed to pack approve")}
	}

	ptx, err := m.tx.execute(ctx, "approve", m.token, data, m.gasLimit)
	if err != nil {
		return ptx, &ApprovalError{Required: requiredTotal.String(), Err: err}
	}

	m.logger.WithFields(log.Fields{
		"amount": requiredTotal,
		"tx":     ptx.Hash.Hex(),
		"height": ptx.Receipt.BlockNumber,
	}).Info("token approved")
	return ptx, nil
}

// Decimals reads the token's decimals, falling back to 18 when the token
// does not expose them.
func (m *AllowanceManager) Decimals(ctx context.Context) int32 {
	data, err := erc20ABI.Pack("decimals")
	if err != nil {
		return defaultTokenDecimals
	}

	result, err := m.tx.call(ctx, m.token, data)
	if err != nil {
		m.logger.WithError(err).Warn("failed to read token decimals, assuming 18")
		return defaultTokenDecimals
	}

	var decimals uint8
	if err := erc20ABI.UnpackIntoInterface(&decimals, "decimals", result); err != nil {
		m.logger.WithError(err).Warn("failed to decode token decimals, assuming 18")
		return defaultTokenDecimals
	}
	return int32(decimals)
}
