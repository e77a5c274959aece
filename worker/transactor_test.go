package worker

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTransactor(t *testing.T, simulate bool) (*transactor, *fakeGateway) {
	id := newTestIdentity(t)
	fake := newFakeGateway(id.Address)
	return newTransactor(fake, id, time.Second, simulate), fake
}

func TestExecuteConfirms(t *testing.T) {
	tx, fake := newTestTransactor(t, true)
	data, err := gameABI.Pack("resolveBet", big.NewInt(1))
	require.NoError(t, err)

	ptx, err := tx.execute(context.Background(), "resolveBet", fake.game, data, 200000)
	require.NoError(t, err)
	assert.Equal(t, TxConfirmed, ptx.State)
	assert.Equal(t, uint64(0), ptx.Nonce)
	assert.Equal(t, uint64(200000), ptx.GasLimit)
	assert.Equal(t, fake.sent[0].Hash(), ptx.Hash)
	assert.NotNil(t, ptx.Receipt)

	ptx, err = tx.execute(context.Background(), "resolveBet", fake.game, data, 200000)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), ptx.Nonce)
}

func TestExecuteRevertedReceipt(t *testing.T) {
	tx, fake := newTestTransactor(t, false)
	fake.failStatus["placeBet"] = true
	data, err := gameABI.Pack("placeBet", "1", big.NewInt(10))
	require.NoError(t, err)

	ptx, err := tx.execute(context.Background(), "placeBet", fake.game, data, 400000)
	require.Error(t, err)
	assert.Equal(t, TxFailed, ptx.State)

	var rejected *ContractRejectedError
	require.True(t, errors.As(err, &rejected))
	assert.Equal(t, ptx.Hash, rejected.TxHash)
}

func TestExecutePreflightRevertSpendsNothing(t *testing.T) {
	tx, fake := newTestTransactor(t, true)
	fake.revertOnCall["placeBet"] = true
	data, err := gameABI.Pack("placeBet", "1", big.NewInt(10))
	require.NoError(t, err)

	ptx, err := tx.execute(context.Background(), "placeBet", fake.game, data, 400000)
	assert.Nil(t, ptx)
	var rejected *ContractRejectedError
	require.True(t, errors.As(err, &rejected))
	assert.Empty(t, fake.sent)
}

func TestExecuteSubmitError(t *testing.T) {
	tx, fake := newTestTransactor(t, false)
	fake.submitErr = errors.New("insufficient funds for gas")
	data, err := gameABI.Pack("resolveBet", big.NewInt(1))
	require.NoError(t, err)

	ptx, err := tx.execute(context.Background(), "resolveBet", fake.game, data, 200000)
	assert.Equal(t, TxFailed, ptx.State)
	var submission *SubmissionError
	require.True(t, errors.As(err, &submission))
	assert.Equal(t, "resolveBet", submission.Op)

	fake.submitErr = errors.New("execution reverted: bet already resolved")
	_, err = tx.execute(context.Background(), "resolveBet", fake.game, data, 200000)
	var rejected *ContractRejectedError
	assert.True(t, errors.As(err, &rejected))
}

func TestEnsureAllowanceIsIdempotent(t *testing.T) {
	tx, fake := newTestTransactor(t, true)
	m := NewAllowanceManager(tx, fake.token, 100000)
	owner := fake.bettor
	required := new(big.Int).Mul(big.NewInt(300), big.NewInt(1e18))

	ptx, err := m.EnsureAllowance(context.Background(), owner, fake.game, required)
	require.NoError(t, err)
	require.NotNil(t, ptx)
	assert.Equal(t, "approve", ptx.Op)
	require.Len(t, fake.approved, 1)
	assert.Equal(t, required, fake.approved[0])

	allowance, err := m.Allowance(context.Background(), owner, fake.game)
	require.NoError(t, err)
	assert.Equal(t, required, allowance)

	ptx, err = m.EnsureAllowance(context.Background(), owner, fake.game, required)
	require.NoError(t, err)
	assert.Nil(t, ptx)
	assert.Len(t, fake.approved, 1)
}

func TestEnsureAllowanceReadFailure(t *testing.T) {
	tx, fake := newTestTransactor(t, true)
	fake.revertOnCall["allowance"] = true
	m := NewAllowanceManager(tx, fake.token, 100000)

	_, err := m.EnsureAllowance(context.Background(), fake.bettor, fake.game, big.NewInt(1))
	var approvalErr *ApprovalError
	require.True(t, errors.As(err, &approvalErr))
	assert.Empty(t, fake.sent)
}

func TestDecimalsFallback(t *testing.T) {
	tx, fake := newTestTransactor(t, false)
	m := NewAllowanceManager(tx, fake.token, 100000)

	fake.decimals = 6
	assert.Equal(t, int32(6), m.Decimals(context.Background()))

	fake.revertOnCall["decimals"] = true
	assert.Equal(t, int32(defaultTokenDecimals), m.Decimals(context.Background()))
}

func TestResolverReadsBet(t *testing.T) {
	tx, fake := newTestTransactor(t, true)
	submitter := NewBetSubmitter(tx, fake.game, 400000)
	resolver := NewResolver(tx, fake, fake.game, 200000)
	fake.winAt[1] = true
	fake.reward = big.NewInt(1200)

	placement, err := submitter.SubmitBet(context.Background(), "d", big.NewInt(100))
	require.NoError(t, err)
	assert.Equal(t, fake.placed[0], placement.BetID)
	assert.Equal(t, fake.sent[0].Hash(), placement.TxHash)

	bet, resolveTx, err := resolver.ResolveBet(context.Background(), placement.BetID)
	require.NoError(t, err)
	assert.Equal(t, fake.sent[1].Hash(), resolveTx)
	assert.True(t, bet.Resolved)
	assert.True(t, bet.Won)
	assert.Equal(t, "d", bet.TargetChar())
	assert.Equal(t, big.NewInt(1200), bet.Reward)
	assert.Equal(t, fake.bettor, bet.User)

	counter, err := resolver.BetCounter(context.Background())
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(fake.nextBetID), counter)
}

func TestSubmitBetKeepsRevertedTxHash(t *testing.T) {
	tx, fake := newTestTransactor(t, false)
	fake.failStatus["placeBet"] = true
	submitter := NewBetSubmitter(tx, fake.game, 400000)

	placement, err := submitter.SubmitBet(context.Background(), "1", big.NewInt(10))
	var rejected *ContractRejectedError
	require.True(t, errors.As(err, &rejected))
	require.NotNil(t, placement)
	assert.Equal(t, fake.sent[0].Hash(), placement.TxHash)
	assert.NotNil(t, placement.BlockNumber)
	assert.Nil(t, placement.BetID)

	// a bet rejected before signing has nothing to record
	fake.revertOnCall["placeBet"] = true
	tx.simulate = true
	placement, err = submitter.SubmitBet(context.Background(), "1", big.NewInt(10))
	assert.Error(t, err)
	assert.Nil(t, placement)
}
