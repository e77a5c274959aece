package worker

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
)

// fakeGateway is an in-memory stand-in for the game and token contracts.
// Every submitted tx is mined immediately unless a fault says otherwise.
type fakeGateway struct {
	chainID *big.Int
	game    common.Address
	token   common.Address
	bettor  common.Address

	nonce     uint64
	block     uint64
	allowance *big.Int
	decimals  uint8
	nextBetID int64
	bets      map[string]*betTuple

	sent     []*types.Transaction
	methods  []string
	approved []*big.Int
	placed   []*big.Int
	resolved []*big.Int
	receipts map[common.Hash]*types.Receipt

	betCount     int
	resolveCount int

	omitEventAt      map[int]bool
	timeoutResolveAt map[int]bool
	winAt            map[int]bool
	revertOnCall     map[string]bool
	failStatus       map[string]bool
	keepUnresolved   bool
	drainAllowance   bool
	reward           *big.Int
	submitErr        error
}

func newFakeGateway(bettor common.Address) *fakeGateway {
	return &fakeGateway{
		chainID:          big.NewInt(1337),
		game:             common.HexToAddress("0x34308cA4FDa08A95b7F7B643124588DD4Fa5158c"),
		token:            common.HexToAddress("0xE8edF2DF7847A53Aeb6738FDE69BCa923Ca5C195"),
		bettor:           bettor,
		block:            100,
		allowance:        big.NewInt(0),
		decimals:         18,
		nextBetID:        41,
		bets:             map[string]*betTuple{},
		receipts:         map[common.Hash]*types.Receipt{},
		omitEventAt:      map[int]bool{},
		timeoutResolveAt: map[int]bool{},
		winAt:            map[int]bool{},
		revertOnCall:     map[string]bool{},
		failStatus:       map[string]bool{},
		reward:           big.NewInt(0),
	}
}

func (f *fakeGateway) ChainID() *big.Int { return f.chainID }

func (f *fakeGateway) NextNonce(ctx context.Context, account common.Address) (uint64, error) {
	return f.nonce, nil
}

func (f *fakeGateway) GasPrice(ctx context.Context) (*big.Int, error) {
	return big.NewInt(1e9), nil
}

func (f *fakeGateway) Sign(tx *types.Transaction, id *SigningIdentity) (*types.Transaction, error) {
	return types.SignTx(tx, types.NewEIP155Signer(f.chainID), id.key)
}

func (f *fakeGateway) nonces() []uint64 {
	var out []uint64
	for _, tx := range f.sent {
		out = append(out, tx.Nonce())
	}
	return out
}

func (f *fakeGateway) count(method string) int {
	n := 0
	for _, m := range f.methods {
		if m == method {
			n++
		}
	}
	return n
}

func lookupMethod(data []byte) (*abi.Method, error) {
	if len(data) < 4 {
		return nil, errors.New("short calldata")
	}
	if m, err := gameABI.MethodById(data[:4]); err == nil {
		return m, nil
	}
	return erc20ABI.MethodById(data[:4])
}

func (f *fakeGateway) Submit(ctx context.Context, tx *types.Transaction) (common.Hash, error) {
	if f.submitErr != nil {
		return common.Hash{}, f.submitErr
	}
	method, err := lookupMethod(tx.Data())
	if err != nil {
		return common.Hash{}, err
	}
	args, err := method.Inputs.Unpack(tx.Data()[4:])
	if err != nil {
		return common.Hash{}, err
	}

	f.sent = append(f.sent, tx)
	f.methods = append(f.methods, method.Name)
	f.nonce++

	receipt := &types.Receipt{
		Status: types.ReceiptStatusSuccessful,
		TxHash: tx.Hash(),
	}
	if f.failStatus[method.Name] {
		receipt.Status = types.ReceiptStatusFailed
		f.mine(receipt)
		return tx.Hash(), nil
	}

	switch method.Name {
	case "approve":
		amount := args[1].(*big.Int)
		f.approved = append(f.approved, amount)
		f.allowance = new(big.Int).Set(amount)
	case "placeBet":
		f.betCount++
		guess := args[0].(string)
		amount := args[1].(*big.Int)
		id := big.NewInt(f.nextBetID)
		f.nextBetID++
		f.placed = append(f.placed, id)
		f.bets[id.String()] = &betTuple{
			User:        f.bettor,
			Guess:       guess,
			Amount:      amount,
			Reward:      big.NewInt(0),
			BlockNumber: new(big.Int).SetUint64(f.block + 1),
		}
		if f.drainAllowance {
			f.allowance = big.NewInt(0)
		}
		receipt.Logs = append(receipt.Logs, &types.Log{Address: f.token, Topics: []common.Hash{{0x01}}})
		if !f.omitEventAt[f.betCount] {
			receipt.Logs = append(receipt.Logs, betPlacedLog(f.game, id, f.bettor, guess, amount, f.block+1))
		}
	case "resolveBet":
		f.resolveCount++
		id := args[0].(*big.Int)
		f.resolved = append(f.resolved, id)
		if f.timeoutResolveAt[f.resolveCount] {
			return tx.Hash(), nil
		}
		if bet, ok := f.bets[id.String()]; ok {
			bet.Resolved = !f.keepUnresolved
			bet.TargetByte = [1]byte{'3'}
			if f.winAt[f.resolveCount] {
				bet.Won = true
				bet.TargetByte = [1]byte{bet.Guess[0]}
				bet.Reward = new(big.Int).Set(f.reward)
			}
		}
	}

	f.mine(receipt)
	return tx.Hash(), nil
}

func (f *fakeGateway) mine(receipt *types.Receipt) {
	f.block++
	receipt.BlockNumber = new(big.Int).SetUint64(f.block)
	f.receipts[receipt.TxHash] = receipt
}

func (f *fakeGateway) WaitForConfirmation(ctx context.Context, hash common.Hash, timeout time.Duration) (*types.Receipt, error) {
	receipt, ok := f.receipts[hash]
	if !ok {
		return nil, &TimeoutError{TxHash: hash, Timeout: timeout}
	}
	return receipt, nil
}

func (f *fakeGateway) ReadBlock(ctx context.Context, number *big.Int) (common.Hash, error) {
	return common.BigToHash(number), nil
}

func (f *fakeGateway) BlockNumber(ctx context.Context) (uint64, error) {
	return f.block, nil
}

func (f *fakeGateway) Call(ctx context.Context, msg ethereum.CallMsg) ([]byte, error) {
	method, err := lookupMethod(msg.Data)
	if err != nil {
		return nil, err
	}
	if f.revertOnCall[method.Name] {
		return nil, errors.New("execution reverted: " + method.Name)
	}

	switch method.Name {
	case "allowance":
		return method.Outputs.Pack(f.allowance)
	case "decimals":
		return method.Outputs.Pack(f.decimals)
	case "betCounter":
		return method.Outputs.Pack(big.NewInt(f.nextBetID))
	case "getBet":
		args, err := method.Inputs.Unpack(msg.Data[4:])
		if err != nil {
			return nil, err
		}
		bet, ok := f.bets[args[0].(*big.Int).String()]
		if !ok {
			return nil, errors.New("execution reverted: unknown bet")
		}
		return method.Outputs.Pack(*bet)
	default:
		return nil, nil
	}
}

func (f *fakeGateway) Close() {}

func betPlacedLog(contract common.Address, id *big.Int, user common.Address, guess string, amount *big.Int, block uint64) *types.Log {
	event := gameABI.Events["BetPlaced"]
	data, err := event.Inputs.NonIndexed().Pack(guess, amount, new(big.Int).SetUint64(block))
	if err != nil {
		panic(err)
	}
	return &types.Log{
		Address: contract,
		Topics: []common.Hash{
			event.ID,
			common.BigToHash(id),
			common.BytesToHash(user.Bytes()),
		},
		Data: data,
	}
}
