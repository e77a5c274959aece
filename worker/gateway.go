package worker

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const defaultReceiptPoll = 2 * time.Second

// Gateway is the node connection used by every on-chain operation.
type Gateway interface {
	ChainID() *big.Int
	NextNonce(ctx context.Context, account common.Address) (uint64, error)
	GasPrice(ctx context.Context) (*big.Int, error)
	Sign(tx *types.Transaction, id *SigningIdentity) (*types.Transaction, error)
	Submit(ctx context.Context, tx *types.Transaction) (common.Hash, error)
	WaitForConfirmation(ctx context.Context, hash common.Hash, timeout time.Duration) (*types.Receipt, error)
	ReadBlock(ctx context.Context, number *big.Int) (common.Hash, error)
	BlockNumber(ctx context.Context) (uint64, error)
	Call(ctx context.Context, msg ethereum.CallMsg) ([]byte, error)
	Close()
}

// SigningIdentity holds the bettor's key. It lives only in process memory.
type SigningIdentity struct {
	Address common.Address
	key     *ecdsa.PrivateKey
}

func NewSigningIdentity(prvkey string) (*SigningIdentity, error) {
	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(prvkey, "0x"))
	if err != nil {
		return nil, errors.Wrap(err, "invalid private key")
	}
	return &SigningIdentity{
		Address: crypto.PubkeyToAddress(privateKey.PublicKey),
		key:     privateKey,
	}, nil
}

// ethBackend is the subset of ethclient.Client the gateway needs. The
// simulated backend client satisfies it as well.
type ethBackend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	BlockNumber(ctx context.Context) (uint64, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

type ethGateway struct {
	client      ethBackend
	chainID     *big.Int
	signer      types.Signer
	pollEvery   time.Duration
	closeClient func()
}

// Connect dials the node and probes its chain id.
func Connect(ctx context.Context, endpoint string, pollEvery time.Duration) (Gateway, error) {
	newctx, cancel := context.WithTimeout(ctx, time.Second*5)
	defer cancel()

	log.WithField("rpc", endpoint).Info("connecting")
	client, err := ethclient.DialContext(newctx, endpoint)
	if err != nil {
		return nil, &ConnectivityError{Endpoint: endpoint, Err: err}
	}

	gw, err := newGateway(newctx, client, pollEvery)
	if err != nil {
		client.Close()
		return nil, &ConnectivityError{Endpoint: endpoint, Err: err}
	}
	gw.closeClient = client.Close
	return gw, nil
}

func newGateway(ctx context.Context, client ethBackend, pollEvery time.Duration) (*ethGateway, error) {
	chainID, err := client.ChainID(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get chain ID")
	}
	if pollEvery <= 0 {
		pollEvery = defaultReceiptPoll
	}

	log.WithField("chainId", chainID).Info("chain info")
	return &ethGateway{
		client:    client,
		chainID:   chainID,
		signer:    types.NewEIP155Signer(chainID),
		pollEvery: pollEvery,
	}, nil
}

func (g *ethGateway) ChainID() *big.Int {
	return new(big.Int).Set(g.chainID)
}

func (g *ethGateway) NextNonce(ctx context.Context, account common.Address) (uint64, error) {
	return g.client.PendingNonceAt(ctx, account)
}

func (g *ethGateway) GasPrice(ctx context.Context) (*big.Int, error) {
	gasPrice, err := g.client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, err
	}
	if gasPrice.BitLen() == 0 {
		return nil, ErrZeroGasPrice
	}
	return gasPrice, nil
}

func (g *ethGateway) Sign(tx *types.Transaction, id *SigningIdentity) (*types.Transaction, error) {
	return types.SignTx(tx, g.signer, id.key)
}

func (g *ethGateway) Submit(ctx context.Context, tx *types.Transaction) (common.Hash, error) {
	if err := g.client.SendTransaction(ctx, tx); err != nil {
		return common.Hash{}, err
	}
	return tx.Hash(), nil
}

// WaitForConfirmation polls for the receipt until it appears or timeout
// elapses. Every poll runs under the same deadline, so a node that stops
// answering still ends in a TimeoutError. A cancelled ctx stops the wait
// with ctx.Err().
func (g *ethGateway) WaitForConfirmation(ctx context.Context, hash common.Hash, timeout time.Duration) (*types.Receipt, error) {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(g.pollEvery)
	defer ticker.Stop()

	expired := func() error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &TimeoutError{TxHash: hash, Timeout: timeout}
	}

	start := time.Now()
	for {
		receipt, err := g.client.TransactionReceipt(waitCtx, hash)
		if err == nil && receipt != nil {
			log.WithFields(log.Fields{
				"tx":       hash.Hex(),
				"duration": time.Since(start).String(),
				"height":   receipt.BlockNumber,
			}).Debug("confirmed")
			return receipt, nil
		}
		if err != nil && err != ethereum.NotFound {
			if waitCtx.Err() != nil {
				return nil, expired()
			}
			log.WithError(err).WithField("tx", hash.Hex()).Warn("failed to check tx")
		}

		select {
		case <-waitCtx.Done():
			return nil, expired()
		case <-ticker.C:
		}
	}
}

func (g *ethGateway) ReadBlock(ctx context.Context, number *big.Int) (common.Hash, error) {
	header, err := g.client.HeaderByNumber(ctx, number)
	if err != nil {
		return common.Hash{}, err
	}
	return header.Hash(), nil
}

func (g *ethGateway) BlockNumber(ctx context.Context) (uint64, error) {
	return g.client.BlockNumber(ctx)
}

func (g *ethGateway) Call(ctx context.Context, msg ethereum.CallMsg) ([]byte, error) {
	return g.client.CallContract(ctx, msg, nil)
}

func (g *ethGateway) Close() {
	if g.closeClient != nil {
		g.closeClient()
	}
}
