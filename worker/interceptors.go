package worker

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/rcrowley/go-metrics"
	log "github.com/sirupsen/logrus"
)

const defaultCallTimeout = 10 * time.Second

// interceptedGateway gives every node call a deadline, logs it and times
// it. Confirmation waits keep their own timeout.
type interceptedGateway struct {
	next        Gateway
	callTimeout time.Duration
	registry    metrics.Registry
	logger      *log.Entry
}

func withCallInterceptor(next Gateway, callTimeout time.Duration, registry metrics.Registry) Gateway {
	if callTimeout <= 0 {
		callTimeout = defaultCallTimeout
	}
	if registry == nil {
		registry = metrics.NewRegistry()
	}
	return &interceptedGateway{
		next:        next,
		callTimeout: callTimeout,
		registry:    registry,
		logger:      log.WithField("module", "gateway"),
	}
}

func (g *interceptedGateway) invoke(ctx context.Context, method string, call func(ctx context.Context) error) error {
	start := time.Now()
	_ctx, cancel := context.WithTimeout(ctx, g.callTimeout)
	defer cancel()

	err := call(_ctx)

	metrics.GetOrRegisterTimer("gateway."+method, g.registry).UpdateSince(start)
	entry := g.logger.WithFields(log.Fields{"method": method, "duration": time.Since(start).String()})
	if err != nil {
		entry.WithError(err).Debug("invoked node call")
	} else {
		entry.Trace("invoked node call")
	}
	return err
}

func (g *interceptedGateway) ChainID() *big.Int {
	return g.next.ChainID()
}

func (g *interceptedGateway) NextNonce(ctx context.Context, account common.Address) (nonce uint64, err error) {
	err = g.invoke(ctx, "nextNonce", func(ctx context.Context) error {
		nonce, err = g.next.NextNonce(ctx, account)
		return err
	})
	return nonce, err
}

func (g *interceptedGateway) GasPrice(ctx context.Context) (price *big.Int, err error) {
	err = g.invoke(ctx, "gasPrice", func(ctx context.Context) error {
		price, err = g.next.GasPrice(ctx)
		return err
	})
	return price, err
}

func (g *interceptedGateway) Sign(tx *types.Transaction, id *SigningIdentity) (*types.Transaction, error) {
	return g.next.Sign(tx, id)
}

func (g *interceptedGateway) Submit(ctx context.Context, tx *types.Transaction) (hash common.Hash, err error) {
	err = g.invoke(ctx, "submit", func(ctx context.Context) error {
		hash, err = g.next.Submit(ctx, tx)
		return err
	})
	return hash, err
}

func (g *interceptedGateway) WaitForConfirmation(ctx context.Context, hash common.Hash, timeout time.Duration) (*types.Receipt, error) {
	start := time.Now()
	receipt, err := g.next.WaitForConfirmation(ctx, hash, timeout)
	metrics.GetOrRegisterTimer("gateway.waitForConfirmation", g.registry).UpdateSince(start)
	g.logger.WithFields(log.Fields{
		"method":   "waitForConfirmation",
		"tx":       hash.Hex(),
		"duration": time.Since(start).String(),
	}).WithError(err).Debug("invoked node call")
	return receipt, err
}

func (g *interceptedGateway) ReadBlock(ctx context.Context, number *big.Int) (hash common.Hash, err error) {
	err = g.invoke(ctx, "readBlock", func(ctx context.Context) error {
		hash, err = g.next.ReadBlock(ctx, number)
		return err
	})
	return hash, err
}

func (g *interceptedGateway) BlockNumber(ctx context.Context) (number uint64, err error) {
	err = g.invoke(ctx, "blockNumber", func(ctx context.Context) error {
		number, err = g.next.BlockNumber(ctx)
		return err
	})
	return number, err
}

func (g *interceptedGateway) Call(ctx context.Context, msg ethereum.CallMsg) (out []byte, err error) {
	err = g.invoke(ctx, "call", func(ctx context.Context) error {
		out, err = g.next.Call(ctx, msg)
		return err
	})
	return out, err
}

func (g *interceptedGateway) Close() {
	g.next.Close()
}
