package worker

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

const guessAlphabet = "0123456789abcdef"

// BetPlacedEvent is a decoded BetPlaced log.
type BetPlacedEvent struct {
	BetID       *big.Int
	User        common.Address
	Guess       string
	Amount      *big.Int
	BlockNumber *big.Int
}

// extractBetID scans receipt logs for the first BetPlaced event emitted by
// contract. Logs from other addresses or with other signatures are skipped.
func extractBetID(contract common.Address, logs []*types.Log) (*BetPlacedEvent, bool) {
	for _, l := range logs {
		if l == nil || l.Address != contract {
			continue
		}
		ev, err := parseBetPlaced(l)
		if err != nil {
			continue
		}
		return ev, true
	}
	return nil, false
}

func parseBetPlaced(l *types.Log) (*BetPlacedEvent, error) {
	event := gameABI.Events["BetPlaced"]
	if len(l.Topics) != 3 || l.Topics[0] != event.ID {
		return nil, errors.New("not a BetPlaced log")
	}

	values, err := gameABI.Unpack("BetPlaced", l.Data)
	if err != nil {
		return nil, err
	}
	if len(values) != 3 {
		return nil, errors.Errorf("unexpected BetPlaced data fields: %d", len(values))
	}
	guess, _ := values[0].(string)
	amount, _ := values[1].(*big.Int)
	blockNumber, _ := values[2].(*big.Int)

	return &BetPlacedEvent{
		BetID:       new(big.Int).SetBytes(l.Topics[1].Bytes()),
		User:        common.BytesToAddress(l.Topics[2].Bytes()),
		Guess:       guess,
		Amount:      amount,
		BlockNumber: blockNumber,
	}, nil
}

// ParseGuess normalizes a guess and checks it is one hex digit.
func ParseGuess(s string) (string, error) {
	g := strings.ToLower(strings.TrimSpace(s))
	if len(g) != 1 || !strings.Contains(guessAlphabet, g) {
		return "", ErrInvalidGuess
	}
	return g, nil
}

// ParseWager converts a positive display amount such as "100" or "0.5"
// into the token's smallest unit.
func ParseWager(s string, decimals int32) (*big.Int, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return nil, ErrInvalidWager
	}
	wei := ToSmallestUnit(d, decimals)
	if wei.Sign() <= 0 {
		return nil, ErrInvalidWager
	}
	return wei, nil
}

// ToSmallestUnit shifts a display amount by decimals, truncating any
// remaining fraction.
func ToSmallestUnit(amount decimal.Decimal, decimals int32) *big.Int {
	return amount.Shift(decimals).Truncate(0).BigInt()
}

// ToDisplay converts a smallest-unit amount into display units.
func ToDisplay(amount *big.Int, decimals int32) decimal.Decimal {
	if amount == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(amount, -decimals)
}
