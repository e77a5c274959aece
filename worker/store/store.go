package store

import (
	"time"

	"github.com/pkg/errors"
)

// ErrNotFound is returned by Get when no record exists for the key.
var ErrNotFound = errors.New("bet record not found")

type Status string

const (
	StatusPlaced    Status = "placed"
	StatusUnknownID Status = "unknown_id"
	StatusResolved  Status = "resolved"
	StatusFailed    Status = "failed"
)

// Bet is the journaled lifecycle of one wager. Amounts are decimal strings
// of the token's smallest unit.
type Bet struct {
	ID            string     `json:"id"`
	Round         int        `json:"round"`
	Guess         string     `json:"guess"`
	Amount        string     `json:"amount"`
	Status        Status     `json:"status"`
	BetTxHash     string     `json:"bet_tx_hash"`
	BetBlock      uint64     `json:"bet_block"`
	ResolveTxHash string     `json:"resolve_tx_hash,omitempty"`
	Target        string     `json:"target,omitempty"`
	Won           bool       `json:"won"`
	Reward        string     `json:"reward,omitempty"`
	Error         string     `json:"error,omitempty"`
	TimeCreated   *time.Time `json:"time_created,omitempty"`
	TimeResolved  *time.Time `json:"time_resolved,omitempty"`
}

type Store interface {
	Get(string) (*Bet, error)
	Set(string, *Bet) error
	Close() error
}

// Key prefixes identity into the journal's key space.
func Key(identity string) string {
	return "bet:" + identity
}
