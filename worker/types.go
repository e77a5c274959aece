package worker

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"
)

// Bet is the contract's record of a wager. Won and Reward carry meaning only
// when Resolved is true.
type Bet struct {
	ID          *big.Int
	User        common.Address
	Guess       string
	Amount      *big.Int
	TargetByte  byte
	Won         bool
	Reward      *big.Int
	BlockNumber *big.Int
	Resolved    bool
}

// TargetChar is the character the block hash ended with.
func (b *Bet) TargetChar() string {
	return string(rune(b.TargetByte))
}

type TxState int

const (
	TxBuilt TxState = iota
	TxSigned
	TxSubmitted
	TxConfirmed
	TxFailed
)

func (s TxState) String() string {
	switch s {
	case TxBuilt:
		return "built"
	case TxSigned:
		return "signed"
	case TxSubmitted:
		return "submitted"
	case TxConfirmed:
		return "confirmed"
	case TxFailed:
		return "failed"
	default:
		return fmt.Sprintf("TxState(%d)", int(s))
	}
}

// PendingTransaction tracks one submission from build to receipt.
type PendingTransaction struct {
	Op       string
	Nonce    uint64
	GasLimit uint64
	GasPrice *big.Int
	To       common.Address
	Payload  []byte
	State    TxState
	Hash     common.Hash
	Receipt  *types.Receipt
}

// Phase is the orchestrator's position in a campaign.
type Phase int

const (
	PhaseInit Phase = iota
	PhaseApproving
	PhaseBetting
	PhaseWaitingConfirmation
	PhaseResolving
	PhaseCooldown
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseInit:
		return "init"
	case PhaseApproving:
		return "approving"
	case PhaseBetting:
		return "betting"
	case PhaseWaitingConfirmation:
		return "waiting_confirmation"
	case PhaseResolving:
		return "resolving"
	case PhaseCooldown:
		return "cooldown"
	case PhaseDone:
		return "done"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// CampaignParams are supplied by the caller for one run.
type CampaignParams struct {
	Guess  string
	Wager  *big.Int
	Rounds int
}

// CampaignState is owned and mutated only by the WorkerService.
type CampaignState struct {
	Guess           string
	Wager           *big.Int
	TotalRounds     int
	CompletedRounds int
	SuccessCount    int
	Round           int
	Phase           Phase
}

type Summary struct {
	Guess     string
	Total     int
	Attempted int
	Succeeded int
	Failed    int
	Wins      int
	Aborted   bool
}

type WinRecord struct {
	Round         int
	BetID         *big.Int
	RewardTxID    common.Hash
	Reward        *big.Int
	RewardDisplay decimal.Decimal
}
