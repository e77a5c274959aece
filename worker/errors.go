package worker

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

var (
	ErrInvalidGuess   = errors.New("guess must be one character in 0-9 or a-f")
	ErrInvalidWager   = errors.New("wager must be a positive amount")
	ErrInvalidRounds  = errors.New("round count must be a positive integer")
	ErrZeroGasPrice   = errors.New("gas price is 0")
	ErrBetNotResolved = errors.New("bet is not resolved after the resolve transaction was mined")
)

// ConnectivityError means the node could not be reached. Fatal at startup.
type ConnectivityError struct {
	Endpoint string
	Err      error
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("cannot reach node %s: %v", e.Endpoint, e.Err)
}

func (e *ConnectivityError) Unwrap() error {
	return e.Err
}

// ApprovalError aborts a campaign before any bet is placed.
type ApprovalError struct {
	Required string
	Err      error
}

func (e *ApprovalError) Error() string {
	return fmt.Sprintf("token approval for %s failed: %v", e.Required, e.Err)
}

func (e *ApprovalError) Unwrap() error {
	return e.Err
}

// ContractRejectedError is returned when the contract reverts a transaction,
// either during simulation or after it was mined with a failed status.
type ContractRejectedError struct {
	Op     string
	TxHash common.Hash
	Err    error
}

func (e *ContractRejectedError) Error() string {
	if e.TxHash != (common.Hash{}) {
		return fmt.Sprintf("%s rejected by contract (tx %s): %v", e.Op, e.TxHash.Hex(), e.Err)
	}
	return fmt.Sprintf("%s rejected by contract: %v", e.Op, e.Err)
}

func (e *ContractRejectedError) Unwrap() error {
	return e.Err
}

// SubmissionError covers network and signing failures while building or
// sending a transaction.
type SubmissionError struct {
	Op  string
	Err error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("%s submission failed: %v", e.Op, e.Err)
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}

// TimeoutError means no receipt was observed within the wait bound.
type TimeoutError struct {
	TxHash  common.Hash
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timeout after %s waiting for receipt of %s", e.Timeout, e.TxHash.Hex())
}

// BetIDExtractionError means the bet transaction was mined but no BetPlaced
// event from the game contract was found in its receipt. The wager is spent.
type BetIDExtractionError struct {
	TxHash common.Hash
}

func (e *BetIDExtractionError) Error() string {
	return fmt.Sprintf("no BetPlaced event in receipt of %s", e.TxHash.Hex())
}

// IsFatal reports whether err must abort the whole campaign.
func IsFatal(err error) bool {
	var connErr *ConnectivityError
	var approvalErr *ApprovalError
	return errors.As(err, &connErr) || errors.As(err, &approvalErr)
}

// failureKind names the error class for logs and metrics.
func failureKind(err error) string {
	var (
		rejected   *ContractRejectedError
		submission *SubmissionError
		timeout    *TimeoutError
		extraction *BetIDExtractionError
		approval   *ApprovalError
	)
	switch {
	case errors.As(err, &extraction):
		return "bet_id_extraction"
	case errors.As(err, &timeout):
		return "timeout"
	case errors.As(err, &rejected):
		return "contract_rejected"
	case errors.As(err, &submission):
		return "submission"
	case errors.As(err, &approval):
		return "approval"
	case errors.Is(err, ErrBetNotResolved):
		return "unresolved"
	default:
		return "other"
	}
}
