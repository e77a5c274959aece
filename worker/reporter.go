package worker

import (
	"io"

	"github.com/ethereum/go-ethereum/common"
	log "github.com/sirupsen/logrus"
)

// Reporter receives the campaign's outcome records.
type Reporter interface {
	ReportWin(win WinRecord)
	ReportSummary(summary Summary)
}

// LogReporter writes wins and summaries as JSON records to a dedicated
// sink, separate from the operational log.
type LogReporter struct {
	sink *log.Logger
}

func NewLogReporter(out io.Writer) *LogReporter {
	sink := log.New()
	sink.SetOutput(out)
	sink.SetFormatter(&log.JSONFormatter{})
	sink.SetLevel(log.InfoLevel)
	return &LogReporter{sink: sink}
}

func (r *LogReporter) ReportWin(win WinRecord) {
	r.sink.WithFields(log.Fields{
		"round":      win.Round,
		"betId":      win.BetID.String(),
		"rewardTxId": win.RewardTxID.Hex(),
		"reward":     win.RewardDisplay.String(),
		"rewardWei":  win.Reward.String(),
	}).Info("bet won")
}

func (r *LogReporter) ReportSummary(summary Summary) {
	r.sink.WithFields(log.Fields{
		"guess":     summary.Guess,
		"total":     summary.Total,
		"attempted": summary.Attempted,
		"succeeded": summary.Succeeded,
		"failed":    summary.Failed,
		"wins":      summary.Wins,
		"aborted":   summary.Aborted,
	}).Info("campaign finished")
}

// reportOutcome turns a resolved bet into a win record. It returns nil for
// losses and for bets that are not resolved.
func reportOutcome(round int, bet *Bet, resolveTx common.Hash, decimals int32) *WinRecord {
	if bet == nil || !bet.Resolved || !bet.Won {
		return nil
	}
	return &WinRecord{
		Round:         round,
		BetID:         bet.ID,
		RewardTxID:    resolveTx,
		Reward:        bet.Reward,
		RewardDisplay: ToDisplay(bet.Reward, decimals),
	}
}
