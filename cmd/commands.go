package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"guess-bet-worker/config"
	"guess-bet-worker/worker"
	"guess-bet-worker/worker/store"
)

const banner = `-------------------------------------------------------------
Guess the last character (0-9 or a-f) of the hash of the block
your bet lands in. A correct guess pays 12x the wager, a wrong
guess loses it. Only the block hash counts, never the tx hash:
it cannot be known in advance and gas or nonce cannot move it.
-------------------------------------------------------------`

func RunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a betting campaign",
		RunE:  runCampaign,
	}
	addRunFlags(cmd)
	return cmd
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("guess", "g", "", "guessed character, 0-9 or a-f")
	cmd.Flags().StringP("amount", "a", "", "wager per bet in tokens, like 100")
	cmd.Flags().IntP("rounds", "n", 0, "number of bets to place")
}

func loadConfig(cmd *cobra.Command) (config.GuessWorkerConfig, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return config.GuessWorkerConfig{}, err
	}
	return config.GetConfig(path)
}

func runCampaign(cmd *cobra.Command, args []string) error {
	conf, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := conf.Validate(); err != nil {
		return err
	}
	winSink := setupLogging(&conf)

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, banner)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	id, err := worker.NewSigningIdentity(conf.PrivateKey)
	if err != nil {
		return err
	}

	gw, err := worker.Connect(ctx, conf.RPCURL, conf.ReceiptPoll)
	if err != nil {
		return err
	}

	journal, err := openStore(&conf)
	if err != nil {
		gw.Close()
		return err
	}

	service := worker.NewWorkerService(&conf, gw, id,
		worker.WithReporter(worker.NewLogReporter(winSink)),
		worker.WithStore(journal),
	)
	defer service.Close()

	decimals := service.TokenDecimals(ctx)
	params, display, err := collectParams(cmd, bufio.NewReader(cmd.InOrStdin()), out, decimals)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "conditions: guess=%s, per bet=%s tokens, rounds=%d\n", params.Guess, display, params.Rounds)

	summary, err := service.Run(ctx, params)
	if err != nil && worker.IsFatal(err) {
		return err
	}
	if err != nil {
		log.WithError(err).Warn("campaign interrupted")
	}
	fmt.Fprintf(out, "done: %d/%d bets succeeded, %d won\n", summary.Succeeded, summary.Total, summary.Wins)
	return nil
}

// openStore returns nil when journaling is disabled.
func openStore(conf *config.GuessWorkerConfig) (store.Store, error) {
	switch conf.StoreBackend {
	case config.StoreRedis:
		return store.NewRedisStore(conf.RedisAddr, conf.RedisPassword, conf.RedisDB)
	case config.StoreLevelDB:
		return store.NewLevelDBStore(conf.StorePath)
	default:
		return nil, nil
	}
}

func BetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bet <id>",
		Short: "Show a journaled bet by id (or by tx hash when its id was never recovered)",
		Args:  cobra.ExactArgs(1),
		RunE:  showBet,
	}
	return cmd
}

func showBet(cmd *cobra.Command, args []string) error {
	conf, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	journal, err := openStore(&conf)
	if err != nil {
		return err
	}
	if journal == nil {
		return errors.New("bet journal is disabled (STORE_BACKEND=none)")
	}
	defer journal.Close()

	bet, err := journal.Get(args[0])
	if err != nil {
		return err
	}
	bs, err := json.MarshalIndent(bet, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(bs))
	return nil
}
