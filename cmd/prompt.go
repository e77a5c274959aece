package main

import (
	"bufio"
	"fmt"
	"io"
	"math/big"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"guess-bet-worker/worker"
)

// collectParams takes guess, amount and rounds from flags. Missing values
// are prompted for until a valid one is entered; an invalid flag is an error.
func collectParams(cmd *cobra.Command, in *bufio.Reader, out io.Writer, decimals int32) (worker.CampaignParams, string, error) {
	guessFlag, _ := cmd.Flags().GetString("guess")
	amountFlag, _ := cmd.Flags().GetString("amount")
	roundsFlag, _ := cmd.Flags().GetInt("rounds")

	var params worker.CampaignParams

	_, err := ask(in, out, "guess character (0-9 or a-f): ", guessFlag, func(s string) error {
		g, err := worker.ParseGuess(s)
		params.Guess = g
		return err
	})
	if err != nil {
		return params, "", err
	}

	amount, err := ask(in, out, "tokens per bet (like 100): ", amountFlag, func(s string) error {
		wei, err := worker.ParseWager(s, decimals)
		params.Wager = wei
		return err
	})
	if err != nil {
		return params, "", err
	}

	initial := ""
	if roundsFlag != 0 {
		initial = strconv.Itoa(roundsFlag)
	}
	_, err = ask(in, out, "number of bets (like 100): ", initial, func(s string) error {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			return worker.ErrInvalidRounds
		}
		params.Rounds = n
		return nil
	})
	if err != nil {
		return params, "", err
	}

	return params, displayAmount(params.Wager, decimals, amount), nil
}

// ask validates initial when given, otherwise prompts until parse accepts
// a line. It returns the accepted raw value.
func ask(in *bufio.Reader, out io.Writer, prompt, initial string, parse func(string) error) (string, error) {
	if initial != "" {
		if err := parse(initial); err != nil {
			return "", err
		}
		return initial, nil
	}
	for {
		fmt.Fprint(out, prompt)
		line, err := in.ReadString('\n')
		line = strings.TrimSpace(line)
		if line != "" {
			perr := parse(line)
			if perr == nil {
				return line, nil
			}
			fmt.Fprintf(out, "invalid input: %v\n", perr)
		}
		if err != nil {
			return "", errors.Wrap(err, "reading input")
		}
	}
}

func displayAmount(wei *big.Int, decimals int32, raw string) string {
	if wei == nil {
		return raw
	}
	return worker.ToDisplay(wei, decimals).String()
}
