package worker

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// Guess game ABI JSON
const gameABIJSON = `[
	{
		"inputs": [
			{"internalType": "string", "name": "guess", "type": "string"},
			{"internalType": "uint256", "name": "amount", "type": "uint256"}
		],
		"name": "placeBet",
		"outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"inputs": [{"internalType": "uint256", "name": "betId", "type": "uint256"}],
		"name": "resolveBet",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"inputs": [{"internalType": "uint256", "name": "betId", "type": "uint256"}],
		"name": "getBet",
		"outputs": [
			{
				"components": [
					{"internalType": "address", "name": "user", "type": "address"},
					{"internalType": "string", "name": "guess", "type": "string"},
					{"internalType": "uint256", "name": "amount", "type": "uint256"},
					{"internalType": "bytes1", "name": "targetByte", "type": "bytes1"},
					{"internalType": "bool", "name": "won", "type": "bool"},
					{"internalType": "uint256", "name": "reward", "type": "uint256"},
					{"internalType": "uint256", "name": "blockNumber", "type": "uint256"},
					{"internalType": "bool", "name": "resolved", "type": "bool"}
				],
				"internalType": "struct GuessCounterGame.Bet",
				"name": "",
				"type": "tuple"
			}
		],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [],
		"name": "betCounter",
		"outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"anonymous": false,
		"inputs": [
			{"indexed": true, "internalType": "uint256", "name": "betId", "type": "uint256"},
			{"indexed": true, "internalType": "address", "name": "user", "type": "address"},
			{"indexed": false, "internalType": "string", "name": "guess", "type": "string"},
			{"indexed": false, "internalType": "uint256", "name": "amount", "type": "uint256"},
			{"indexed": false, "internalType": "uint256", "name": "blockNumber", "type": "uint256"}
		],
		"name": "BetPlaced",
		"type": "event"
	}
]`

// ERC20 ABI JSON for allowance, approve and decimals
const erc20ABIJSON = `[
	{
		"constant": false,
		"inputs": [
			{"name": "_spender", "type": "address"},
			{"name": "_value", "type": "uint256"}
		],
		"name": "approve",
		"outputs": [{"name": "", "type": "bool"}],
		"type": "function"
	},
	{
		"constant": true,
		"inputs": [
			{"name": "_owner", "type": "address"},
			{"name": "_spender", "type": "address"}
		],
		"name": "allowance",
		"outputs": [{"name": "", "type": "uint256"}],
		"type": "function"
	},
	{
		"constant": true,
		"inputs": [],
		"name": "decimals",
		"outputs": [{"name": "", "type": "uint8"}],
		"type": "function"
	}
]`

var (
	gameABI  = mustParseABI("game", gameABIJSON)
	erc20ABI = mustParseABI("ERC20", erc20ABIJSON)
)

func mustParseABI(name, raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic("failed to parse " + name + " ABI: " + err.Error())
	}
	return parsed
}

// betTuple mirrors the getBet return tuple field for field, in order.
type betTuple struct {
	User        common.Address
	Guess       string
	Amount      *big.Int
	TargetByte  [1]byte
	Won         bool
	Reward      *big.Int
	BlockNumber *big.Int
	Resolved    bool
}

func unpackBet(id *big.Int, data []byte) (*Bet, error) {
	out, err := gameABI.Unpack("getBet", data)
	if err != nil {
		return nil, err
	}
	tuple := *abi.ConvertType(out[0], new(betTuple)).(*betTuple)
	return &Bet{
		ID:          new(big.Int).Set(id),
		User:        tuple.User,
		Guess:       tuple.Guess,
		Amount:      tuple.Amount,
		TargetByte:  tuple.TargetByte[0],
		Won:         tuple.Won,
		Reward:      tuple.Reward,
		BlockNumber: tuple.BlockNumber,
		Resolved:    tuple.Resolved,
	}, nil
}
