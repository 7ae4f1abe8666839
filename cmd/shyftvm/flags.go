package main

import "github.com/urfave/cli/v2"

var (
	verbosityFlag = &cli.StringFlag{
		Name:  "verbosity",
		Usage: "log level (debug, info, warn, error)",
		Value: "warn",
	}
	metricsFlag = &cli.BoolFlag{
		Name:  "metrics",
		Usage: "dump metrics to stderr on exit",
	}

	prestateFlag = &cli.StringFlag{
		Name:  "prestate",
		Usage: "TOML file with block context, accounts and attestations",
	}
	traceFlag = &cli.BoolFlag{
		Name:  "trace",
		Usage: "write a JSON step trace to stderr",
	}
	gasFlag = &cli.Uint64Flag{
		Name:  "gas",
		Usage: "gas limit",
		Value: 10_000_000,
	}
	dumpFlag = &cli.StringSliceFlag{
		Name:  "dump",
		Usage: "address whose post-state storage is included in the result (repeatable)",
	}
	valueFlag = &cli.StringFlag{
		Name:  "value",
		Usage: "value in wei, decimal or 0x-hex",
	}

	codeFlag = &cli.StringFlag{
		Name:     "code",
		Usage:    "0x-hex bytecode to execute",
		Required: true,
	}
	inputFlag = &cli.StringFlag{
		Name:  "input",
		Usage: "0x-hex call data",
	}
	callerFlag = &cli.StringFlag{
		Name:  "caller",
		Usage: "caller address",
		Value: "0x1000000000000000000000000000000000000001",
	}
	addressFlag = &cli.StringFlag{
		Name:  "address",
		Usage: "address the code runs as",
		Value: "0x2000000000000000000000000000000000000002",
	}
	staticFlag = &cli.BoolFlag{
		Name:  "static",
		Usage: "forbid state changes",
	}

	fromFlag = &cli.StringFlag{
		Name:     "from",
		Usage:    "sender address",
		Required: true,
	}
	toFlag = &cli.StringFlag{
		Name:  "to",
		Usage: "recipient address, empty to create a contract",
	}
	dataFlag = &cli.StringFlag{
		Name:  "data",
		Usage: "0x-hex message data or init code",
	}
	gasPriceFlag = &cli.StringFlag{
		Name:  "gasprice",
		Usage: "gas price in wei",
		Value: "0",
	}
	nonceFlag = &cli.Uint64Flag{
		Name:  "nonce",
		Usage: "sender nonce, defaults to the prestate nonce",
	}
)
