// Command shyftvm executes bytecode against a TOML-described prestate.
//
// Usage:
//
//	shyftvm [--verbosity level] [--metrics] run --code 0x... [flags]
//	shyftvm [--verbosity level] [--metrics] apply --from 0x... [flags]
//
// run executes code directly as an account; apply runs a full message
// with intrinsic gas, fees and refunds. Both print a JSON result and the
// post-state root to stdout.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/urfave/cli/v2"

	"github.com/eth2030/shyftvm/core"
	"github.com/eth2030/shyftvm/core/state"
	"github.com/eth2030/shyftvm/core/types"
	"github.com/eth2030/shyftvm/core/vm"
	"github.com/eth2030/shyftvm/log"
	"github.com/eth2030/shyftvm/metrics"
)

var version = "v0.1.0-dev"

func main() {
	os.Exit(run(os.Args[1:]))
}

// run is the entry point without the process exit, so it can be tested.
func run(args []string) int {
	return runWith(args, os.Stdout, os.Stderr)
}

func runWith(args []string, stdout, stderr io.Writer) int {
	app := newApp(stdout, stderr)
	if err := app.Run(append([]string{app.Name}, args...)); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func newApp(stdout, stderr io.Writer) *cli.App {
	return &cli.App{
		Name:      "shyftvm",
		Usage:     "identity-aware EVM bytecode runner",
		Version:   version,
		Writer:    stdout,
		ErrWriter: stderr,
		Flags:     []cli.Flag{verbosityFlag, metricsFlag},
		Before: func(ctx *cli.Context) error {
			log.SetDefault(log.NewWriter(ctx.App.ErrWriter, log.LevelFromString(ctx.String(verbosityFlag.Name))))
			return nil
		},
		After: func(ctx *cli.Context) error {
			if ctx.Bool(metricsFlag.Name) {
				return metrics.DefaultRegistry.WriteText(ctx.App.ErrWriter)
			}
			return nil
		},
		// Errors are reported by runWith; never exit from inside the app.
		ExitErrHandler: func(*cli.Context, error) {},
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "execute bytecode as an account",
				Flags:  []cli.Flag{codeFlag, inputFlag, callerFlag, addressFlag, valueFlag, gasFlag, staticFlag, prestateFlag, traceFlag, dumpFlag},
				Action: runCmd,
			},
			{
				Name:   "apply",
				Usage:  "apply a message to the prestate",
				Flags:  []cli.Flag{fromFlag, toFlag, valueFlag, dataFlag, gasFlag, gasPriceFlag, nonceFlag, prestateFlag, traceFlag, dumpFlag},
				Action: applyCmd,
			},
		},
	}
}

// setup loads the prestate into a fresh store and builds the EVM.
func setup(ctx *cli.Context) (*vm.EVM, *state.Store, error) {
	pre, err := LoadPrestate(ctx.String(prestateFlag.Name))
	if err != nil {
		return nil, nil, err
	}
	blockCtx, err := pre.BlockContext()
	if err != nil {
		return nil, nil, err
	}
	store := state.NewStore(state.NewMemoryDatabase())
	if err := pre.Apply(store); err != nil {
		return nil, nil, err
	}
	var cfg vm.Config
	if ctx.Bool(traceFlag.Name) {
		cfg.Tracer = vm.NewJSONLogger(ctx.App.ErrWriter)
	}
	return vm.NewEVM(blockCtx, vm.TxContext{}, pre.ChainConfig(), store, cfg), store, nil
}

type logJSON struct {
	Address types.Address `json:"address"`
	Topics  []types.Hash  `json:"topics"`
	Data    hexutil.Bytes `json:"data"`
}

type runResult struct {
	Output    hexutil.Bytes  `json:"output"`
	GasUsed   hexutil.Uint64 `json:"gasUsed"`
	Error     string         `json:"error,omitempty"`
	Logs      []logJSON      `json:"logs"`
	StateRoot types.Hash     `json:"stateRoot"`
	Storage   storageDump    `json:"storage,omitempty"`
}

type applyResult struct {
	Status          hexutil.Uint64 `json:"status"`
	GasUsed         hexutil.Uint64 `json:"gasUsed"`
	Output          hexutil.Bytes  `json:"output"`
	Error           string         `json:"error,omitempty"`
	ContractAddress *types.Address `json:"contractAddress,omitempty"`
	Logs            []logJSON      `json:"logs"`
	Bloom           hexutil.Bytes  `json:"logsBloom"`
	StateRoot       types.Hash     `json:"stateRoot"`
	Storage         storageDump    `json:"storage,omitempty"`
}

// storageDump maps each dumped address to its slots, trie key to value.
type storageDump map[string]map[string]hexutil.Bytes

func toLogJSON(logs []*types.Log) []logJSON {
	out := make([]logJSON, 0, len(logs))
	for _, l := range logs {
		topics := l.Topics
		if topics == nil {
			topics = []types.Hash{}
		}
		out = append(out, logJSON{Address: l.Address, Topics: topics, Data: l.Data})
	}
	return out
}

func runCmd(ctx *cli.Context) error {
	evm, store, err := setup(ctx)
	if err != nil {
		return err
	}
	code, err := hexutil.Decode(ctx.String(codeFlag.Name))
	if err != nil {
		return fmt.Errorf("--code: %w", err)
	}
	params := vm.RunParams{Code: code, Gas: ctx.Uint64(gasFlag.Name), Static: ctx.Bool(staticFlag.Name)}
	if params.Data, err = decodeOptional(ctx.String(inputFlag.Name)); err != nil {
		return fmt.Errorf("--input: %w", err)
	}
	if params.Caller, err = parseAddress(ctx.String(callerFlag.Name)); err != nil {
		return fmt.Errorf("--caller: %w", err)
	}
	if params.Address, err = parseAddress(ctx.String(addressFlag.Name)); err != nil {
		return fmt.Errorf("--address: %w", err)
	}
	if params.Value, err = parseWord(ctx.String(valueFlag.Name)); err != nil {
		return fmt.Errorf("--value: %w", err)
	}
	evm.SetTxContext(vm.TxContext{Origin: params.Caller})

	res, err := evm.RunCode(params)
	if err != nil {
		return err
	}
	if err := traceErr(evm); err != nil {
		return err
	}
	root, err := store.Flush()
	if err != nil {
		return err
	}
	dump, err := dumpStorage(ctx, store)
	if err != nil {
		return err
	}
	return writeJSON(ctx.App.Writer, runResult{
		Output:    res.ReturnData,
		GasUsed:   hexutil.Uint64(res.GasUsed),
		Error:     res.ExceptionError(),
		Logs:      toLogJSON(res.Logs),
		StateRoot: root,
		Storage:   dump,
	})
}

func applyCmd(ctx *cli.Context) error {
	evm, store, err := setup(ctx)
	if err != nil {
		return err
	}
	msg := &core.Message{GasLimit: ctx.Uint64(gasFlag.Name)}
	if msg.From, err = parseAddress(ctx.String(fromFlag.Name)); err != nil {
		return fmt.Errorf("--from: %w", err)
	}
	if to := ctx.String(toFlag.Name); to != "" {
		addr, err := parseAddress(to)
		if err != nil {
			return fmt.Errorf("--to: %w", err)
		}
		msg.To = &addr
	}
	if msg.Value, err = parseWord(ctx.String(valueFlag.Name)); err != nil {
		return fmt.Errorf("--value: %w", err)
	}
	if msg.GasPrice, err = parseWord(ctx.String(gasPriceFlag.Name)); err != nil {
		return fmt.Errorf("--gasprice: %w", err)
	}
	if msg.Data, err = decodeOptional(ctx.String(dataFlag.Name)); err != nil {
		return fmt.Errorf("--data: %w", err)
	}
	if ctx.IsSet(nonceFlag.Name) {
		msg.Nonce = ctx.Uint64(nonceFlag.Name)
	} else if msg.Nonce, err = store.GetNonce(msg.From); err != nil {
		return err
	}

	receipt, res, err := core.ApplyMessage(evm, store, msg)
	if err != nil {
		return err
	}
	if err := traceErr(evm); err != nil {
		return err
	}
	root, err := store.Flush()
	if err != nil {
		return err
	}
	dump, err := dumpStorage(ctx, store)
	if err != nil {
		return err
	}
	out := applyResult{
		Status:    hexutil.Uint64(receipt.Status),
		GasUsed:   hexutil.Uint64(receipt.GasUsed),
		Output:    res.ReturnData,
		Error:     receipt.Exception,
		Logs:      toLogJSON(receipt.Logs),
		Bloom:     receipt.Bloom[:],
		StateRoot: root,
		Storage:   dump,
	}
	if msg.IsCreate() && receipt.Succeeded() {
		out.ContractAddress = &receipt.ContractAddress
	}
	return writeJSON(ctx.App.Writer, out)
}

// dumpStorage collects the storage of every --dump address.
func dumpStorage(ctx *cli.Context, store *state.Store) (storageDump, error) {
	addrs := ctx.StringSlice(dumpFlag.Name)
	if len(addrs) == 0 {
		return nil, nil
	}
	dump := make(storageDump, len(addrs))
	for _, s := range addrs {
		addr, err := parseAddress(s)
		if err != nil {
			return nil, fmt.Errorf("--dump: %w", err)
		}
		entries, err := store.DumpStorage(addr)
		if err != nil {
			return nil, err
		}
		slots := make(map[string]hexutil.Bytes, len(entries))
		for _, e := range entries {
			slots[hexutil.Encode(e.Key)] = e.Value
		}
		dump[addr.Hex()] = slots
	}
	return dump, nil
}

func traceErr(evm *vm.EVM) error {
	if l, ok := evm.Config.Tracer.(*vm.JSONLogger); ok {
		return l.Err()
	}
	return nil
}

func decodeOptional(s string) ([]byte, error) {
	if s == "" {
		return nil, nil
	}
	return hexutil.Decode(s)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
