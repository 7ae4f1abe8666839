package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
	"github.com/pelletier/go-toml/v2"

	"github.com/eth2030/shyftvm/core/state"
	"github.com/eth2030/shyftvm/core/types"
	"github.com/eth2030/shyftvm/core/vm"
)

var (
	ErrPrestateNotFound = errors.New("prestate file not found")
	ErrInvalidPrestate  = errors.New("invalid prestate")
)

// Prestate is the TOML description of the world an execution starts
// from:
//
//	[block]
//	coinbase = "0x..."
//	number = 100
//	timestamp = 1700000000
//	baseFee = "0x7"
//	[block.hashes]
//	99 = "0x..."
//
//	[accounts."0x..."]
//	balance = "1000000"
//	code = "0x6000"
//	storage = { "0x00" = "0x2a" }
//	verification = "0x..."
//
//	[[attestations]]
//	subject = "0x..."
//	trustAnchor = "0x..."
//	nonce = 1
type Prestate struct {
	Block        BlockConfig              `toml:"block"`
	Accounts     map[string]AccountConfig `toml:"accounts"`
	Attestations []AttestationConfig      `toml:"attestations"`
}

// BlockConfig describes the block the code executes in.
type BlockConfig struct {
	Coinbase   string            `toml:"coinbase"`
	Number     uint64            `toml:"number"`
	Timestamp  uint64            `toml:"timestamp"`
	GasLimit   uint64            `toml:"gasLimit"`
	Difficulty string            `toml:"difficulty"`
	BaseFee    string            `toml:"baseFee"`
	ChainID    uint64            `toml:"chainId"`
	Hashes     map[string]string `toml:"hashes"`
}

// AccountConfig describes one account. Numbers are decimal or 0x-hex.
type AccountConfig struct {
	Balance      string            `toml:"balance"`
	Nonce        uint64            `toml:"nonce"`
	Code         string            `toml:"code"`
	Storage      map[string]string `toml:"storage"`
	Verification string            `toml:"verification"`
}

// AttestationConfig describes one identity record.
type AttestationConfig struct {
	Subject      string   `toml:"subject"`
	TrustAnchor  string   `toml:"trustAnchor"`
	Nonce        uint64   `toml:"nonce"`
	Jurisdiction string   `toml:"jurisdiction"`
	Effective    uint64   `toml:"effective"`
	Expiry       uint64   `toml:"expiry"`
	Replacement  string   `toml:"replacement"`
	Revokes      []uint64 `toml:"revokes"`
	Payload      string   `toml:"payload"`
}

// LoadPrestate reads a prestate file. An empty path is the empty world.
func LoadPrestate(path string) (*Prestate, error) {
	pre := &Prestate{}
	if path == "" {
		return pre, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrPrestateNotFound, path)
		}
		return nil, err
	}
	if err := toml.Unmarshal(data, pre); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPrestate, err)
	}
	return pre, nil
}

// BlockContext returns the interpreter's view of the block.
func (p *Prestate) BlockContext() (vm.BlockContext, error) {
	ctx := vm.BlockContext{
		BlockNumber: p.Block.Number,
		Time:        p.Block.Timestamp,
		GasLimit:    p.Block.GasLimit,
	}
	if ctx.GasLimit == 0 {
		ctx.GasLimit = 30_000_000
	}
	var err error
	if ctx.Coinbase, err = parseAddress(p.Block.Coinbase); err != nil {
		return ctx, fmt.Errorf("%w: coinbase: %v", ErrInvalidPrestate, err)
	}
	if ctx.Difficulty, err = parseWord(p.Block.Difficulty); err != nil {
		return ctx, fmt.Errorf("%w: difficulty: %v", ErrInvalidPrestate, err)
	}
	if ctx.BaseFee, err = parseWord(p.Block.BaseFee); err != nil {
		return ctx, fmt.Errorf("%w: baseFee: %v", ErrInvalidPrestate, err)
	}
	return ctx, nil
}

// ChainConfig returns the chain parameters, chain id 1 by default.
func (p *Prestate) ChainConfig() vm.ChainConfig {
	if p.Block.ChainID == 0 {
		return vm.ChainConfig{ChainID: 1}
	}
	return vm.ChainConfig{ChainID: p.Block.ChainID}
}

// Apply writes the accounts, attestations and block hashes into store.
func (p *Prestate) Apply(store *state.Store) error {
	hashes := make(state.BlockHashMap, len(p.Block.Hashes))
	for num, h := range p.Block.Hashes {
		n, err := strconv.ParseUint(num, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: block hash number %q", ErrInvalidPrestate, num)
		}
		hashes[n] = types.HexToHash(h)
	}
	store.SetBlockHashSource(hashes)

	for hexAddr, acc := range p.Accounts {
		addr, err := parseAddress(hexAddr)
		if err != nil {
			return fmt.Errorf("%w: account %q: %v", ErrInvalidPrestate, hexAddr, err)
		}
		if err := applyAccount(store, addr, acc); err != nil {
			return fmt.Errorf("%w: account %s: %v", ErrInvalidPrestate, addr.Hex(), err)
		}
	}

	for i, ac := range p.Attestations {
		a, err := ac.attestation()
		if err != nil {
			return fmt.Errorf("%w: attestation %d: %v", ErrInvalidPrestate, i, err)
		}
		if err := store.PutAttestation(a.Subject, a); err != nil {
			return err
		}
	}
	return nil
}

func applyAccount(store *state.Store, addr types.Address, acc AccountConfig) error {
	balance, err := parseWord(acc.Balance)
	if err != nil {
		return fmt.Errorf("balance: %v", err)
	}
	account := types.NewAccount()
	account.Balance = balance
	account.Nonce = acc.Nonce
	if err := store.PutAccount(addr, account); err != nil {
		return err
	}
	if acc.Code != "" {
		code, err := hexutil.Decode(acc.Code)
		if err != nil {
			return fmt.Errorf("code: %v", err)
		}
		if err := store.PutCode(addr, code); err != nil {
			return err
		}
	}
	for k, v := range acc.Storage {
		key, err := parseWord(k)
		if err != nil {
			return fmt.Errorf("storage key %q: %v", k, err)
		}
		val, err := parseWord(v)
		if err != nil {
			return fmt.Errorf("storage value %q: %v", v, err)
		}
		slot := types.ContractKey(types.WordToHash(key))
		if err := store.PutStorage(addr, slot, types.TrimLeftZeroes(types.WordToBytes(val))); err != nil {
			return err
		}
	}
	if acc.Verification != "" {
		contract, err := parseAddress(acc.Verification)
		if err != nil {
			return fmt.Errorf("verification: %v", err)
		}
		if err := store.PutVerificationContract(addr, contract); err != nil {
			return err
		}
	}
	return nil
}

func (c AttestationConfig) attestation() (*types.Attestation, error) {
	a := &types.Attestation{
		Nonce:        c.Nonce,
		Jurisdiction: c.Jurisdiction,
		Effective:    c.Effective,
		Expiry:       c.Expiry,
		Revokes:      c.Revokes,
	}
	var err error
	if a.Subject, err = parseAddress(c.Subject); err != nil {
		return nil, fmt.Errorf("subject: %v", err)
	}
	if a.Subject.IsZero() {
		return nil, types.ErrAttestationNoSubject
	}
	if a.TrustAnchor, err = parseAddress(c.TrustAnchor); err != nil {
		return nil, fmt.Errorf("trustAnchor: %v", err)
	}
	if a.Replacement, err = parseAddress(c.Replacement); err != nil {
		return nil, fmt.Errorf("replacement: %v", err)
	}
	if c.Payload != "" {
		if a.Payload, err = hexutil.Decode(c.Payload); err != nil {
			return nil, fmt.Errorf("payload: %v", err)
		}
	}
	return a, nil
}

// parseWord parses a decimal or 0x-prefixed hex number of at most 256
// bits. The empty string is zero.
func parseWord(s string) (*uint256.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return new(uint256.Int), nil
	}
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		digits := strings.TrimLeft(s[2:], "0")
		if len(digits) > 64 {
			return nil, fmt.Errorf("hex number %q exceeds 256 bits", s)
		}
		if digits == "" {
			return new(uint256.Int), nil
		}
		return uint256.FromHex("0x" + digits)
	}
	return uint256.FromDecimal(s)
}

// parseAddress parses a 0x-prefixed address. The empty string is the
// zero address.
func parseAddress(s string) (types.Address, error) {
	if s == "" {
		return types.Address{}, nil
	}
	b, err := hexutil.Decode(s)
	if err != nil {
		return types.Address{}, err
	}
	if len(b) != types.AddressLength {
		return types.Address{}, fmt.Errorf("address %q is %d bytes", s, len(b))
	}
	return types.BytesToAddress(b), nil
}
