package state

import (
	"bytes"

	"github.com/eth2030/shyftvm/core/types"
)

// accountEntry is a layer's own copy of an account. A deleted entry hides
// the account from every layer below.
type accountEntry struct {
	account types.Account
	deleted bool
}

// layer is one checkpoint level of the overlay cache. It records only what
// changed since the checkpoint was taken; reads fall through to the layer
// below. A nil storage value is a deletion.
type layer struct {
	accounts map[types.Address]*accountEntry
	storage  map[types.Address]map[types.StorageKey][]byte
	wiped    map[types.Address]struct{}
	code     map[types.Hash][]byte
	touched  map[types.Address]struct{}
}

func newLayer() *layer {
	return &layer{
		accounts: make(map[types.Address]*accountEntry),
		storage:  make(map[types.Address]map[types.StorageKey][]byte),
		wiped:    make(map[types.Address]struct{}),
		code:     make(map[types.Hash][]byte),
		touched:  make(map[types.Address]struct{}),
	}
}

func (l *layer) setAccount(addr types.Address, acc types.Account) {
	cpy := acc.Copy()
	cpy.Exists = true
	l.accounts[addr] = &accountEntry{account: cpy}
}

func (l *layer) deleteAccount(addr types.Address) {
	l.accounts[addr] = &accountEntry{deleted: true}
	l.wipeStorage(addr)
}

func (l *layer) wipeStorage(addr types.Address) {
	delete(l.storage, addr)
	l.wiped[addr] = struct{}{}
}

func (l *layer) setStorage(addr types.Address, key types.StorageKey, value []byte) {
	slots := l.storage[addr]
	if slots == nil {
		slots = make(map[types.StorageKey][]byte)
		l.storage[addr] = slots
	}
	if len(value) == 0 {
		slots[key] = nil
		return
	}
	slots[key] = bytes.Clone(value)
}

// mergeInto folds l into parent. Wipes are applied before l's own storage
// writes, which were all made after the wipe.
func (l *layer) mergeInto(parent *layer) {
	for addr := range l.wiped {
		parent.wipeStorage(addr)
	}
	for addr, e := range l.accounts {
		parent.accounts[addr] = e
	}
	for addr, slots := range l.storage {
		for key, value := range slots {
			parent.setStorage(addr, key, value)
		}
	}
	for hash, code := range l.code {
		parent.code[hash] = code
	}
	for addr := range l.touched {
		parent.touched[addr] = struct{}{}
	}
}
