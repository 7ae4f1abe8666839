package state

import (
	"sort"

	"github.com/google/btree"

	"github.com/eth2030/shyftvm/core/types"
)

// Flush writes the transaction cache to the database and returns the new
// state root. Storage partitions are committed in ascending address order
// and only for accounts whose storage was written; each account's storage
// root is refreshed before the account itself is written. The cache is
// empty afterwards.
func (s *Store) Flush() (types.Hash, error) {
	if len(s.layers) != 1 {
		return types.Hash{}, ErrPendingCheckpoint
	}
	base := s.layers[0]

	// Deleted or recreated accounts lose their persisted storage first.
	for _, addr := range sortedAddresses(base.wiped) {
		if err := s.db.DeleteAccount(addr); err != nil {
			return types.Hash{}, ioError("delete account", err)
		}
	}
	for hash, code := range base.code {
		if err := s.db.WriteCode(hash, code); err != nil {
			return types.Hash{}, ioError("write code", err)
		}
	}

	dirty := btree.NewG[types.Address](16, types.Address.Less)
	for addr := range base.storage {
		dirty.ReplaceOrInsert(addr)
	}
	var err error
	dirty.Ascend(func(addr types.Address) bool {
		err = s.commitStorage(base, addr)
		return err == nil
	})
	if err != nil {
		return types.Hash{}, err
	}

	accounts := make(map[types.Address]struct{}, len(base.accounts))
	for addr := range base.accounts {
		accounts[addr] = struct{}{}
	}
	for _, addr := range sortedAddresses(accounts) {
		e := base.accounts[addr]
		if e.deleted {
			err = s.db.DeleteAccount(addr)
		} else {
			err = s.db.WriteAccount(addr, e.account)
		}
		if err != nil {
			return types.Hash{}, ioError("write account", err)
		}
	}

	root, err := s.db.StateRoot()
	if err != nil {
		return types.Hash{}, ioError("state root", err)
	}
	s.log.Debug("flushed state", "root", root.Hex(), "accounts", len(base.accounts), "storage", dirty.Len())
	s.layers[0] = newLayer()
	flushCounter.Inc()
	return root, nil
}

// commitStorage writes addr's dirty slots and stores the resulting root in
// the cached account.
func (s *Store) commitStorage(base *layer, addr types.Address) error {
	for key, value := range base.storage[addr] {
		if err := s.db.WriteStorage(addr, key, value); err != nil {
			return ioError("write storage", err)
		}
	}
	root, err := s.db.StorageRoot(addr)
	if err != nil {
		return ioError("storage root", err)
	}
	e, ok := base.accounts[addr]
	if ok && e.deleted {
		return nil
	}
	var acc types.Account
	if ok {
		acc = e.account
	} else {
		prev, err := s.db.ReadAccount(addr)
		if err != nil {
			return ioError("read account", err)
		}
		if prev == nil {
			acc = types.NewAccount()
		} else {
			acc = *prev
		}
	}
	acc.Root = root
	base.setAccount(addr, acc)
	return nil
}

func sortedAddresses(set map[types.Address]struct{}) []types.Address {
	out := make([]types.Address, 0, len(set))
	for addr := range set {
		out = append(out, addr)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}
