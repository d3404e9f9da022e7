package types

import (
	"errors"
	"fmt"

	"github.com/tonlite/tonlite/cell"
	"github.com/tonlite/tonlite/libs/bytes"
)

// ErrAccountNotActive covers both "no such account" and "account exists but
// is empty/frozen": the wire encoding does not distinguish them (an absent
// record and an account_none record look the same to a caller), and this
// client keeps that conflation.
var ErrAccountNotActive = errors.New("account is empty or not active")

// AccountStats describes the most recent transaction recorded for an
// account as of the block its proof was checked against. It is derived
// from the proven shard state, never from the account record itself.
type AccountStats struct {
	LastTransactionLT   uint64
	LastTransactionHash bytes.HexBytes
	GenLT               uint64
	GenUtime            uint32
}

// Account is the raw committed account record (balance, code, data,
// status). The record is opaque to this client: it is handed to the caller
// by value only after the state proof has confirmed it is the one
// committed in the pinned block.
type Account struct {
	// Raw is the wire form exactly as returned by the server.
	Raw []byte

	// Root is the decoded cell tree of Raw.
	Root *cell.Cell
}

// DecodeAccount interprets the account bytes of a state response. Anything
// that is not a live account record fails with ErrAccountNotActive.
func DecodeAccount(raw []byte) (*Account, error) {
	if len(raw) == 0 {
		return nil, ErrAccountNotActive
	}

	root, err := cell.FromBOC(raw)
	if err != nil {
		return nil, fmt.Errorf("account state: %w", err)
	}

	s, err := root.BeginParse()
	if err != nil {
		return nil, fmt.Errorf("account state: %w", err)
	}

	// account$1 is a live record, account_none$0 is not
	live, err := s.LoadBit()
	if err != nil {
		return nil, fmt.Errorf("account state: %w", err)
	}
	if !live {
		return nil, ErrAccountNotActive
	}

	return &Account{Raw: raw, Root: root}, nil
}
