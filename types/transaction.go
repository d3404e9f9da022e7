package types

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/tonlite/tonlite/cell"
	"github.com/tonlite/tonlite/libs/bytes"
)

// ErrMalformedTransaction wraps every structural failure while decoding a
// transaction record.
var ErrMalformedTransaction = errors.New("malformed transaction")

// AccountStatus is an account's lifecycle state as recorded on chain.
type AccountStatus uint8

const (
	AccountStatusUninit AccountStatus = iota
	AccountStatusFrozen
	AccountStatusActive
	AccountStatusNonExist
)

func (st AccountStatus) String() string {
	switch st {
	case AccountStatusUninit:
		return "uninit"
	case AccountStatusFrozen:
		return "frozen"
	case AccountStatusActive:
		return "active"
	case AccountStatusNonExist:
		return "nonexist"
	default:
		return "unknown"
	}
}

// Transaction is one decoded transaction record. Hash is the canonical
// representation hash of the record's cell, which is what the chain links
// transactions by (PrevTxHash of the next record points at it).
type Transaction struct {
	Hash bytes.HexBytes

	AccountAddr bytes.HexBytes
	LT          uint64
	PrevTxHash  bytes.HexBytes
	PrevTxLT    uint64
	Now         uint32
	OutMsgCount uint16
	OrigStatus  AccountStatus
	EndStatus   AccountStatus
	TotalFees   *uint256.Int
}

func (tx *Transaction) String() string {
	return fmt.Sprintf("Transaction{lt=%d hash=%s prev_lt=%d fees=%s}",
		tx.LT, tx.Hash.String(), tx.PrevTxLT, tx.TotalFees.Dec())
}

// DecodeTransaction reads a transaction$0111 record from its cell.
func DecodeTransaction(c *cell.Cell) (*Transaction, error) {
	s, err := c.BeginParse()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedTransaction, err)
	}

	tag, err := s.LoadUint(4)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedTransaction, err)
	}
	if tag != 0b0111 {
		return nil, fmt.Errorf("%w: unexpected tag %#x", ErrMalformedTransaction, tag)
	}

	tx := &Transaction{Hash: c.Hash()}
	if err := decodeTransactionFields(s, tx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedTransaction, err)
	}
	return tx, nil
}

func decodeTransactionFields(s *cell.Slice, tx *Transaction) error {
	addr, err := s.LoadSlice(256)
	if err != nil {
		return err
	}
	tx.AccountAddr = addr

	if tx.LT, err = s.LoadUint(64); err != nil {
		return err
	}

	prevHash, err := s.LoadSlice(256)
	if err != nil {
		return err
	}
	tx.PrevTxHash = prevHash

	if tx.PrevTxLT, err = s.LoadUint(64); err != nil {
		return err
	}

	now, err := s.LoadUint(32)
	if err != nil {
		return err
	}
	tx.Now = uint32(now)

	outMsgs, err := s.LoadUint(15)
	if err != nil {
		return err
	}
	tx.OutMsgCount = uint16(outMsgs)

	orig, err := s.LoadUint(2)
	if err != nil {
		return err
	}
	end, err := s.LoadUint(2)
	if err != nil {
		return err
	}
	tx.OrigStatus = AccountStatus(orig)
	tx.EndStatus = AccountStatus(end)

	// ^[ in_msg out_msgs ] - message payloads are not this client's concern
	if err := s.SkipRef(); err != nil {
		return err
	}

	if tx.TotalFees, err = s.LoadCoins(); err != nil {
		return err
	}
	// other:ExtraCurrencyCollection
	hasExtra, err := s.LoadBit()
	if err != nil {
		return err
	}
	if hasExtra {
		if err := s.SkipRef(); err != nil {
			return err
		}
	}

	return nil
}
