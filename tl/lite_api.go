package tl

import (
	"fmt"

	"github.com/tonlite/tonlite/types"
)

// Constructor ids, derived from the published scheme declarations.
var (
	idQuery           = CRC("liteServer.query data:bytes = Object")
	idError           = CRC("liteServer.error code:int message:string = liteServer.Error")
	idGetMasterchain  = CRC("liteServer.getMasterchainInfo = liteServer.MasterchainInfo")
	idMasterchainInfo = CRC("liteServer.masterchainInfo last:tonNode.blockIdExt state_root_hash:int256 init:tonNode.zeroStateIdExt = liteServer.MasterchainInfo")
	idGetAccountState = CRC("liteServer.getAccountState id:tonNode.blockIdExt account:liteServer.accountId = liteServer.AccountState")
	idAccountState    = CRC("liteServer.accountState id:tonNode.blockIdExt shardblk:tonNode.blockIdExt shard_proof:bytes proof:bytes state:bytes = liteServer.AccountState")
	idGetTransactions = CRC("liteServer.getTransactions count:# account:liteServer.accountId lt:long hash:int256 = liteServer.TransactionList")
	idTransactionList = CRC("liteServer.transactionList ids:(vector tonNode.blockIdExt) transactions:bytes = liteServer.TransactionList")
	idSendMessage     = CRC("liteServer.sendMessage body:bytes = liteServer.SendMsgStatus")
	idSendMsgStatus   = CRC("liteServer.sendMsgStatus status:int = liteServer.SendMsgStatus")
)

// idVector is the boxed builtin vector id; its declaration predates the
// scheme-string convention, so it is spelled out.
const idVector = 0x1cb5c415

// blockIDWireSize is the serialized size of a block id: workchain,
// shard, seqno, root hash and file hash.
const blockIDWireSize = 4 + 8 + 4 + 32 + 32

// Query is the generic envelope every lite-server function travels in.
type Query struct {
	Data []byte
}

func (q Query) MarshalTL(w *Writer) {
	w.WriteUint32(idQuery)
	w.WriteBytes(q.Data)
}

func (q *Query) ConstructorID() uint32 { return idQuery }

func (q *Query) UnmarshalTL(r *Reader) error {
	data, err := r.ReadBytes()
	if err != nil {
		return err
	}
	q.Data = data
	return nil
}

// Error is the server-reported failure record. A NotReady code is routine
// (the server has not caught up to the requested block) and is classified
// by the executor, not treated as a hard failure.
type Error struct {
	Code    int32
	Message string
}

func (e *Error) ConstructorID() uint32 { return idError }

func (e *Error) UnmarshalTL(r *Reader) error {
	code, err := r.ReadInt32()
	if err != nil {
		return err
	}
	msg, err := r.ReadBytes()
	if err != nil {
		return err
	}
	e.Code = code
	e.Message = string(msg)
	return nil
}

func (e *Error) Error() string {
	return fmt.Sprintf("lite-server error %d: %s", e.Code, e.Message)
}

func (e *Error) MarshalTL(w *Writer) {
	w.WriteUint32(idError)
	w.WriteInt32(e.Code)
	w.WriteBytes([]byte(e.Message))
}

func writeBlockID(w *Writer, id types.BlockID) {
	w.WriteInt32(id.Workchain)
	w.WriteUint64(id.Shard)
	w.WriteUint32(id.SeqNo)
	w.WriteInt256(id.RootHash)
	w.WriteInt256(id.FileHash)
}

func readBlockID(r *Reader) (types.BlockID, error) {
	var id types.BlockID
	var err error
	if id.Workchain, err = r.ReadInt32(); err != nil {
		return id, err
	}
	if id.Shard, err = r.ReadUint64(); err != nil {
		return id, err
	}
	seqNo, err := r.ReadUint32()
	if err != nil {
		return id, err
	}
	id.SeqNo = seqNo
	if id.RootHash, err = r.ReadInt256(); err != nil {
		return id, err
	}
	if id.FileHash, err = r.ReadInt256(); err != nil {
		return id, err
	}
	return id, nil
}

func writeAccountID(w *Writer, addr types.Address) {
	w.WriteInt32(addr.Workchain)
	w.WriteInt256(addr.ID)
}

func readAccountID(r *Reader) (types.Address, error) {
	var addr types.Address
	var err error
	if addr.Workchain, err = r.ReadInt32(); err != nil {
		return addr, err
	}
	if addr.ID, err = r.ReadInt256(); err != nil {
		return addr, err
	}
	return addr, nil
}

// GetMasterchainInfo asks for the server's current chain head.
type GetMasterchainInfo struct{}

func (GetMasterchainInfo) MarshalTL(w *Writer) {
	w.WriteUint32(idGetMasterchain)
}

func (GetMasterchainInfo) Reply() *MasterchainInfo { return &MasterchainInfo{} }

func (*GetMasterchainInfo) ConstructorID() uint32 { return idGetMasterchain }

func (*GetMasterchainInfo) UnmarshalTL(*Reader) error { return nil }

// MasterchainInfo carries the chain head the server currently knows.
type MasterchainInfo struct {
	Last          types.BlockID
	StateRootHash []byte

	InitWorkchain int32
	InitRootHash  []byte
	InitFileHash  []byte
}

func (m *MasterchainInfo) MarshalTL(w *Writer) {
	w.WriteUint32(idMasterchainInfo)
	writeBlockID(w, m.Last)
	w.WriteInt256(m.StateRootHash)
	w.WriteInt32(m.InitWorkchain)
	w.WriteInt256(m.InitRootHash)
	w.WriteInt256(m.InitFileHash)
}

func (m *MasterchainInfo) ConstructorID() uint32 { return idMasterchainInfo }

func (m *MasterchainInfo) UnmarshalTL(r *Reader) error {
	var err error
	if m.Last, err = readBlockID(r); err != nil {
		return err
	}
	if m.StateRootHash, err = r.ReadInt256(); err != nil {
		return err
	}
	if m.InitWorkchain, err = r.ReadInt32(); err != nil {
		return err
	}
	if m.InitRootHash, err = r.ReadInt256(); err != nil {
		return err
	}
	if m.InitFileHash, err = r.ReadInt256(); err != nil {
		return err
	}
	return nil
}

// GetAccountState asks for one account's record pinned to a block, plus the
// proof linking it to that block's root.
type GetAccountState struct {
	ID      types.BlockID
	Account types.Address
}

func (q GetAccountState) MarshalTL(w *Writer) {
	w.WriteUint32(idGetAccountState)
	writeBlockID(w, q.ID)
	writeAccountID(w, q.Account)
}

func (q GetAccountState) Reply() *AccountState { return &AccountState{} }

func (*GetAccountState) ConstructorID() uint32 { return idGetAccountState }

func (q *GetAccountState) UnmarshalTL(r *Reader) error {
	var err error
	if q.ID, err = readBlockID(r); err != nil {
		return err
	}
	if q.Account, err = readAccountID(r); err != nil {
		return err
	}
	return nil
}

// AccountState is the server's answer: the raw account record plus proof
// material. Nothing in it may be trusted before verification.
type AccountState struct {
	ID         types.BlockID
	ShardBlock types.BlockID
	ShardProof []byte
	Proof      []byte
	State      []byte
}

func (a *AccountState) MarshalTL(w *Writer) {
	w.WriteUint32(idAccountState)
	writeBlockID(w, a.ID)
	writeBlockID(w, a.ShardBlock)
	w.WriteBytes(a.ShardProof)
	w.WriteBytes(a.Proof)
	w.WriteBytes(a.State)
}

func (a *AccountState) ConstructorID() uint32 { return idAccountState }

func (a *AccountState) UnmarshalTL(r *Reader) error {
	var err error
	if a.ID, err = readBlockID(r); err != nil {
		return err
	}
	if a.ShardBlock, err = readBlockID(r); err != nil {
		return err
	}
	if a.ShardProof, err = r.ReadBytes(); err != nil {
		return err
	}
	if a.Proof, err = r.ReadBytes(); err != nil {
		return err
	}
	if a.State, err = r.ReadBytes(); err != nil {
		return err
	}
	return nil
}

// GetTransactions asks for up to Count transaction records walking back
// from the (LT, Hash) anchor.
type GetTransactions struct {
	Count   uint32
	Account types.Address
	LT      uint64
	Hash    []byte
}

func (q GetTransactions) MarshalTL(w *Writer) {
	w.WriteUint32(idGetTransactions)
	w.WriteUint32(q.Count)
	writeAccountID(w, q.Account)
	w.WriteUint64(q.LT)
	w.WriteInt256(q.Hash)
}

func (q GetTransactions) Reply() *TransactionList { return &TransactionList{} }

func (*GetTransactions) ConstructorID() uint32 { return idGetTransactions }

func (q *GetTransactions) UnmarshalTL(r *Reader) error {
	var err error
	if q.Count, err = r.ReadUint32(); err != nil {
		return err
	}
	if q.Account, err = readAccountID(r); err != nil {
		return err
	}
	if q.LT, err = r.ReadUint64(); err != nil {
		return err
	}
	if q.Hash, err = r.ReadInt256(); err != nil {
		return err
	}
	return nil
}

// TransactionList is the raw transaction history slice: the blocks each
// record lives in plus one cell batch with the records, newest first.
type TransactionList struct {
	IDs          []types.BlockID
	Transactions []byte
}

func (l *TransactionList) MarshalTL(w *Writer) {
	w.WriteUint32(idTransactionList)
	w.WriteUint32(idVector)
	w.WriteUint32(uint32(len(l.IDs)))
	for _, id := range l.IDs {
		writeBlockID(w, id)
	}
	w.WriteBytes(l.Transactions)
}

func (l *TransactionList) ConstructorID() uint32 { return idTransactionList }

func (l *TransactionList) UnmarshalTL(r *Reader) error {
	vec, err := r.ReadUint32()
	if err != nil {
		return err
	}
	if vec != idVector {
		return fmt.Errorf("unexpected vector constructor %#x", vec)
	}
	count, err := r.ReadUint32()
	if err != nil {
		return err
	}
	// each block id occupies blockIDWireSize bytes on the wire, so a count
	// the remaining input cannot hold is rejected before sizing anything
	if uint64(count)*blockIDWireSize > uint64(r.Left()) {
		return ErrTruncated
	}

	l.IDs = make([]types.BlockID, 0, count)
	for i := uint32(0); i < count; i++ {
		id, err := readBlockID(r)
		if err != nil {
			return err
		}
		l.IDs = append(l.IDs, id)
	}

	if l.Transactions, err = r.ReadBytes(); err != nil {
		return err
	}
	return nil
}

// SendMessage relays an externally built message body.
type SendMessage struct {
	Body []byte
}

func (q SendMessage) MarshalTL(w *Writer) {
	w.WriteUint32(idSendMessage)
	w.WriteBytes(q.Body)
}

func (q SendMessage) Reply() *SendMsgStatus { return &SendMsgStatus{} }

func (*SendMessage) ConstructorID() uint32 { return idSendMessage }

func (q *SendMessage) UnmarshalTL(r *Reader) error {
	var err error
	q.Body, err = r.ReadBytes()
	return err
}

// SendMsgStatus acknowledges that the server accepted a message for
// processing; it says nothing about inclusion in a block.
type SendMsgStatus struct {
	Status int32
}

func (s *SendMsgStatus) MarshalTL(w *Writer) {
	w.WriteUint32(idSendMsgStatus)
	w.WriteInt32(s.Status)
}

func (s *SendMsgStatus) ConstructorID() uint32 { return idSendMsgStatus }

func (s *SendMsgStatus) UnmarshalTL(r *Reader) error {
	var err error
	s.Status, err = r.ReadInt32()
	return err
}
