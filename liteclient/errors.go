package liteclient

import (
	"errors"
	"fmt"
)

var (
	// ErrNotReady means the server has not caught up to any block this
	// client recently considered the chain head. It is returned only
	// after the retry loop and the fallback search over older cached
	// heads are both exhausted.
	ErrNotReady = errors.New("lite-server is not ready for any recent block")

	// ErrAccountNotFound means the proof confirms the account is absent,
	// empty or frozen at the proven block. The wire encoding does not
	// distinguish these cases and neither does this client.
	ErrAccountNotFound = errors.New("account not found at the proven block")

	// ErrInvalidAccountStateProof covers every verification-path
	// inconsistency: wrong root count, proof digest mismatch, malformed
	// shard state, a lookup that leaves the proven region. It is never
	// downgraded or retried.
	ErrInvalidAccountStateProof = errors.New("invalid account state proof")

	// ErrFailedToSerialize means the outgoing request could not be
	// encoded. Deterministic, so never retried.
	ErrFailedToSerialize = errors.New("failed to serialize request")
)

// ErrConnection wraps a transport or pool failure: dialing, checkout
// timeout, a send that died with the connection.
type ErrConnection struct {
	Reason error
}

func (e ErrConnection) Error() string {
	return fmt.Sprintf("connection error: %v", e.Reason)
}

func (e ErrConnection) Unwrap() error { return e.Reason }

// ErrServer is a server-reported failure other than the routine
// not-ready condition, surfaced verbatim.
type ErrServer struct {
	Code    int32
	Message string
}

func (e ErrServer) Error() string {
	return fmt.Sprintf("server error %d: %s", e.Code, e.Message)
}

// ErrUnknownReply is a reply matching no known schema. The raw bytes are
// kept for diagnosis.
type ErrUnknownReply struct {
	Raw []byte
}

func (e ErrUnknownReply) Error() string {
	return fmt.Sprintf("unknown reply of %d bytes", len(e.Raw))
}
