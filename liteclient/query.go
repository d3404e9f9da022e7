package liteclient

import (
	"context"
	"fmt"
	"time"

	"github.com/tonlite/tonlite/tl"
	"github.com/tonlite/tonlite/transport"
)

const (
	// notReadyCode is the server's status for "I have not caught up to
	// the requested block yet".
	notReadyCode = 651

	maxQueryRetries    = 3
	queryRetryInterval = 100 * time.Millisecond
)

// QueryReply separates the two legitimate outcomes of a query: a decoded
// reply, or the server lagging behind the requested view. NotReady is not
// a failure; the caller is expected to retry against an older head.
type QueryReply[R any] struct {
	Data     R
	NotReady bool
}

// performQuery sends one logical request over a checked-out connection and
// classifies the reply. The transient not-ready condition is absorbed here
// with a small fixed retry budget; everything else is returned as a typed
// result.
func performQuery[R tl.Unmarshaler](ctx context.Context, c *Client, conn transport.Conn, req tl.Request[R]) (QueryReply[R], error) {
	var zero QueryReply[R]

	inner, err := tl.Serialize(req)
	if err != nil {
		return zero, fmt.Errorf("%w: %v", ErrFailedToSerialize, err)
	}
	envelope, err := tl.Serialize(tl.Query{Data: inner})
	if err != nil {
		return zero, fmt.Errorf("%w: %v", ErrFailedToSerialize, err)
	}

	retries := 0
	for {
		start := time.Now()
		raw, err := conn.SendRequest(ctx, envelope)
		c.metrics.QueryDurationSeconds.Observe(time.Since(start).Seconds())
		if err != nil {
			c.metrics.Queries.With("outcome", outcomeConnErr).Add(1)
			return zero, ErrConnection{Reason: err}
		}

		reply := req.Reply()
		outcome, srvErr, err := classifyReply(reply, raw)
		if err != nil {
			c.metrics.Queries.With("outcome", outcomeUnknown).Add(1)
			c.logger.Error("unclassifiable reply", "raw", fmt.Sprintf("%x", raw))
			return zero, err
		}

		switch outcome {
		case outcomeData:
			c.metrics.Queries.With("outcome", outcomeData).Add(1)
			return QueryReply[R]{Data: reply}, nil

		case outcomeNotReady:
			if retries < maxQueryRetries {
				retries++
				c.metrics.QueryRetries.Add(1)
				c.logger.Debug("server not ready, retrying",
					"retry", retries, "msg", srvErr.Message)
				select {
				case <-time.After(queryRetryInterval):
				case <-ctx.Done():
					return zero, ErrConnection{Reason: ctx.Err()}
				}
				continue
			}
			c.metrics.Queries.With("outcome", outcomeNotReady).Add(1)
			return QueryReply[R]{NotReady: true}, nil

		default:
			c.metrics.Queries.With("outcome", outcomeServerErr).Add(1)
			return zero, ErrServer{Code: srvErr.Code, Message: srvErr.Message}
		}
	}
}

// classifyReply decodes raw as either the expected reply or a server error
// record. Anything else is an unknown reply.
func classifyReply(reply tl.Unmarshaler, raw []byte) (string, *tl.Error, error) {
	r := tl.NewReader(raw)
	id, err := r.ReadUint32()
	if err != nil {
		return "", nil, ErrUnknownReply{Raw: raw}
	}

	switch id {
	case reply.ConstructorID():
		if err := reply.UnmarshalTL(r); err != nil {
			return "", nil, ErrUnknownReply{Raw: raw}
		}
		return outcomeData, nil, nil

	case (&tl.Error{}).ConstructorID():
		var srvErr tl.Error
		if err := srvErr.UnmarshalTL(r); err != nil {
			return "", nil, ErrUnknownReply{Raw: raw}
		}
		if srvErr.Code == notReadyCode {
			return outcomeNotReady, &srvErr, nil
		}
		return outcomeServerErr, &srvErr, nil

	default:
		return "", nil, ErrUnknownReply{Raw: raw}
	}
}
