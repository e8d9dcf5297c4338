package imapfs

import (
	"errors"
	"io"

	"github.com/nhle/imapfs/internal/mailbox"
)

// errNoMessages reports a search that matched nothing. It stays
// internal: path operations translate it into their not-found error.
var errNoMessages = errors.New("no matching messages")

// messageCursor wraps a MessageIter with one element of lookahead. The
// constructor consumes exactly one message eagerly, so emptiness is
// known the moment the cursor exists; the consumed message is replayed
// before the rest of the sequence.
type messageCursor struct {
	iter   mailbox.MessageIter
	peeked *mailbox.Message
}

// newMessageCursor probes the iterator for its first message. An empty
// sequence fails with errNoMessages; either way a probe failure closes
// the iterator.
func newMessageCursor(iter mailbox.MessageIter) (*messageCursor, error) {
	first, err := iter.Next()
	if err == io.EOF {
		_ = iter.Close()
		return nil, errNoMessages
	}
	if err != nil {
		_ = iter.Close()
		return nil, err
	}
	return &messageCursor{iter: iter, peeked: first}, nil
}

// Next returns the next message, or io.EOF once the sequence is
// drained.
func (c *messageCursor) Next() (*mailbox.Message, error) {
	if c.peeked != nil {
		msg := c.peeked
		c.peeked = nil
		return msg, nil
	}
	return c.iter.Next()
}

// Close releases the underlying iterator.
func (c *messageCursor) Close() error {
	return c.iter.Close()
}
