package imapfs

import (
	"errors"
	"io"
	"testing"

	"github.com/nhle/imapfs/internal/mailbox"
)

// stubIter yields fixed messages, then a terminal error.
type stubIter struct {
	msgs     []*mailbox.Message
	err      error
	closed   bool
	closeErr error
}

func (it *stubIter) Next() (*mailbox.Message, error) {
	if len(it.msgs) == 0 {
		if it.err != nil {
			return nil, it.err
		}
		return nil, io.EOF
	}
	msg := it.msgs[0]
	it.msgs = it.msgs[1:]
	return msg, nil
}

func (it *stubIter) Close() error {
	it.closed = true
	return it.closeErr
}

func TestMessageCursorEmpty(t *testing.T) {
	iter := &stubIter{}

	if _, err := newMessageCursor(iter); err != errNoMessages {
		t.Fatalf("cursor over empty iterator: %v, want errNoMessages", err)
	}
	if !iter.closed {
		t.Error("failed probe should close the iterator")
	}
}

func TestMessageCursorProbeError(t *testing.T) {
	fetchErr := errors.New("fetch broke")
	iter := &stubIter{err: fetchErr}

	if _, err := newMessageCursor(iter); !errors.Is(err, fetchErr) {
		t.Fatalf("probe error = %v, want the fetch error", err)
	}
	if !iter.closed {
		t.Error("failed probe should close the iterator")
	}
}

func TestMessageCursorReplaysProbedMessage(t *testing.T) {
	iter := &stubIter{msgs: []*mailbox.Message{
		{UID: 1}, {UID: 2}, {UID: 3},
	}}

	cursor, err := newMessageCursor(iter)
	if err != nil {
		t.Fatalf("creating cursor: %v", err)
	}

	var uids []uint32
	for {
		msg, err := cursor.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		uids = append(uids, msg.UID)
	}

	if len(uids) != 3 || uids[0] != 1 || uids[1] != 2 || uids[2] != 3 {
		t.Fatalf("cursor yielded %v, want [1 2 3]", uids)
	}
}

func TestMessageCursorClosePropagates(t *testing.T) {
	closeErr := errors.New("close broke")
	iter := &stubIter{
		msgs:     []*mailbox.Message{{UID: 1}},
		closeErr: closeErr,
	}

	cursor, err := newMessageCursor(iter)
	if err != nil {
		t.Fatalf("creating cursor: %v", err)
	}
	if err := cursor.Close(); !errors.Is(err, closeErr) {
		t.Fatalf("close = %v, want the iterator's error", err)
	}
}
