package testutil

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/imapfs/internal/mailbox"
)

// FakeSession is an in-memory mailbox.Session for tests. Folders hold
// messages keyed by UID. The session records every call it serves so
// tests can assert on the traffic an operation generated.
type FakeSession struct {
	folders  map[string]*FakeFolder
	selected string
	closed   bool

	// Commands records every session call in order, e.g. "select INBOX",
	// "search", "fetch 3,4".
	Commands []string

	// LastQuery holds the criteria of the most recent Search call.
	LastQuery mailbox.Query

	// LastFetch holds the options of the most recent Fetch call.
	LastFetch mailbox.FetchOptions
}

// FakeFolder is one in-memory folder with its messages.
type FakeFolder struct {
	Flags    []string
	Messages map[uint32]*mailbox.Message
}

var _ mailbox.Session = (*FakeSession)(nil)

// NewFakeSession creates a fake session seeded with an empty INBOX and
// closes it when the test completes.
func NewFakeSession(t *testing.T) *FakeSession {
	t.Helper()

	s := &FakeSession{
		folders: map[string]*FakeFolder{
			"INBOX": {Messages: map[uint32]*mailbox.Message{}},
		},
	}

	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing fake session: %v", err)
		}
	})

	return s
}

// AddFolder creates a folder, optionally with attribute flags.
func (s *FakeSession) AddFolder(name string, flags ...string) *FakeFolder {
	folder := &FakeFolder{
		Flags:    flags,
		Messages: map[uint32]*mailbox.Message{},
	}
	s.folders[name] = folder
	return folder
}

// AddMessage stores a message in a folder, creating the folder when
// needed.
func (s *FakeSession) AddMessage(folderName string, uid uint32, date time.Time, attachments ...mailbox.Attachment) *mailbox.Message {
	folder, ok := s.folders[folderName]
	if !ok {
		folder = s.AddFolder(folderName)
	}

	msg := &mailbox.Message{
		UID:         uid,
		Subject:     fmt.Sprintf("Message %d", uid),
		From:        "sender@example.com",
		Date:        date,
		Size:        int64(2048 + int(uid)),
		Attachments: attachments,
	}
	folder.Messages[uid] = msg
	return msg
}

// Count returns how many recorded commands start with prefix.
func (s *FakeSession) Count(prefix string) int {
	n := 0
	for _, cmd := range s.Commands {
		if strings.HasPrefix(cmd, prefix) {
			n++
		}
	}
	return n
}

// ListFolders returns the folders whose names start with prefix, in
// sorted order.
func (s *FakeSession) ListFolders(_ context.Context, prefix string) ([]mailbox.Folder, error) {
	s.Commands = append(s.Commands, "list "+prefix)

	var names []string
	for name := range s.folders {
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	slices.Sort(names)

	folders := make([]mailbox.Folder, 0, len(names))
	for _, name := range names {
		folders = append(folders, mailbox.Folder{
			Name:  name,
			Delim: '/',
			Flags: s.folders[name].Flags,
		})
	}
	return folders, nil
}

// Select makes name the active folder. The previous selection is
// forgotten first, so a failed select leaves nothing selected.
func (s *FakeSession) Select(_ context.Context, name string) error {
	s.Commands = append(s.Commands, "select "+name)
	s.selected = ""

	folder, ok := s.folders[name]
	if !ok {
		return fmt.Errorf("selecting folder %s: no such folder", name)
	}
	for _, flag := range folder.Flags {
		if flag == `\Noselect` {
			return fmt.Errorf("selecting folder %s: folder is not selectable", name)
		}
	}

	s.selected = name
	return nil
}

// SelectedFolder returns the active folder, or "" when none.
func (s *FakeSession) SelectedFolder() string {
	return s.selected
}

// Search enumerates message UIDs in the selected folder, honoring the
// UID, Since, and Sort criteria.
func (s *FakeSession) Search(_ context.Context, q mailbox.Query) ([]uint32, error) {
	s.Commands = append(s.Commands, "search")
	s.LastQuery = q

	folder, err := s.selectedFolder()
	if err != nil {
		return nil, err
	}

	var msgs []*mailbox.Message
	for uid, msg := range folder.Messages {
		if q.UID != 0 && uid != q.UID {
			continue
		}
		if !q.Since.IsZero() && msg.Date.Before(q.Since) {
			continue
		}
		msgs = append(msgs, msg)
	}

	if err := sortMessages(msgs, q.Sort); err != nil {
		return nil, err
	}

	uids := make([]uint32, len(msgs))
	for i, msg := range msgs {
		uids[i] = msg.UID
	}
	return uids, nil
}

// sortMessages orders msgs by UID, or by the given sort keys when any
// are present. Keys apply in significance order, so the stable sorts
// run back to front.
func sortMessages(msgs []*mailbox.Message, keys []string) error {
	if len(keys) == 0 {
		slices.SortFunc(msgs, func(a, b *mailbox.Message) int {
			return cmp.Compare(a.UID, b.UID)
		})
		return nil
	}

	for i := len(keys) - 1; i >= 0; i-- {
		reverse := false
		name := strings.ToLower(keys[i])
		if rest, ok := strings.CutPrefix(name, "reverse "); ok {
			reverse = true
			name = rest
		}

		var compare func(a, b *mailbox.Message) int
		switch name {
		case "date":
			compare = func(a, b *mailbox.Message) int { return a.Date.Compare(b.Date) }
		case "size":
			compare = func(a, b *mailbox.Message) int { return cmp.Compare(a.Size, b.Size) }
		default:
			return fmt.Errorf("unsupported sort key %q", keys[i])
		}

		if reverse {
			inner := compare
			compare = func(a, b *mailbox.Message) int { return -inner(a, b) }
		}
		slices.SortStableFunc(msgs, compare)
	}
	return nil
}

// Fetch returns the requested messages in order. HeadersOnly strips
// attachments from the returned copies; MarkSeen adds the seen flag to
// the stored message, the way a non-peek body fetch does.
func (s *FakeSession) Fetch(_ context.Context, uids []uint32, opts mailbox.FetchOptions) (mailbox.MessageIter, error) {
	parts := make([]string, len(uids))
	for i, uid := range uids {
		parts[i] = fmt.Sprintf("%d", uid)
	}
	s.Commands = append(s.Commands, "fetch "+strings.Join(parts, ","))
	s.LastFetch = opts

	folder, err := s.selectedFolder()
	if err != nil {
		return nil, err
	}

	var msgs []*mailbox.Message
	for _, uid := range uids {
		stored, ok := folder.Messages[uid]
		if !ok {
			continue
		}

		if !opts.HeadersOnly && opts.MarkSeen && !slices.Contains(stored.Flags, `\Seen`) {
			stored.Flags = append(stored.Flags, `\Seen`)
		}

		msg := *stored
		if opts.HeadersOnly {
			msg.Attachments = nil
		}
		msgs = append(msgs, &msg)
	}

	return &fakeIter{msgs: msgs}, nil
}

// CreateFolder creates an empty folder.
func (s *FakeSession) CreateFolder(_ context.Context, name string) error {
	s.Commands = append(s.Commands, "create "+name)
	if _, ok := s.folders[name]; ok {
		return fmt.Errorf("creating folder %s: folder exists", name)
	}
	s.AddFolder(name)
	return nil
}

// DeleteFolder removes a folder. Deleting the selected folder clears
// the selection.
func (s *FakeSession) DeleteFolder(_ context.Context, name string) error {
	s.Commands = append(s.Commands, "delete "+name)
	if _, ok := s.folders[name]; !ok {
		return fmt.Errorf("deleting folder %s: no such folder", name)
	}
	delete(s.folders, name)
	if s.selected == name {
		s.selected = ""
	}
	return nil
}

// Move moves the given UIDs from the selected folder into dest.
func (s *FakeSession) Move(_ context.Context, uids []uint32, dest string) error {
	s.Commands = append(s.Commands, "move "+dest)

	folder, err := s.selectedFolder()
	if err != nil {
		return err
	}
	target, ok := s.folders[dest]
	if !ok {
		return fmt.Errorf("moving to %s: no such folder", dest)
	}

	for _, uid := range uids {
		msg, ok := folder.Messages[uid]
		if !ok {
			return fmt.Errorf("moving UID %d: no such message", uid)
		}
		delete(folder.Messages, uid)
		target.Messages[uid] = msg
	}
	return nil
}

// Close marks the session closed. Closing twice is an error.
func (s *FakeSession) Close() error {
	if s.closed {
		return fmt.Errorf("session already closed")
	}
	s.closed = true
	return nil
}

func (s *FakeSession) selectedFolder() (*FakeFolder, error) {
	if s.selected == "" {
		return nil, fmt.Errorf("no folder selected")
	}
	folder, ok := s.folders[s.selected]
	if !ok {
		return nil, fmt.Errorf("selected folder %s is gone", s.selected)
	}
	return folder, nil
}

// fakeIter yields a fixed message slice.
type fakeIter struct {
	msgs []*mailbox.Message
}

func (it *fakeIter) Next() (*mailbox.Message, error) {
	if len(it.msgs) == 0 {
		return nil, io.EOF
	}
	msg := it.msgs[0]
	it.msgs = it.msgs[1:]
	return msg, nil
}

func (it *fakeIter) Close() error {
	return nil
}

// UniqueFolderName returns a folder name that cannot collide across
// test runs against shared accounts.
func UniqueFolderName() string {
	return "imapfs-test-" + uuid.New().String()
}

// CSVAttachment builds a small CSV attachment with a deterministic
// payload.
func CSVAttachment(filename string) mailbox.Attachment {
	var b strings.Builder
	b.WriteString("id,name,value\n")
	for i := 1; i <= 8; i++ {
		fmt.Fprintf(&b, "%d,row-%02d,%04d\n", i, i, i*7)
	}

	data := []byte(b.String())
	return mailbox.Attachment{
		Filename: filename,
		MIMEType: "text/csv",
		Size:     int64(len(data)),
		Data:     data,
	}
}
