package mailbox

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// AuthError indicates that authentication has failed for a mail account.
// It is returned by Dial when the server rejects the login.
type AuthError struct {
	Username string
	Message  string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth error (%s): %s", e.Username, e.Message)
}

// IsAuthError reports whether err (or any error in its chain) is an AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// Folder describes a single mailbox folder. Name always uses "/" as the
// hierarchy separator regardless of the server's native delimiter.
type Folder struct {
	Name string

	// Delim is the server's native hierarchy delimiter.
	Delim rune

	// Flags holds the server-assigned attributes (e.g. `\Trash`,
	// `\Noselect`).
	Flags []string
}

// HasFlag reports whether the folder carries the given attribute flag.
func (f Folder) HasFlag(flag string) bool {
	for _, have := range f.Flags {
		if have == flag {
			return true
		}
	}
	return false
}

// Attachment is a single attachment part of a message.
type Attachment struct {
	Filename string
	MIMEType string

	// Size is the decoded payload length in bytes.
	Size int64

	// Data holds the payload when the message body was fetched.
	Data []byte
}

// Message holds the metadata and, when fetched with a body, the
// attachments of a single message.
type Message struct {
	UID     uint32
	Subject string
	From    string
	Date    time.Time
	Flags   []string

	// Size is the server-reported RFC822 size of the raw message.
	Size int64

	// Attachments is nil when the message was fetched headers-only.
	Attachments []Attachment
}

// Query holds search criteria for enumerating messages in the selected
// folder. The zero value matches every message.
type Query struct {
	// UID restricts the search to a single UID. Zero matches all.
	UID uint32

	// Since restricts the search to messages dated on or after it.
	Since time.Time

	// Charset is the charset the search is issued with.
	Charset string

	// Sort holds server-side sort keys (e.g. "date", "reverse size").
	// Empty means mailbox order.
	Sort []string
}

// FetchOptions controls how message content is downloaded.
type FetchOptions struct {
	// HeadersOnly skips the body download; fetched messages carry no
	// attachments.
	HeadersOnly bool

	// MarkSeen controls whether the fetch sets the seen flag. When
	// false the body is peeked.
	MarkSeen bool

	// Bulk is the round-trip chunking mode: 0 fetches one message per
	// command, -1 everything in a single command, n>0 chunks of n.
	Bulk int
}

// MessageIter lazily yields fetched messages in request order.
type MessageIter interface {
	// Next returns the next message, or io.EOF when the sequence is
	// exhausted.
	Next() (*Message, error)

	// Close releases the iterator and any fetch still in flight.
	Close() error
}

// Session is the narrow mail-store contract the filesystem layer is
// built against. A session is stateful: Select determines the folder
// that Search and Fetch operate on.
type Session interface {
	// ListFolders returns the folders whose names start with prefix,
	// in server order. The empty prefix lists every folder.
	ListFolders(ctx context.Context, prefix string) ([]Folder, error)

	// Select makes name the active folder. Implementations must forget
	// the previously selected folder before attempting, so that a
	// failed select leaves no folder remembered.
	Select(ctx context.Context, name string) error

	// SelectedFolder returns the active folder, or "" when none.
	SelectedFolder() string

	// Search enumerates message UIDs in the selected folder.
	Search(ctx context.Context, q Query) ([]uint32, error)

	// Fetch downloads the given UIDs from the selected folder, in the
	// given order.
	Fetch(ctx context.Context, uids []uint32, opts FetchOptions) (MessageIter, error)

	// CreateFolder creates a folder with the given "/"-separated name.
	CreateFolder(ctx context.Context, name string) error

	// DeleteFolder removes the folder with the given name.
	DeleteFolder(ctx context.Context, name string) error

	// Move moves the given UIDs from the selected folder into dest.
	Move(ctx context.Context, uids []uint32, dest string) error

	// Close logs out and releases the connection.
	Close() error
}
