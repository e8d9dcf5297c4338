package mailbox

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
)

func TestConfigAddr(t *testing.T) {
	cfg := Config{Host: "imap.example.com", Port: "993"}
	if got := cfg.Addr(); got != "imap.example.com:993" {
		t.Errorf("Addr() = %q", got)
	}
}

func TestFolderHasFlag(t *testing.T) {
	folder := Folder{Name: "Trash", Flags: []string{`\Trash`, `\HasNoChildren`}}
	if !folder.HasFlag(`\Trash`) {
		t.Error("flag lookup missed an existing flag")
	}
	if folder.HasFlag(`\Noselect`) {
		t.Error("flag lookup invented a flag")
	}
}

func TestIsAuthError(t *testing.T) {
	err := &AuthError{Username: "alice", Message: "authentication failed"}

	if !IsAuthError(err) {
		t.Error("direct AuthError not recognized")
	}
	if !IsAuthError(fmt.Errorf("connecting: %w", err)) {
		t.Error("wrapped AuthError not recognized")
	}
	if IsAuthError(errors.New("boom")) {
		t.Error("unrelated error misclassified")
	}
}

func TestParseSortKeys(t *testing.T) {
	criteria, err := parseSortKeys([]string{"date", "Reverse Size", "from"})
	if err != nil {
		t.Fatalf("parsing sort keys: %v", err)
	}
	want := []imapclient.SortCriterion{
		{Key: imapclient.SortKeyDate},
		{Key: imapclient.SortKeySize, Reverse: true},
		{Key: imapclient.SortKeyFrom},
	}
	if len(criteria) != len(want) {
		t.Fatalf("criteria = %v, want %v", criteria, want)
	}
	for i := range want {
		if criteria[i] != want[i] {
			t.Errorf("criteria[%d] = %v, want %v", i, criteria[i], want[i])
		}
	}

	for _, bad := range []string{"flagged", "reverse", "reverse date asc", ""} {
		if _, err := parseSortKeys([]string{bad}); err == nil {
			t.Errorf("parseSortKeys(%q) should fail", bad)
		}
	}
}

func TestChunkUIDs(t *testing.T) {
	uids := []uint32{1, 2, 3, 4, 5}

	if chunks := chunkUIDs(nil, 0); chunks != nil {
		t.Errorf("chunking nothing = %v", chunks)
	}

	// Default: one message per round trip.
	chunks := chunkUIDs(uids, 0)
	if len(chunks) != 5 {
		t.Fatalf("bulk 0 made %d chunks, want 5", len(chunks))
	}
	for i, chunk := range chunks {
		if len(chunk) != 1 || chunk[0] != imap.UID(uids[i]) {
			t.Errorf("chunk[%d] = %v", i, chunk)
		}
	}

	// Everything at once.
	chunks = chunkUIDs(uids, -1)
	if len(chunks) != 1 || len(chunks[0]) != 5 {
		t.Fatalf("bulk -1 chunks = %v", chunks)
	}

	// Fixed-size chunks with a short tail.
	chunks = chunkUIDs(uids, 2)
	if len(chunks) != 3 || len(chunks[0]) != 2 || len(chunks[1]) != 2 || len(chunks[2]) != 1 {
		t.Fatalf("bulk 2 chunks = %v", chunks)
	}
}

func TestParseAttachments(t *testing.T) {
	raw := strings.Join([]string{
		"From: Alice <alice@example.com>",
		"To: bob@example.com",
		"Subject: quarterly report",
		"MIME-Version: 1.0",
		"Content-Type: multipart/mixed; boundary=frontier",
		"",
		"--frontier",
		"Content-Type: text/plain",
		"",
		"Please find the files attached.",
		"--frontier",
		"Content-Type: text/csv",
		`Content-Disposition: attachment; filename="data_1.csv"`,
		"",
		"id,value",
		"1,7",
		"--frontier",
		"Content-Type: application/pdf",
		`Content-Disposition: attachment; filename="summary.pdf"`,
		"Content-Transfer-Encoding: base64",
		"",
		"JVBERi0xLjQ=",
		"--frontier--",
		"",
	}, "\r\n")

	attachments := parseAttachments([]byte(raw))
	if len(attachments) != 2 {
		t.Fatalf("parsed %d attachments, want 2", len(attachments))
	}

	csv := attachments[0]
	if csv.Filename != "data_1.csv" || csv.MIMEType != "text/csv" {
		t.Errorf("first attachment = %+v", csv)
	}
	if want := "id,value\r\n1,7"; string(csv.Data) != want {
		t.Errorf("csv payload = %q, want %q", csv.Data, want)
	}
	if csv.Size != int64(len(csv.Data)) {
		t.Errorf("csv size = %d, want %d", csv.Size, len(csv.Data))
	}

	pdf := attachments[1]
	if pdf.Filename != "summary.pdf" || pdf.MIMEType != "application/pdf" {
		t.Errorf("second attachment = %+v", pdf)
	}
	// The base64 transfer encoding is decoded on read.
	if !bytes.Equal(pdf.Data, []byte("%PDF-1.4")) {
		t.Errorf("pdf payload = %q", pdf.Data)
	}
}

func TestParseAttachmentsWithoutAny(t *testing.T) {
	raw := strings.Join([]string{
		"From: alice@example.com",
		"Subject: plain",
		"",
		"Just text, no attachments.",
		"",
	}, "\r\n")

	if attachments := parseAttachments([]byte(raw)); len(attachments) != 0 {
		t.Errorf("plain message produced attachments: %v", attachments)
	}
	if attachments := parseAttachments([]byte("not a message")); len(attachments) != 0 {
		t.Errorf("garbage produced attachments: %v", attachments)
	}
}

func TestMessageFromBuffer(t *testing.T) {
	internal := time.Date(2024, 3, 14, 9, 0, 0, 0, time.UTC)
	sent := time.Date(2024, 3, 13, 18, 30, 0, 0, time.UTC)

	buf := &imapclient.FetchMessageBuffer{
		UID:          7,
		RFC822Size:   2048,
		InternalDate: internal,
		Flags:        []imap.Flag{imap.FlagSeen},
		Envelope: &imap.Envelope{
			Subject: "quarterly report",
			Date:    sent,
			From: []imap.Address{
				{Name: "Alice", Mailbox: "alice", Host: "example.com"},
			},
		},
	}

	msg := messageFromBuffer(buf, nil)
	if msg.UID != 7 || msg.Size != 2048 || msg.Subject != "quarterly report" {
		t.Errorf("message = %+v", msg)
	}
	if msg.From != "Alice" {
		t.Errorf("from = %q, want the display name", msg.From)
	}
	if !msg.Date.Equal(sent) {
		t.Errorf("date = %v, want the envelope date", msg.Date)
	}
	if len(msg.Flags) != 1 || msg.Flags[0] != `\Seen` {
		t.Errorf("flags = %v", msg.Flags)
	}
	if msg.Attachments != nil {
		t.Errorf("headers-only message carried attachments: %v", msg.Attachments)
	}
}

func TestMessageFromBufferFallbacks(t *testing.T) {
	internal := time.Date(2024, 3, 14, 9, 0, 0, 0, time.UTC)

	buf := &imapclient.FetchMessageBuffer{
		UID:          9,
		InternalDate: internal,
		Envelope: &imap.Envelope{
			From: []imap.Address{{Mailbox: "bob", Host: "example.com"}},
		},
	}

	msg := messageFromBuffer(buf, nil)
	if msg.From != "bob@example.com" {
		t.Errorf("from = %q, want the bare address", msg.From)
	}
	// A zero envelope date falls back to the internal date.
	if !msg.Date.Equal(internal) {
		t.Errorf("date = %v, want the internal date", msg.Date)
	}

	bare := messageFromBuffer(&imapclient.FetchMessageBuffer{UID: 2, InternalDate: internal}, nil)
	if bare.Subject != "" || bare.From != "" || !bare.Date.Equal(internal) {
		t.Errorf("bare message = %+v", bare)
	}
}

func TestMailboxNameTranslation(t *testing.T) {
	dotted := &Client{delim: '.'}
	if got := dotted.toMailbox("Projects/reports/2024"); got != "Projects.reports.2024" {
		t.Errorf("toMailbox = %q", got)
	}
	if got := dotted.fromMailbox("Projects.reports.2024"); got != "Projects/reports/2024" {
		t.Errorf("fromMailbox = %q", got)
	}

	slash := &Client{delim: '/'}
	if got := slash.toMailbox("Projects/reports"); got != "Projects/reports" {
		t.Errorf("toMailbox with native slash = %q", got)
	}

	unknown := &Client{}
	if got := unknown.toMailbox("Projects/reports"); got != "Projects/reports" {
		t.Errorf("toMailbox with unknown delimiter = %q", got)
	}
}
