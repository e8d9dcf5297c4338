package mailbox

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/emersion/go-message/mail"
	"go.uber.org/zap"

	"github.com/nhle/imapfs/internal/metrics"
)

// Config holds the connection parameters for an IMAP account.
type Config struct {
	Host     string
	Port     string
	Username string
	Password string
	TLS      bool
}

// Addr returns the host:port dial address.
func (c Config) Addr() string {
	return c.Host + ":" + c.Port
}

// Client is the go-imap backed Session implementation. It is not safe
// for concurrent use: the selected folder is connection state, so
// callers serialize access to it.
type Client struct {
	imap     *imapclient.Client
	logger   *zap.Logger
	delim    rune
	selected string
}

var _ Session = (*Client)(nil)

// Dial connects to the IMAP server, authenticates, and learns the
// server's hierarchy delimiter. Folder names on the Session boundary
// always use "/" regardless of that delimiter. A rejected login is
// reported as an AuthError. The caller owns the returned client and
// must Close it.
func Dial(ctx context.Context, cfg Config, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	addr := cfg.Addr()

	var imapClient *imapclient.Client
	var err error

	if cfg.TLS {
		imapClient, err = imapclient.DialTLS(addr, nil)
	} else {
		imapClient, err = imapclient.DialStartTLS(addr, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("connecting to IMAP %s: %w", addr, err)
	}

	if err := imapClient.Login(cfg.Username, cfg.Password).Wait(); err != nil {
		_ = imapClient.Logout().Wait()
		return nil, &AuthError{
			Username: cfg.Username,
			Message:  fmt.Sprintf("authentication failed: %v", err),
		}
	}

	c := &Client{
		imap:   imapClient,
		logger: logger,
		delim:  '/',
	}

	// LIST "" "" returns nothing but the hierarchy delimiter.
	if mboxes, err := imapClient.List("", "", nil).Collect(); err == nil {
		if len(mboxes) > 0 && mboxes[0].Delim != 0 {
			c.delim = mboxes[0].Delim
		}
	}

	logger.Info("connected to IMAP server",
		zap.String("addr", addr),
		zap.String("username", cfg.Username),
		zap.String("delim", string(c.delim)),
	)

	return c, nil
}

// ListFolders returns the folders whose names start with prefix, using
// a LIST pattern of "prefix*". The empty prefix lists every folder.
func (c *Client) ListFolders(_ context.Context, prefix string) ([]Folder, error) {
	pattern := "*"
	if prefix != "" {
		pattern = c.toMailbox(prefix) + "*"
	}

	start := time.Now()
	mboxes, err := c.imap.List("", pattern, nil).Collect()
	metrics.ObserveCommand("list", start, err)
	if err != nil {
		return nil, fmt.Errorf("listing folders %q: %w", pattern, err)
	}

	folders := make([]Folder, 0, len(mboxes))
	for _, mbox := range mboxes {
		folder := Folder{
			Name:  c.fromMailbox(mbox.Mailbox),
			Delim: mbox.Delim,
		}
		for _, attr := range mbox.Attrs {
			folder.Flags = append(folder.Flags, string(attr))
		}
		folders = append(folders, folder)
	}

	c.logger.Debug("listed folders",
		zap.String("prefix", prefix),
		zap.Int("count", len(folders)),
	)
	return folders, nil
}

// Select makes name the active folder. The previous selection is
// forgotten before the attempt, so a failed select never leaves a
// stale folder remembered.
func (c *Client) Select(_ context.Context, name string) error {
	c.selected = ""

	start := time.Now()
	_, err := c.imap.Select(c.toMailbox(name), nil).Wait()
	metrics.ObserveCommand("select", start, err)
	if err != nil {
		return fmt.Errorf("selecting folder %s: %w", name, err)
	}

	c.selected = name
	c.logger.Debug("selected folder", zap.String("folder", name))
	return nil
}

// SelectedFolder returns the active folder, or "" when none.
func (c *Client) SelectedFolder() string {
	return c.selected
}

// Search enumerates message UIDs in the selected folder. The criteria
// built here are charset-neutral (UID and date only), so q.Charset
// requires no translation on the wire. Sort keys switch the command to
// the SORT extension.
func (c *Client) Search(_ context.Context, q Query) ([]uint32, error) {
	if c.selected == "" {
		return nil, fmt.Errorf("no folder selected")
	}

	criteria := &imap.SearchCriteria{}
	if !q.Since.IsZero() {
		criteria.Since = q.Since
	}
	if q.UID != 0 {
		criteria.UID = []imap.UIDSet{imap.UIDSetNum(imap.UID(q.UID))}
	}

	if len(q.Sort) > 0 {
		return c.sortSearch(criteria, q.Sort)
	}

	start := time.Now()
	searchData, err := c.imap.UIDSearch(criteria, nil).Wait()
	metrics.ObserveCommand("search", start, err)
	if err != nil {
		return nil, fmt.Errorf("searching messages: %w", err)
	}

	uids := searchData.AllUIDs()
	out := make([]uint32, len(uids))
	for i, uid := range uids {
		out[i] = uint32(uid)
	}
	return out, nil
}

// sortSearch issues a UID SORT for servers supporting the extension.
// Unknown sort keys are rejected before anything is sent.
func (c *Client) sortSearch(criteria *imap.SearchCriteria, keys []string) ([]uint32, error) {
	sortCriteria, err := parseSortKeys(keys)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	uids, err := c.imap.UIDSort(&imapclient.SortOptions{
		SearchCriteria: criteria,
		SortCriteria:   sortCriteria,
	}).Wait()
	metrics.ObserveCommand("sort", start, err)
	if err != nil {
		return nil, fmt.Errorf("sorting messages: %w", err)
	}
	return uids, nil
}

var sortKeyNames = map[string]imapclient.SortKey{
	"arrival": imapclient.SortKeyArrival,
	"cc":      imapclient.SortKeyCc,
	"date":    imapclient.SortKeyDate,
	"from":    imapclient.SortKeyFrom,
	"size":    imapclient.SortKeySize,
	"subject": imapclient.SortKeySubject,
	"to":      imapclient.SortKeyTo,
}

// parseSortKeys converts keys like "date" or "reverse size" into SORT
// criteria.
func parseSortKeys(keys []string) ([]imapclient.SortCriterion, error) {
	criteria := make([]imapclient.SortCriterion, 0, len(keys))
	for _, key := range keys {
		fields := strings.Fields(strings.ToLower(key))

		var reverse bool
		if len(fields) == 2 && fields[0] == "reverse" {
			reverse = true
			fields = fields[1:]
		}
		if len(fields) != 1 {
			return nil, fmt.Errorf("unsupported sort key %q", key)
		}

		sortKey, ok := sortKeyNames[fields[0]]
		if !ok {
			return nil, fmt.Errorf("unsupported sort key %q", key)
		}
		criteria = append(criteria, imapclient.SortCriterion{
			Key:     sortKey,
			Reverse: reverse,
		})
	}
	return criteria, nil
}

// Fetch downloads the given UIDs from the selected folder. Messages
// stream back chunk by chunk per opts.Bulk; each chunk is a single
// FETCH command.
func (c *Client) Fetch(ctx context.Context, uids []uint32, opts FetchOptions) (MessageIter, error) {
	if c.selected == "" {
		return nil, fmt.Errorf("no folder selected")
	}

	fetchOpts := &imap.FetchOptions{
		Envelope:     true,
		Flags:        true,
		InternalDate: true,
		RFC822Size:   true,
		UID:          true,
	}

	var bodySection *imap.FetchItemBodySection
	if !opts.HeadersOnly {
		bodySection = &imap.FetchItemBodySection{Peek: !opts.MarkSeen}
		fetchOpts.BodySection = []*imap.FetchItemBodySection{bodySection}
	}

	return &fetchIter{
		ctx:         ctx,
		client:      c,
		pending:     chunkUIDs(uids, opts.Bulk),
		fetchOpts:   fetchOpts,
		bodySection: bodySection,
	}, nil
}

// chunkUIDs splits uids into fetch-command batches: one message per
// command by default, everything at once for a negative bulk value, or
// fixed-size chunks.
func chunkUIDs(uids []uint32, bulk int) [][]imap.UID {
	if len(uids) == 0 {
		return nil
	}

	size := 1
	switch {
	case bulk < 0:
		size = len(uids)
	case bulk > 0:
		size = bulk
	}

	var chunks [][]imap.UID
	for start := 0; start < len(uids); start += size {
		end := start + size
		if end > len(uids) {
			end = len(uids)
		}
		chunk := make([]imap.UID, 0, end-start)
		for _, uid := range uids[start:end] {
			chunk = append(chunk, imap.UID(uid))
		}
		chunks = append(chunks, chunk)
	}
	return chunks
}

// fetchIter streams messages across one FETCH command per chunk.
type fetchIter struct {
	ctx         context.Context
	client      *Client
	pending     [][]imap.UID
	fetchOpts   *imap.FetchOptions
	bodySection *imap.FetchItemBodySection
	cmd         *imapclient.FetchCommand
	start       time.Time
}

// Next returns the next fetched message, or io.EOF when every chunk is
// drained.
func (it *fetchIter) Next() (*Message, error) {
	for {
		if it.cmd == nil {
			if len(it.pending) == 0 {
				return nil, io.EOF
			}
			if err := it.ctx.Err(); err != nil {
				return nil, err
			}

			chunk := it.pending[0]
			it.pending = it.pending[1:]
			it.start = time.Now()
			it.cmd = it.client.imap.Fetch(imap.UIDSetNum(chunk...), it.fetchOpts)
		}

		msg := it.cmd.Next()
		if msg == nil {
			err := it.cmd.Close()
			metrics.ObserveCommand("fetch", it.start, err)
			it.cmd = nil
			if err != nil {
				return nil, fmt.Errorf("fetching messages: %w", err)
			}
			continue
		}

		buf, err := msg.Collect()
		if err != nil {
			continue
		}
		return messageFromBuffer(buf, it.bodySection), nil
	}
}

// Close abandons any remaining chunks and the in-flight command.
func (it *fetchIter) Close() error {
	it.pending = nil
	if it.cmd == nil {
		return nil
	}

	err := it.cmd.Close()
	metrics.ObserveCommand("fetch", it.start, err)
	it.cmd = nil
	return err
}

// messageFromBuffer converts a fetched buffer into a Message, parsing
// attachments from the body section when one was requested.
func messageFromBuffer(buf *imapclient.FetchMessageBuffer, bodySection *imap.FetchItemBodySection) *Message {
	msg := &Message{
		UID:  uint32(buf.UID),
		Size: buf.RFC822Size,
		Date: buf.InternalDate,
	}

	if buf.Envelope != nil {
		msg.Subject = buf.Envelope.Subject
		if !buf.Envelope.Date.IsZero() {
			msg.Date = buf.Envelope.Date
		}
		if len(buf.Envelope.From) > 0 {
			from := buf.Envelope.From[0]
			if from.Name != "" {
				msg.From = from.Name
			} else {
				msg.From = from.Addr()
			}
		}
	}

	for _, flag := range buf.Flags {
		msg.Flags = append(msg.Flags, string(flag))
	}

	if bodySection != nil {
		if raw := buf.FindBodySection(bodySection); raw != nil {
			msg.Attachments = parseAttachments(raw)
		}
	}

	return msg
}

// parseAttachments walks the MIME structure of a raw RFC 2822 message
// and collects its attachment parts in order.
func parseAttachments(raw []byte) []Attachment {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		// Not a MIME message; nothing to extract.
		return nil
	}
	defer mr.Close()

	var attachments []Attachment
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			break
		}

		header, ok := part.Header.(*mail.AttachmentHeader)
		if !ok {
			continue
		}

		filename, _ := header.Filename()
		contentType, _, _ := header.ContentType()

		body, readErr := io.ReadAll(part.Body)
		if readErr != nil {
			continue
		}

		attachments = append(attachments, Attachment{
			Filename: filename,
			MIMEType: contentType,
			Size:     int64(len(body)),
			Data:     body,
		})
	}

	return attachments
}

// CreateFolder creates a folder with the given "/"-separated name.
func (c *Client) CreateFolder(_ context.Context, name string) error {
	start := time.Now()
	err := c.imap.Create(c.toMailbox(name), nil).Wait()
	metrics.ObserveCommand("create", start, err)
	if err != nil {
		return fmt.Errorf("creating folder %s: %w", name, err)
	}

	c.logger.Debug("created folder", zap.String("folder", name))
	return nil
}

// DeleteFolder removes the folder with the given name. Deleting the
// selected folder clears the selection.
func (c *Client) DeleteFolder(_ context.Context, name string) error {
	start := time.Now()
	err := c.imap.Delete(c.toMailbox(name)).Wait()
	metrics.ObserveCommand("delete", start, err)
	if err != nil {
		return fmt.Errorf("deleting folder %s: %w", name, err)
	}

	if c.selected == name {
		c.selected = ""
	}
	c.logger.Debug("deleted folder", zap.String("folder", name))
	return nil
}

// Move moves the given UIDs from the selected folder into dest.
func (c *Client) Move(_ context.Context, uids []uint32, dest string) error {
	if len(uids) == 0 {
		return nil
	}
	if c.selected == "" {
		return fmt.Errorf("no folder selected")
	}

	set := make([]imap.UID, len(uids))
	for i, uid := range uids {
		set[i] = imap.UID(uid)
	}

	start := time.Now()
	_, err := c.imap.Move(imap.UIDSetNum(set...), c.toMailbox(dest)).Wait()
	metrics.ObserveCommand("move", start, err)
	if err != nil {
		return fmt.Errorf("moving %d messages to %s: %w", len(uids), dest, err)
	}
	return nil
}

// Close logs out and drops the connection.
func (c *Client) Close() error {
	return c.imap.Logout().Wait()
}

// toMailbox converts a "/"-separated folder path into the server's
// native mailbox name.
func (c *Client) toMailbox(name string) string {
	if c.delim == '/' || c.delim == 0 {
		return name
	}
	return strings.ReplaceAll(name, "/", string(c.delim))
}

// fromMailbox converts a native mailbox name into a "/"-separated
// folder path.
func (c *Client) fromMailbox(name string) string {
	if c.delim == '/' || c.delim == 0 {
		return name
	}
	return strings.ReplaceAll(name, string(c.delim), "/")
}
