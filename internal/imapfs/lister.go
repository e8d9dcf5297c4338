package imapfs

import (
	"context"
	"io"
	"slices"

	"github.com/nhle/imapfs/internal/mailbox"
	"github.com/nhle/imapfs/internal/vfs"
)

// listScope renders a resolved scope into directory entries.
func (fs *FileSystem) listScope(ctx context.Context, sc *scope, opts vfs.ListOptions) ([]vfs.Entry, error) {
	switch sc.kind {
	case scopeFolder:
		return fs.listFolder(ctx, sc, opts)
	case scopeMessage:
		return fs.listMessages(ctx, sc, opts)
	default:
		return fs.listAttachments(ctx, sc, opts)
	}
}

// listFolder lists a folder scope: the matching folders as
// directories, then one directory per message in the folder itself.
// The root lists folders only.
func (fs *FileSystem) listFolder(ctx context.Context, sc *scope, opts vfs.ListOptions) ([]vfs.Entry, error) {
	folders, err := fs.session.ListFolders(ctx, sc.folder)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(folders))
	for _, folder := range folders {
		if included(sc.requested, folder.Name) {
			names = append(names, folder.Name)
		}
	}
	slices.Sort(names)

	entries := make([]vfs.Entry, 0, len(names))
	for _, name := range names {
		entries = append(entries, vfs.Entry{Name: name, Kind: vfs.KindDirectory})
	}

	if sc.folder == "" {
		return entries, nil
	}

	uids, err := fs.session.Search(ctx, queryFromOptions(opts, 0))
	if err != nil {
		return nil, err
	}
	for _, uid := range orderUIDs(uids, opts) {
		name := messagePath(sc.folder, uid)
		if included(sc.requested, name) {
			entries = append(entries, vfs.Entry{Name: name, Kind: vfs.KindDirectory})
		}
	}
	return entries, nil
}

// listMessages lists a message scope: each matching message
// contributes its attachments as file entries.
func (fs *FileSystem) listMessages(ctx context.Context, sc *scope, opts vfs.ListOptions) ([]vfs.Entry, error) {
	cursor, err := fs.openCursor(ctx, sc, opts, true)
	if err != nil {
		return nil, err
	}
	defer cursor.Close()

	var entries []vfs.Entry
	for {
		msg, err := cursor.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		for _, att := range msg.Attachments {
			name := messagePath(sc.folder, msg.UID) + "/" + att.Filename
			if !included(sc.requested, name) {
				continue
			}
			date := msg.Date
			entries = append(entries, vfs.Entry{
				Name:         name,
				Size:         att.Size,
				Kind:         vfs.KindFile,
				LastModified: &date,
			})
		}
	}
	return entries, nil
}

// listAttachments lists an attachment scope. A literal filename must
// match at least one attachment, and only the first match per message
// counts when names repeat. A glob filename collects every match and
// may legitimately come up empty.
func (fs *FileSystem) listAttachments(ctx context.Context, sc *scope, opts vfs.ListOptions) ([]vfs.Entry, error) {
	glob := hasGlob(sc.filename)

	cursor, err := fs.openCursor(ctx, sc, opts, true)
	if err != nil {
		return nil, err
	}
	defer cursor.Close()

	var entries []vfs.Entry
	for {
		msg, err := cursor.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		prefix := messagePath(sc.folder, msg.UID) + "/"
		for _, att := range msg.Attachments {
			if !matchFilename(sc.filename, att.Filename) {
				continue
			}
			date := msg.Date
			entries = append(entries, vfs.Entry{
				Name:         prefix + att.Filename,
				Size:         att.Size,
				Kind:         vfs.KindFile,
				LastModified: &date,
			})
			if !glob {
				break
			}
		}
	}

	if !glob && len(entries) == 0 {
		return nil, &missingAttachmentError{filename: sc.filename}
	}
	return entries, nil
}

// openCursor searches the scope's messages and opens a peekable cursor
// over the fetch. needBodies forces a full download even when the
// caller asked for headers only, since attachments exist only in
// fetched bodies.
func (fs *FileSystem) openCursor(ctx context.Context, sc *scope, opts vfs.ListOptions, needBodies bool) (*messageCursor, error) {
	uids, err := fs.session.Search(ctx, queryFromOptions(opts, sc.uid))
	if err != nil {
		return nil, err
	}

	uids = orderUIDs(uids, opts)
	if len(uids) == 0 {
		return nil, errNoMessages
	}

	iter, err := fs.session.Fetch(ctx, uids, mailbox.FetchOptions{
		HeadersOnly: opts.HeadersOnly && !needBodies,
		MarkSeen:    opts.MarkSeen,
		Bulk:        opts.Bulk,
	})
	if err != nil {
		return nil, err
	}
	return newMessageCursor(iter)
}

// queryFromOptions carries the remote-search options into a Query for
// the given UID (zero means all).
func queryFromOptions(opts vfs.ListOptions, uid uint32) mailbox.Query {
	return mailbox.Query{
		UID:     uid,
		Since:   opts.Since,
		Charset: opts.Charset,
		Sort:    opts.Sort,
	}
}

// orderUIDs applies the local ordering options: server order by
// default, reversed on request, capped after ordering.
func orderUIDs(uids []uint32, opts vfs.ListOptions) []uint32 {
	if opts.Reverse {
		slices.Reverse(uids)
	}
	if opts.Limit > 0 && len(uids) > opts.Limit {
		uids = uids[:opts.Limit]
	}
	return uids
}
