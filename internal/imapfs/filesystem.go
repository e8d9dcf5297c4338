// Package imapfs exposes an IMAP account as a hierarchical virtual
// filesystem: folders are directories, messages are directories named
// by their UID, attachments are files. Folder names may themselves
// contain the path separator, so every path is resolved right to left
// with backtracking against the live folder namespace.
package imapfs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/nhle/imapfs/internal/credential"
	"github.com/nhle/imapfs/internal/mailbox"
	"github.com/nhle/imapfs/internal/model"
	"github.com/nhle/imapfs/internal/vfs"
)

// FileSystem exposes one IMAP account as a virtual filesystem. All
// operations share a single mail session whose selected folder is the
// only state carried between calls, so an internal mutex serializes
// them. Nothing is cached: every operation queries the server again.
type FileSystem struct {
	session mailbox.Session
	logger  *zap.Logger
	mu      sync.Mutex
}

// New wraps an existing mail session. The caller keeps ownership of
// nothing: Close releases the session.
func New(session mailbox.Session, logger *zap.Logger) *FileSystem {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileSystem{session: session, logger: logger}
}

// Connect dials an IMAP server from configuration and wraps the
// resulting session. When the configuration carries no password, the
// system keyring is consulted for the account. Authentication
// failures surface as mailbox.AuthError, not as a not-found.
func Connect(ctx context.Context, cfg *model.Config, logger *zap.Logger) (*FileSystem, error) {
	password := cfg.Server.Password
	if password == "" {
		stored, err := credential.Password(cfg.Server.Username)
		if err != nil {
			return nil, fmt.Errorf("loading password for %s: %w", cfg.Server.Username, err)
		}
		password = stored
	}

	client, err := mailbox.Dial(ctx, mailbox.Config{
		Host:     cfg.Server.Host,
		Port:     cfg.Server.Port,
		Username: cfg.Server.Username,
		Password: password,
		TLS:      cfg.Server.TLS,
	}, logger)
	if err != nil {
		return nil, err
	}

	return New(client, logger), nil
}

// Close releases the underlying session.
func (fs *FileSystem) Close() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.session.Close()
}

// List returns the entries under path: for a folder, the matching
// folders and its message directories; for a message, its attachment
// files; for an attachment, the single matching file. Entry names are
// always full paths. A path that resolves to nothing fails with a
// NotFoundError.
func (fs *FileSystem) List(ctx context.Context, path string, opts vfs.ListOptions) ([]vfs.Entry, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	sc, err := fs.resolve(ctx, normalizePath(path))
	if err != nil {
		return nil, notFound(path, err)
	}

	entries, err := fs.listScope(ctx, sc, opts)
	if err != nil {
		return nil, notFound(path, err)
	}

	fs.logger.Debug("listed path",
		zap.String("path", sc.requested),
		zap.Int("entries", len(entries)),
	)
	return entries, nil
}

// ListNames returns just the full-path names of the entries under path.
func (fs *FileSystem) ListNames(ctx context.Context, path string, opts vfs.ListOptions) ([]string, error) {
	entries, err := fs.List(ctx, path, opts)
	if err != nil {
		return nil, err
	}

	names := make([]string, len(entries))
	for i, entry := range entries {
		names[i] = entry.Name
	}
	return names, nil
}

// Open returns a reader over an attachment payload. Directories,
// wildcards, and unresolved paths fail with a NotFoundError.
func (fs *FileSystem) Open(ctx context.Context, path string, opts vfs.ListOptions) (io.ReadCloser, error) {
	data, err := fs.ReadFile(ctx, path, opts)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// ReadFile returns an attachment payload in full.
func (fs *FileSystem) ReadFile(ctx context.Context, path string, opts vfs.ListOptions) ([]byte, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	sc, err := fs.resolve(ctx, normalizePath(path))
	if err != nil {
		return nil, notFound(path, err)
	}
	if sc.kind != scopeAttachment || sc.uid == 0 || hasGlob(sc.filename) {
		return nil, notFound(path, errors.New("not a file"))
	}

	att, _, err := fs.findAttachment(ctx, sc, opts)
	if err != nil {
		return nil, notFound(path, err)
	}
	return att.Data, nil
}

// Created returns the date of the message a path denotes. Attachment
// paths share the date of the message that carries them. Folders have
// no timestamps and fail with a NotFoundError.
func (fs *FileSystem) Created(ctx context.Context, path string, opts vfs.ListOptions) (time.Time, error) {
	return fs.messageDate(ctx, path, opts)
}

// Modified returns the same date as Created: a stored message never
// changes.
func (fs *FileSystem) Modified(ctx context.Context, path string, opts vfs.ListOptions) (time.Time, error) {
	return fs.messageDate(ctx, path, opts)
}

func (fs *FileSystem) messageDate(ctx context.Context, path string, opts vfs.ListOptions) (time.Time, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	sc, err := fs.resolve(ctx, normalizePath(path))
	if err != nil {
		return time.Time{}, notFound(path, err)
	}

	switch sc.kind {
	case scopeMessage:
		if sc.uid == 0 {
			return time.Time{}, notFound(path, errors.New("not a single message"))
		}
		cursor, err := fs.openCursor(ctx, sc, opts, false)
		if err != nil {
			return time.Time{}, notFound(path, err)
		}
		defer cursor.Close()

		msg, err := cursor.Next()
		if err != nil {
			return time.Time{}, notFound(path, err)
		}
		return msg.Date, nil

	case scopeAttachment:
		if sc.uid == 0 || hasGlob(sc.filename) {
			return time.Time{}, notFound(path, errors.New("not a file"))
		}
		_, msg, err := fs.findAttachment(ctx, sc, opts)
		if err != nil {
			return time.Time{}, notFound(path, err)
		}
		return msg.Date, nil

	default:
		return time.Time{}, notFound(path, errors.New("folders have no timestamps"))
	}
}

// CreateFolder creates a new folder. The name is taken literally after
// separator normalization, so it may itself contain "/".
func (fs *FileSystem) CreateFolder(ctx context.Context, name string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	folder := normalizePath(name)
	if folder == "" {
		return errors.New("empty folder name")
	}
	return fs.session.CreateFolder(ctx, folder)
}

// Remove deletes a folder. Only whole folders can be removed; message
// and attachment paths are immutable through this surface.
func (fs *FileSystem) Remove(ctx context.Context, path string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	requested := normalizePath(path)
	sc, err := fs.resolve(ctx, requested)
	if err != nil {
		return notFound(path, err)
	}
	if sc.kind != scopeFolder || sc.folder == "" || sc.folder != requested {
		return fmt.Errorf("only folders can be removed: %s", path)
	}
	return fs.session.DeleteFolder(ctx, sc.folder)
}

// Move relocates a single message into another folder. The source must
// be a message path; dest is a folder name.
func (fs *FileSystem) Move(ctx context.Context, source, dest string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	sc, err := fs.resolve(ctx, normalizePath(source))
	if err != nil {
		return notFound(source, err)
	}
	if sc.kind != scopeMessage || sc.uid == 0 {
		return fmt.Errorf("only single messages can be moved: %s", source)
	}
	return fs.session.Move(ctx, []uint32{sc.uid}, normalizePath(dest))
}
