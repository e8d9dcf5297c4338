package imapfs

import (
	"context"
	"fmt"

	"github.com/nhle/imapfs/internal/metrics"
)

// scopeKind identifies what a path resolved to.
type scopeKind int

const (
	scopeFolder scopeKind = iota
	scopeMessage
	scopeAttachment
)

// scope is the result of resolving a path against the live folder
// namespace.
type scope struct {
	kind scopeKind

	// folder is the folder the scope operates in; "" is the root.
	folder string

	// requested is the normalized path as asked for. Listing uses it
	// for inclusion filtering.
	requested string

	// uid is the message UID for message and attachment scopes. Zero
	// means every message in the folder.
	uid uint32

	// filename is the literal or glob attachment name for attachment
	// scopes.
	filename string
}

// resolve maps a normalized path onto the mail store, backtracking
// right to left: first the whole path as a folder name, then folder
// plus message UID, then folder plus UID plus attachment name. At most
// two segments are peeled off; anything deeper cannot exist. A
// trailing "*" enumerates the children of whatever its parent resolves
// to, so resolution works on the parent. A folder literally named "*"
// is unreachable through this surface.
func (fs *FileSystem) resolve(ctx context.Context, requested string) (*scope, error) {
	if requested == "" {
		return &scope{kind: scopeFolder}, nil
	}

	target := requested
	if front, last := splitLast(requested); last == "*" {
		target = front
	}
	if target == "" {
		// A bare "*" enumerates the root.
		return &scope{kind: scopeFolder, requested: requested}, nil
	}

	// The whole path as a folder.
	if err := fs.selectIfDifferent(ctx, target); err == nil {
		metrics.ObserveResolution("folder", 0)
		return &scope{
			kind:      scopeFolder,
			folder:    target,
			requested: requested,
		}, nil
	}

	// First peel: the final segment as a message UID. A segment that
	// cannot be a UID skips the select attempt entirely.
	deepest := 0
	front, last := splitLast(target)
	if front != "" {
		if uid, err := parseUID(last); err == nil {
			deepest = 1
			if err := fs.selectIfDifferent(ctx, front); err == nil {
				metrics.ObserveResolution("message", 1)
				return &scope{
					kind:      scopeMessage,
					folder:    front,
					requested: requested,
					uid:       uid,
				}, nil
			}
		}

		// Second peel: the final segment as an attachment name, the
		// one before it as a message UID.
		front2, uidSeg := splitLast(front)
		if front2 != "" {
			if uid, err := parseUID(uidSeg); err == nil {
				deepest = 2
				if err := fs.selectIfDifferent(ctx, front2); err == nil {
					metrics.ObserveResolution("attachment", 2)
					return &scope{
						kind:      scopeAttachment,
						folder:    front2,
						requested: requested,
						uid:       uid,
						filename:  last,
					}, nil
				}
			}
		}
	}

	metrics.ObserveResolution("none", deepest)
	return nil, fmt.Errorf("resolving %s: no matching folder, message, or attachment", requested)
}

// selectIfDifferent selects the folder only when it is not already the
// active one. Session.Select forgets the active folder before a failed
// attempt, so a miss here never suppresses a later retry.
func (fs *FileSystem) selectIfDifferent(ctx context.Context, folder string) error {
	if folder != "" && fs.session.SelectedFolder() == folder {
		return nil
	}
	return fs.session.Select(ctx, folder)
}
