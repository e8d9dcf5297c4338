package imapfs

import (
	"context"
	"errors"
	"fmt"

	"github.com/nhle/imapfs/internal/vfs"
)

// missingAttachmentError reports a literal attachment name that
// matched nothing.
type missingAttachmentError struct {
	filename string
}

func (e *missingAttachmentError) Error() string {
	return fmt.Sprintf("no attachment named %s", e.filename)
}

// notFound is the single choke-point that collapses every resolution
// and enumeration failure into the user-visible NotFoundError: a
// folder that does not select, a malformed or missing UID, a missing
// attachment, and remote protocol failures all look the same to the
// caller. Context cancellation passes through untouched so callers
// can still tell a cancelled call from a miss.
func notFound(path string, err error) error {
	if vfs.IsNotFound(err) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &vfs.NotFoundError{Path: path, Err: err}
}
