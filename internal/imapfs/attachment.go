package imapfs

import (
	"context"
	"io"

	"github.com/nhle/imapfs/internal/mailbox"
	"github.com/nhle/imapfs/internal/vfs"
)

// findAttachment fetches the scope's message and locates the first
// attachment whose name equals the scope filename exactly. Later
// attachments with the same name are shadowed.
func (fs *FileSystem) findAttachment(ctx context.Context, sc *scope, opts vfs.ListOptions) (*mailbox.Attachment, *mailbox.Message, error) {
	cursor, err := fs.openCursor(ctx, sc, opts, true)
	if err != nil {
		return nil, nil, err
	}
	defer cursor.Close()

	for {
		msg, err := cursor.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, err
		}

		for i := range msg.Attachments {
			if msg.Attachments[i].Filename == sc.filename {
				return &msg.Attachments[i], msg, nil
			}
		}
	}
	return nil, nil, &missingAttachmentError{filename: sc.filename}
}
