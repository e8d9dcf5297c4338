package vfs

import (
	"errors"
	"fmt"
	"time"
)

// EntryKind distinguishes directory entries from file entries.
type EntryKind string

const (
	// KindDirectory marks folders and message containers.
	KindDirectory EntryKind = "directory"

	// KindFile marks attachment payloads.
	KindFile EntryKind = "file"
)

// Entry describes a single object in a directory listing.
type Entry struct {
	// Name is the full path of the entry from the root
	// (e.g. "Projects/42/report.pdf"), never just the final segment.
	Name string

	// Size is the payload length in bytes. Directories report 0.
	Size int64

	// Kind reports whether the entry is a directory or a file.
	Kind EntryKind

	// LastModified is the date of the message an attachment belongs to.
	// It is nil for directory entries.
	LastModified *time.Time
}

// IsDir reports whether the entry is a directory.
func (e Entry) IsDir() bool {
	return e.Kind == KindDirectory
}

// NotFoundError indicates that a path could not be resolved to any
// folder, message, or attachment. Every resolution failure collapses
// into this one error type: a missing folder, a missing or malformed
// UID, a missing attachment, and remote protocol failures during
// resolution are indistinguishable to the caller.
type NotFoundError struct {
	// Path is the requested path as given by the caller.
	Path string

	// Err is the underlying cause, if any.
	Err error
}

func (e *NotFoundError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("path not found: %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("path not found: %s", e.Path)
}

func (e *NotFoundError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err (or any error in its chain) is a NotFoundError.
func IsNotFound(err error) bool {
	var notFound *NotFoundError
	return errors.As(err, &notFound)
}
