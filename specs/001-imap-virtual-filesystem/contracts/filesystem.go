// Package contracts/filesystem defines the virtual filesystem surface
// exposed over one IMAP account.
//
// Namespace: folders are directories, messages are directories named by
// UID, attachments are files. Entry names are always full paths from
// the root. Folder names may themselves contain "/", which makes the
// namespace ambiguous: "a/b/c" may be a folder, a message "c" in
// folder "a/b", or an attachment "c" of message "b" in folder "a".
package contracts

// FileSystem operations and their resolution semantics.

// Path resolution (shared by every operation):
//
//   1. Normalize: strip leading and trailing "/". Empty path = root.
//   2. A trailing "*" segment detaches; resolution runs on the parent
//      and the wildcard survives as a match pattern.
//   3. Try SELECT(whole path)           -> folder scope
//   4. Else peel the last segment; if it parses as a UID (or is "*"),
//      try SELECT(front)                -> message scope
//   5. Else peel again; if the new last segment parses as a UID (or is
//      "*"), try SELECT(front2)         -> attachment scope, with the
//      first peeled segment as the attachment name (literal or glob)
//   6. Else: NotFoundError. Never more than two peels.
//
//   A segment that cannot be a UID is rejected locally; no search or
//   fetch is ever issued for it.
//
// List(ctx, path, opts) -> []Entry:
//   Folder scope: LIST folders with the scope folder as prefix, keep
//   candidates per the inclusion rule (root keeps everything, proper
//   descendants stay, and the requested pattern matches by trailing
//   segments, so a plain listing includes the folder itself while a
//   "F/*" listing does not), sorted; then one directory entry per
//   message UID in the folder (ascending, Reverse/Limit applied after
//   ordering). The root never lists messages.
//   Message scope: search (UID or all) + fetch; each attachment of
//   each message becomes a file entry with the payload size and the
//   message date. Fetch is always a full body fetch here; headers_only
//   cannot suppress attachment materialization.
//   Attachment scope: message-scope fetch filtered by the filename
//   segment; literal misses raise NotFoundError, glob misses yield an
//   empty listing, duplicate names resolve to the first match.
//
// ListNames(ctx, path, opts) -> []string:
//   The same traversal, names only.
//
// Open / ReadFile(ctx, path, opts):
//   Attachment scope with a literal filename and a concrete UID only;
//   returns the decoded payload. Everything else is NotFoundError.
//
// Created / Modified(ctx, path, opts) -> time:
//   The date of the message the path denotes (attachments share their
//   message's date); identical values, a stored message never changes.
//   Folders and the root have no timestamps: NotFoundError.
//
// CreateFolder(ctx, name) / Remove(ctx, path) / Move(ctx, src, dest):
//   Folder creation and deletion, and moving one message (by message
//   path) into another folder. Remove refuses non-folder paths.
//
// Error taxonomy:
//   NotFoundError{Path, Err} - the only failure mode of path
//   operations; wraps the cause (select miss, malformed UID, empty
//   search, missing attachment, protocol error). Context cancellation
//   passes through unwrapped. Authentication failures surface from
//   Connect as mailbox.AuthError, never as NotFoundError.
//
// Options allow-list (unknown keys in the map form are ignored):
//   charset      string  search charset            default "US-ASCII"
//   limit        int     cap entries after order   default 0 (off)
//   mark_seen    bool    body fetch sets \Seen     default true
//   reverse      bool    newest-first ordering     default false
//   headers_only bool    skip body download        default false
//   bulk         int     fetch chunking            default 0 (one by one)
//   sort         list    server-side sort keys     default none
//   since        time    date floor for searches   default none
//
// Concurrency:
//   One mutex serializes all operations; the session's selected folder
//   is the only cross-call state. Repeated operations on the selected
//   folder skip the re-select; a failed select clears the memory so
//   the next attempt is never suppressed. No listing cache exists.
