// Package contracts/mailbox defines the narrow mail-store session the
// filesystem layer is built against, and its mapping onto IMAP
// commands via go-imap v2.
//
// Library: github.com/emersion/go-imap/v2 (imapclient) for the
// protocol, github.com/emersion/go-message/mail for MIME walking.
package contracts

// Session contract and its IMAP mapping.

// Dial:
//   DialTLS (implicit TLS) or DialStartTLS, then LOGIN. A rejected
//   login is an AuthError carrying the account name. After login one
//   LIST "" "" learns the hierarchy delimiter; every folder name
//   crossing the session boundary uses "/" and is translated to and
//   from the native delimiter at the wire.
//
// ListFolders(prefix):
//   LIST "" "<prefix>*" (bare "*" for the empty prefix). Returns
//   folder names (delimiter-normalized), the native delimiter, and the
//   server attributes (\Trash, \Noselect, ...) as flags.
//
// Select(name):
//   SELECT <name>. The implementation forgets its selected-folder
//   memory before issuing the command and records it only on success,
//   so a failed select leaves no folder remembered. Writable SELECT,
//   not EXAMINE: seen flags must be settable by fetches.
//
// Search(query):
//   UID SEARCH with SINCE and/or a UID set; with sort keys present,
//   UID SORT (RFC 5256) instead. The generated criteria are
//   charset-neutral, so the charset option never needs wire
//   translation. Unknown sort keys fail before anything is sent.
//
// Fetch(uids, options):
//   UID FETCH of ENVELOPE, FLAGS, INTERNALDATE, RFC822.SIZE, UID, plus
//   BODY[] (or BODY.PEEK[] when mark_seen is off) unless headers_only.
//   The UID set is chunked per the bulk mode: one command per message
//   by default, a single command for everything, or fixed-size chunks.
//   Messages stream back lazily; attachments are parsed from the raw
//   body with a MIME reader (attachment parts only, payload retained,
//   size = decoded length).
//
// CreateFolder / DeleteFolder / Move:
//   CREATE, DELETE, UID MOVE. Deleting the selected folder clears the
//   selection.
//
// Close:
//   LOGOUT.
//
// Observability:
//   Every command records a Prometheus counter, an error counter, and
//   a duration histogram labeled by command name, plus a debug log
//   line with the command's key parameters.
