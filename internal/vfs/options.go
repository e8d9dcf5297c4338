package vfs

import (
	"fmt"
	"time"

	"github.com/spf13/cast"
)

// Bulk fetch modes. Positive values fetch messages in chunks of that size.
const (
	// BulkNone fetches messages one per round trip.
	BulkNone = 0

	// BulkAll fetches every requested message in a single round trip.
	BulkAll = -1
)

// ListOptions is the allow-list of options accepted by listing and read
// operations. Options that shape the remote search or fetch (Charset,
// Since, Sort, Bulk, MarkSeen, HeadersOnly) are forwarded to the mail
// store; Reverse and Limit are applied locally after ordering.
type ListOptions struct {
	// Charset is the search charset requested from the server.
	Charset string

	// Limit caps the number of message entries emitted, applied after
	// ordering. Zero means unlimited.
	Limit int

	// MarkSeen controls whether fetching a message body sets its seen
	// flag on the server.
	MarkSeen bool

	// Reverse lists messages newest-first instead of oldest-first.
	Reverse bool

	// HeadersOnly skips body download. It is forced off whenever a
	// listing has to materialize attachments.
	HeadersOnly bool

	// Bulk is the fetch chunking mode: BulkNone, BulkAll, or a chunk size.
	Bulk int

	// Sort holds server-side sort keys (e.g. "date", "reverse size").
	Sort []string

	// Since restricts the search to messages dated on or after it.
	// The zero time applies no date floor.
	Since time.Time
}

// DefaultListOptions returns the options applied when a caller passes none:
// seen flags are set on fetch and searches use the US-ASCII charset.
func DefaultListOptions() ListOptions {
	return ListOptions{
		Charset:  "US-ASCII",
		MarkSeen: true,
	}
}

// ListOptionsFromMap decodes a loosely-typed option map as supplied by
// generic filesystem callers. Known keys are converted to their typed
// fields (a value of the wrong type is an error); unknown keys are
// ignored so option maps aimed at other layers can be passed through.
func ListOptionsFromMap(values map[string]any) (ListOptions, error) {
	opts := DefaultListOptions()
	for key, value := range values {
		var err error
		switch key {
		case "charset":
			opts.Charset, err = cast.ToStringE(value)
		case "limit":
			opts.Limit, err = cast.ToIntE(value)
		case "mark_seen":
			opts.MarkSeen, err = cast.ToBoolE(value)
		case "reverse":
			opts.Reverse, err = cast.ToBoolE(value)
		case "headers_only":
			opts.HeadersOnly, err = cast.ToBoolE(value)
		case "bulk":
			opts.Bulk, err = bulkValue(value)
		case "sort":
			opts.Sort, err = cast.ToStringSliceE(value)
		case "since":
			opts.Since, err = cast.ToTimeE(value)
		}
		if err != nil {
			return ListOptions{}, fmt.Errorf("decoding option %q: %w", key, err)
		}
	}
	return opts, nil
}

// bulkValue accepts the historical bool form (false: one by one, true:
// everything at once) alongside an explicit chunk size.
func bulkValue(value any) (int, error) {
	if enabled, ok := value.(bool); ok {
		if enabled {
			return BulkAll, nil
		}
		return BulkNone, nil
	}
	return cast.ToIntE(value)
}
