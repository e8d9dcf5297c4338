package imapfs

import (
	"context"
	"slices"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestResolveScopes(t *testing.T) {
	tests := []struct {
		path     string
		kind     scopeKind
		folder   string
		uid      uint32
		filename string
	}{
		{path: "", kind: scopeFolder},
		{path: "*", kind: scopeFolder},
		{path: "Projects", kind: scopeFolder, folder: "Projects"},
		{path: "Projects/reports", kind: scopeFolder, folder: "Projects/reports"},
		{path: "Projects/*", kind: scopeFolder, folder: "Projects"},
		{path: "Projects/7", kind: scopeMessage, folder: "Projects", uid: 7},
		{path: "Projects/7/*", kind: scopeMessage, folder: "Projects", uid: 7},
		{path: "Projects/*/*", kind: scopeMessage, folder: "Projects"},
		{path: "Projects/7/test_1.csv", kind: scopeAttachment, folder: "Projects", uid: 7, filename: "test_1.csv"},
		{path: "Projects/7/*.csv", kind: scopeAttachment, folder: "Projects", uid: 7, filename: "*.csv"},
		{path: "Projects/*/test_1.csv", kind: scopeAttachment, folder: "Projects", filename: "test_1.csv"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			fs, _ := newTestFS(t)

			sc, err := fs.resolve(context.Background(), tt.path)
			if err != nil {
				t.Fatalf("resolve(%q): %v", tt.path, err)
			}
			if sc.kind != tt.kind {
				t.Errorf("kind = %d, want %d", sc.kind, tt.kind)
			}
			if sc.folder != tt.folder {
				t.Errorf("folder = %q, want %q", sc.folder, tt.folder)
			}
			if sc.uid != tt.uid {
				t.Errorf("uid = %d, want %d", sc.uid, tt.uid)
			}
			if sc.filename != tt.filename {
				t.Errorf("filename = %q, want %q", sc.filename, tt.filename)
			}
			if sc.requested != tt.path {
				t.Errorf("requested = %q, want %q", sc.requested, tt.path)
			}
		})
	}
}

// A folder whose name collides with a message path wins resolution:
// the whole path is tried as a folder before any segment is peeled.
func TestResolvePrefersFolderOverMessage(t *testing.T) {
	fs, session := newTestFS(t)
	session.AddFolder("Projects/7")

	sc, err := fs.resolve(context.Background(), "Projects/7")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if sc.kind != scopeFolder || sc.folder != "Projects/7" {
		t.Fatalf("scope = %+v, want the literal folder", sc)
	}
}

func TestResolveUnknownPath(t *testing.T) {
	tests := []struct {
		path    string
		selects int
	}{
		// Neither of the last two segments can be a UID, so only the
		// whole path is tried.
		{path: "a/b/c/d", selects: 1},
		// The attachment peel applies: the whole path, then "a/b".
		{path: "a/b/12/d.csv", selects: 2},
		// The message peel applies: the whole path, then "a/b/c".
		{path: "a/b/c/12", selects: 2},
		{path: "missing", selects: 1},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			fs, session := newTestFS(t)

			if _, err := fs.resolve(context.Background(), tt.path); err == nil {
				t.Fatalf("resolve(%q) should fail", tt.path)
			}
			if n := session.Count("select"); n != tt.selects {
				t.Errorf("resolve(%q) issued %d selects, want %d: %v",
					tt.path, n, tt.selects, session.Commands)
			}
		})
	}
}

// fallbackSample reads the fallback-depth histogram from the default
// registry.
func fallbackSample(t *testing.T) (count uint64, sum float64) {
	t.Helper()

	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("gathering metrics: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() == "imapfs_path_resolution_fallbacks" {
			h := mf.GetMetric()[0].GetHistogram()
			return h.GetSampleCount(), h.GetSampleSum()
		}
	}
	return 0, 0
}

// A failed resolution records how deep the backtracking actually went:
// a single-segment miss peels nothing, a UID-shaped tail is retried
// once, an attachment-shaped tail twice.
func TestResolveRecordsFallbackDepth(t *testing.T) {
	tests := []struct {
		path  string
		depth float64
	}{
		{path: "missing", depth: 0},
		// Neither trailing segment parses as a UID, so no fallback
		// select is ever attempted.
		{path: "missing/abc", depth: 0},
		{path: "missing/42", depth: 1},
		{path: "missing/42/d.csv", depth: 2},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			fs, _ := newTestFS(t)

			beforeCount, beforeSum := fallbackSample(t)
			if _, err := fs.resolve(context.Background(), tt.path); err == nil {
				t.Fatalf("resolve(%q) should fail", tt.path)
			}
			afterCount, afterSum := fallbackSample(t)

			if afterCount != beforeCount+1 {
				t.Fatalf("fallback observations = %d, want %d", afterCount, beforeCount+1)
			}
			if got := afterSum - beforeSum; got != tt.depth {
				t.Errorf("resolve(%q) recorded %v fallback levels, want %v",
					tt.path, got, tt.depth)
			}
		})
	}
}

func TestResolveSkipsRedundantSelect(t *testing.T) {
	fs, session := newTestFS(t)
	ctx := context.Background()

	if _, err := fs.resolve(ctx, "Projects/7"); err != nil {
		t.Fatalf("first resolve: %v", err)
	}
	// Resolving the message left its folder selected, so resolving the
	// folder afterwards needs no new select at all.
	if _, err := fs.resolve(ctx, "Projects"); err != nil {
		t.Fatalf("second resolve: %v", err)
	}

	want := []string{"select Projects/7", "select Projects"}
	if !slices.Equal(session.Commands, want) {
		t.Fatalf("commands = %v, want %v", session.Commands, want)
	}
}

// A probe select that fails forgets the previous selection, so the
// fallback select runs even when the folder was active moments before.
func TestResolveReselectsAfterFailedProbe(t *testing.T) {
	fs, session := newTestFS(t)
	ctx := context.Background()

	if _, err := fs.resolve(ctx, "Projects"); err != nil {
		t.Fatalf("first resolve: %v", err)
	}
	if _, err := fs.resolve(ctx, "Projects/7"); err != nil {
		t.Fatalf("second resolve: %v", err)
	}

	want := []string{"select Projects", "select Projects/7", "select Projects"}
	if !slices.Equal(session.Commands, want) {
		t.Fatalf("commands = %v, want %v", session.Commands, want)
	}
}

func TestResolveNoselectFolderFallsThrough(t *testing.T) {
	fs, session := newTestFS(t)
	session.AddFolder("Projects/7", `\Noselect`)

	// The literal folder exists but cannot be selected, so resolution
	// falls through to the message interpretation.
	sc, err := fs.resolve(context.Background(), "Projects/7")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if sc.kind != scopeMessage || sc.uid != 7 {
		t.Fatalf("scope = %+v, want the message interpretation", sc)
	}
}
