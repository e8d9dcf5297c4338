package imapfs

import (
	"fmt"
	"path"
	"strconv"
	"strings"
)

// normalizePath strips leading and trailing separators from a raw
// path. The empty result is the root.
func normalizePath(p string) string {
	return strings.Trim(p, "/")
}

// splitLast splits off the final segment: "a/b/c" becomes ("a/b", "c").
// A single-segment path yields an empty front.
func splitLast(p string) (front, last string) {
	idx := strings.LastIndex(p, "/")
	if idx < 0 {
		return "", p
	}
	return p[:idx], p[idx+1:]
}

// parseUID interprets a path segment as a message UID. "*" selects
// every message and parses to zero. Anything else must be a positive
// decimal number in canonical form: the server grammar forbids leading
// zeros, and a non-canonical segment could never match the entry names
// listing hands out. Malformed segments are rejected here so they
// never reach the server.
func parseUID(segment string) (uint32, error) {
	if segment == "*" {
		return 0, nil
	}
	n, err := strconv.ParseUint(segment, 10, 32)
	if err != nil || n == 0 || strconv.FormatUint(n, 10) != segment {
		return 0, fmt.Errorf("invalid message UID %q", segment)
	}
	return uint32(n), nil
}

// hasGlob reports whether the segment contains glob metacharacters.
func hasGlob(s string) bool {
	return strings.ContainsAny(s, "*?[")
}

// matchesPattern reports whether the candidate path matches the
// pattern by its trailing segments: a pattern of k segments matches
// iff the candidate's last k segments match pairwise as globs.
func matchesPattern(pattern, candidate string) bool {
	patSegs := strings.Split(pattern, "/")
	candSegs := strings.Split(candidate, "/")
	if len(patSegs) > len(candSegs) {
		return false
	}

	candSegs = candSegs[len(candSegs)-len(patSegs):]
	for i := range patSegs {
		ok, err := path.Match(patSegs[i], candSegs[i])
		if err != nil || !ok {
			return false
		}
	}
	return true
}

// included implements the listing inclusion rule: everything under the
// root, proper descendants of the requested path, and candidates the
// requested pattern matches. A plain folder listing therefore includes
// the folder itself, while a trailing-wildcard listing does not.
func included(requested, candidate string) bool {
	if requested == "" {
		return true
	}
	if strings.HasPrefix(candidate, requested+"/") {
		return true
	}
	return matchesPattern(requested, candidate)
}

// matchFilename matches an attachment name against a literal or glob
// filename segment.
func matchFilename(pattern, name string) bool {
	if !hasGlob(pattern) {
		return pattern == name
	}
	ok, err := path.Match(pattern, name)
	return err == nil && ok
}

// messagePath builds the full path of a message directory.
func messagePath(folder string, uid uint32) string {
	return folder + "/" + strconv.FormatUint(uint64(uid), 10)
}
