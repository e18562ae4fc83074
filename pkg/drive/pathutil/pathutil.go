// Package pathutil provides pure functions over materialized item paths.
//
// Every item stores its full slash-delimited path from the owner root
// ("/folder/sub/file.excalidraw"). These helpers compute child paths,
// detect ancestor relationships for cycle checks, and rewrite descendant
// paths when a subtree moves. No I/O, no failure modes.
package pathutil

import "strings"

// FileSuffix is the canonical content-type suffix carried by every FILE item.
const FileSuffix = ".excalidraw"

// Resolve computes the materialized path of an item from its parent's path
// and its leaf name. A root parent ("" or "/") normalizes to the empty
// string, so root-level items get paths like "/name".
func Resolve(parentPath, name string) string {
	if parentPath == "/" {
		parentPath = ""
	}
	return parentPath + "/" + name
}

// IsAncestor reports whether path equals ancestor or lives somewhere under
// it. Used to reject moving a folder into its own subtree: a plain prefix
// check would wrongly match "/ab" as an ancestor of "/abc".
func IsAncestor(ancestor, path string) bool {
	if path == ancestor {
		return true
	}
	return strings.HasPrefix(path, ancestor+"/")
}

// RewritePrefix replaces the leading oldPrefix of a descendant's path with
// newPrefix. Only the leading occurrence is rewritten; a folder named "a"
// containing an item "/a/x/a" must become "/b/x/a", not "/b/x/b".
func RewritePrefix(oldPrefix, newPrefix, path string) string {
	if !strings.HasPrefix(path, oldPrefix) {
		return path
	}
	return newPrefix + path[len(oldPrefix):]
}

// CanonicalName returns the stored leaf name for an item. FILE names are
// canonicalized to carry the content-type suffix; folder names pass through.
func CanonicalName(name string, isFile bool) string {
	if isFile && !strings.HasSuffix(name, FileSuffix) {
		return name + FileSuffix
	}
	return name
}
