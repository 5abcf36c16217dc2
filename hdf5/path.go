package hdf5

import (
	"fmt"
	"strings"
)

// ParseAttrPath splits "object@attr" at the last '@'. The object part is
// cleaned, so "/@units" names an attribute of the root group.
func ParseAttrPath(path string) (objectPath, attrName string, err error) {
	at := strings.LastIndexByte(path, '@')
	switch {
	case path == "":
		return "", "", fmt.Errorf("empty attribute path: %w", ErrInvalidPath)
	case at < 0:
		return "", "", fmt.Errorf("%q has no '@' before an attribute name: %w", path, ErrInvalidPath)
	case at == len(path)-1:
		return "", "", fmt.Errorf("%q has an empty attribute name: %w", path, ErrInvalidPath)
	}
	return CleanPath(path[:at]), path[at+1:], nil
}

// SplitPath returns the non-empty components of a slash-separated path.
// The root yields an empty, non-nil slice.
func SplitPath(path string) []string {
	isSlash := func(r rune) bool { return r == '/' }
	return append([]string{}, strings.FieldsFunc(path, isSlash)...)
}

// CleanPath makes path absolute and drops repeated and trailing slashes.
func CleanPath(path string) string {
	return "/" + strings.Join(SplitPath(path), "/")
}
