package objects

import (
	"fmt"
	"strings"
)

// TypedFolder is the folder every object of a group lives under: root/group.
func TypedFolder(root, group string) string {
	return strings.TrimSuffix(cleanKey(root+"/"+group), "/")
}

// BuildPhysicalKey maps a logical key to root/group/lowercased-key/metadata-file.
// A key that already ends with the metadata filename is treated as a full
// physical key and returned unchanged.
func BuildPhysicalKey(root string, t ObjectType, logicalKey string) string {
	if t.MetadataFilename != "" && strings.HasSuffix(logicalKey, t.MetadataFilename) {
		return logicalKey
	}
	return cleanKey(TypedFolder(root, t.Group) + "/" + strings.ToLower(logicalKey) + "/" + t.MetadataFilename)
}

// ExtractLogicalKey inverts BuildPhysicalKey. It reports false for keys that
// are not directly root/group/<key>/metadata-file.
func ExtractLogicalKey(root string, t ObjectType, physicalKey string) (string, bool) {
	prefix := TypedFolder(root, t.Group) + "/"
	suffix := "/" + t.MetadataFilename
	if t.MetadataFilename == "" || len(physicalKey) <= len(prefix)+len(suffix) {
		return "", false
	}
	if !strings.HasPrefix(physicalKey, prefix) || !strings.HasSuffix(physicalKey, suffix) {
		return "", false
	}
	return physicalKey[len(prefix) : len(physicalKey)-len(suffix)], true
}

// ValidateLogicalKey rejects keys that would not survive the trip through
// BuildPhysicalKey and ExtractLogicalKey unchanged: blank keys, a leading or
// trailing separator, empty segments and "." or ".." segments. Keys already
// ending with the metadata filename are physical keys and follow the same
// segment rules; the bare filename alone is rejected.
func ValidateLogicalKey(t ObjectType, logicalKey string) error {
	if strings.TrimSpace(logicalKey) == "" {
		return fmt.Errorf("%w: %q", ErrInvalidKey, logicalKey)
	}
	for _, segment := range strings.Split(logicalKey, "/") {
		switch {
		case segment == "":
			return fmt.Errorf("%w: %q has an empty path segment", ErrInvalidKey, logicalKey)
		case segment == "." || segment == "..":
			return fmt.Errorf("%w: %q has a relative path segment", ErrInvalidKey, logicalKey)
		case strings.TrimSpace(segment) == "":
			return fmt.Errorf("%w: %q has a blank path segment", ErrInvalidKey, logicalKey)
		}
	}
	if t.MetadataFilename != "" && logicalKey == t.MetadataFilename {
		return fmt.Errorf("%w: %q is only a metadata filename", ErrInvalidKey, logicalKey)
	}
	return nil
}

// cleanKey collapses repeated separators and drops a leading one; object keys
// never start with "/".
func cleanKey(key string) string {
	for strings.Contains(key, "//") {
		key = strings.ReplaceAll(key, "//", "/")
	}
	return strings.TrimPrefix(key, "/")
}
