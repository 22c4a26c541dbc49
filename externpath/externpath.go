// Package externpath decides whether a fully-qualified protobuf type
// name is generated locally or supplied by an external package.
// Registering a namespace prefix excludes every name nested beneath it;
// registering an exact fully-qualified type name excludes only that
// type.
package externpath

import "strings"

// Set is an immutable collection of dotted names and namespace
// prefixes that are supplied externally. Construct it once with New
// and pass it into each build; a Set is never mutated after creation.
type Set struct {
	paths map[string]struct{}
}

// New builds a Set from the given dotted paths. A leading dot, the
// convention protoc uses for fully-qualified names, is tolerated and
// stripped.
func New(paths ...string) Set {
	m := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		m[strings.TrimPrefix(p, ".")] = struct{}{}
	}
	return Set{paths: m}
}

// Len returns the number of registered paths.
func (s Set) Len() int {
	return len(s.paths)
}

// IsLocal reports whether fqName must be generated locally. It returns
// false when fqName itself is registered, or when any proper prefix of
// fqName, truncated strictly at a dot boundary, is registered. Prefixes
// are tried longest first. A registered "a.b" therefore excludes
// "a.b.C" and "a.b.C.D" but never the sibling "a.bc".
func (s Set) IsLocal(fqName string) bool {
	fqName = strings.TrimPrefix(fqName, ".")
	if _, ok := s.paths[fqName]; ok {
		return false
	}
	for i := strings.LastIndexByte(fqName, '.'); i > 0; i = strings.LastIndexByte(fqName[:i], '.') {
		if _, ok := s.paths[fqName[:i]]; ok {
			return false
		}
	}
	return true
}

// WellKnown returns the standard extern paths for the well-known
// google.protobuf types: the namespace itself plus the wrapper types
// that runtimes map to native values.
func WellKnown() []string {
	return []string{
		"google.protobuf",
		"google.protobuf.BoolValue",
		"google.protobuf.BytesValue",
		"google.protobuf.DoubleValue",
		"google.protobuf.Empty",
		"google.protobuf.FloatValue",
		"google.protobuf.Int32Value",
		"google.protobuf.Int64Value",
		"google.protobuf.StringValue",
		"google.protobuf.UInt32Value",
		"google.protobuf.UInt64Value",
	}
}
