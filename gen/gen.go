// Package gen defines the per-package code generation contract: each
// distinct protobuf package in a compiled descriptor set becomes one
// generated source file with a name derived from the package. The
// Plugin implementation drives a protoc-style plugin executable to
// produce the file bodies; the rest of the pipeline treats those
// bodies as opaque bytes.
package gen

import (
	"context"

	"google.golang.org/protobuf/types/descriptorpb"
)

// Unit is the generated output for one protobuf package. It is
// produced once per build and consumed exactly once by the writer.
type Unit struct {
	// Package is the dotted protobuf package name, empty for the
	// default package.
	Package string
	// FileName is the output file name, always FileName(Package).
	FileName string
	// Content is the generated source body. Opaque to the pipeline.
	Content []byte
}

// FileName returns the output file name for a dotted package name. The
// empty (default) package maps to "_". The mapping is deterministic so
// that repeated builds target the same files.
func FileName(pkg string) string {
	if pkg == "" {
		pkg = "_"
	}
	return pkg + ".pb.go"
}

// Generator produces one Unit per distinct package among the target
// files. The full descriptor set is supplied so that generators can
// resolve types imported from non-target files.
type Generator interface {
	// Generate returns units ordered by package name. The targets are
	// file names (paths as they appear in fds) to generate code for.
	Generate(ctx context.Context, fds *descriptorpb.FileDescriptorSet, targets []string) ([]Unit, error)
}
