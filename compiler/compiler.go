// Package compiler turns .proto sources into protobuf descriptor
// sets. Two implementations are provided: Protocompile compiles in
// process, Protoc shells out to an installed protoc binary. Both
// produce a set equivalent to protoc's --include_imports output:
// every named file plus its transitive imports, dependencies first.
package compiler

import (
	"context"

	"google.golang.org/protobuf/types/descriptorpb"
)

// Compiler produces a descriptor set for the given .proto files. File
// names are resolved against includePaths, the same way protoc's -I
// flag works. Failures are opaque to callers: the build that issued
// the compile surfaces them unmodified.
type Compiler interface {
	Compile(ctx context.Context, files []string, includePaths []string) (*descriptorpb.FileDescriptorSet, error)
}
