package compiler

import (
	"context"

	"github.com/bufbuild/protocompile"
	"github.com/bufbuild/protocompile/protoutil"
	"github.com/cockroachdb/errors"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/descriptorpb"
)

// Protocompile compiles .proto sources in process using
// bufbuild/protocompile, with the standard well-known imports
// available without any installed toolchain.
type Protocompile struct{}

var _ Compiler = Protocompile{}

// Compile implements Compiler.
func (Protocompile) Compile(ctx context.Context, files []string, includePaths []string) (*descriptorpb.FileDescriptorSet, error) {
	c := protocompile.Compiler{
		Resolver: protocompile.WithStandardImports(&protocompile.SourceResolver{
			ImportPaths: includePaths,
		}),
		SourceInfoMode: protocompile.SourceInfoStandard,
	}
	compiled, err := c.Compile(ctx, files...)
	if err != nil {
		return nil, errors.Wrap(err, "compiling protos")
	}

	// Flatten to a descriptor set with dependencies before dependents,
	// matching protoc --include_imports.
	var fds descriptorpb.FileDescriptorSet
	seen := make(map[string]bool)
	var add func(fd protoreflect.FileDescriptor)
	add = func(fd protoreflect.FileDescriptor) {
		if seen[fd.Path()] {
			return
		}
		seen[fd.Path()] = true
		imports := fd.Imports()
		for i := 0; i < imports.Len(); i++ {
			add(imports.Get(i).FileDescriptor)
		}
		fds.File = append(fds.File, protoutil.ProtoFromFileDescriptor(fd))
	}
	for _, fd := range compiled {
		add(fd)
	}
	return &fds, nil
}
