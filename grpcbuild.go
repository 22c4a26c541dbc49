// Package grpcbuild assembles a protobuf build pipeline: it compiles a
// directory of .proto sources into a descriptor set, hands each local
// package to a code generator, lays the generated files out in one
// output directory, and maintains a root index file that mirrors the
// package hierarchy and carries canonical-name accessors for every
// generated message. Output is deterministic and files are only
// rewritten when their content actually changes, so repeated builds do
// not disturb incremental build tooling.
package grpcbuild

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"google.golang.org/protobuf/types/descriptorpb"

	"github.com/grpcbuild/grpcbuild/compiler"
	"github.com/grpcbuild/grpcbuild/declgen"
	"github.com/grpcbuild/grpcbuild/externpath"
	"github.com/grpcbuild/grpcbuild/gen"
	"github.com/grpcbuild/grpcbuild/nstree"
)

// ErrOutputExists is returned by Build when the output directory
// already exists and Force was not set. It is reported before any
// generation work begins.
var ErrOutputExists = errors.New("output directory already exists")

// Builder configures one build invocation. It is an immutable value:
// construct it, then call Build. The zero value compiles in process,
// generates no per-package sources, and writes the index into
// "protos.pb.go" with Go package "protos".
type Builder struct {
	// Compiler produces the descriptor set. Defaults to
	// compiler.Protocompile.
	Compiler compiler.Compiler
	// Generator produces the per-package sources. When nil, only the
	// root index is written.
	Generator gen.Generator
	// ExternPaths lists dotted names and namespace prefixes that are
	// supplied externally and must not be generated locally.
	ExternPaths []string
	// WellKnownTypes additionally registers the standard
	// google.protobuf extern paths.
	WellKnownTypes bool
	// RootFile is the index file name inside the output directory.
	// Defaults to "protos.pb.go".
	RootFile string
	// RootPackage is the Go package clause of the index file.
	// Defaults to "protos".
	RootPackage string
	// Force permits building into an existing output directory.
	Force bool
	// Logger receives per-stage and per-file progress. Defaults to a
	// nop logger.
	Logger *zap.Logger
}

// Build runs the pipeline over the .proto files under inDir, writing
// into outDir. Import statements resolve relative to inDir's parent,
// the same way the directory would be laid out under a protoc -I root.
// Every failure is fatal and wrapped with the stage it occurred in;
// nothing is retried.
func (b Builder) Build(ctx context.Context, inDir, outDir string) error {
	log := b.Logger
	if log == nil {
		log = zap.NewNop()
	}

	if !b.Force {
		if _, err := os.Stat(outDir); err == nil {
			return errors.Wrapf(ErrOutputExists, "%s", outDir)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return errors.Wrapf(err, "stat %s", outDir)
		}
	}

	protos, include, err := FindProtos(inDir)
	if err != nil {
		return err
	}
	if len(protos) == 0 {
		return errors.Newf("no .proto files found under %s", inDir)
	}
	log.Debug("discovered protos", zap.Int("count", len(protos)), zap.String("include", include))

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return errors.Wrap(err, "failed to prepare out dir")
	}

	comp := b.Compiler
	if comp == nil {
		comp = compiler.Protocompile{}
	}
	fds, err := comp.Compile(ctx, protos, []string{include})
	if err != nil {
		return errors.Wrap(err, "failed to compile the protos")
	}

	paths := b.ExternPaths
	if b.WellKnownTypes {
		paths = append(append([]string(nil), paths...), externpath.WellKnown()...)
	}
	externs := externpath.New(paths...)

	// Files whose package is supplied externally are dropped from
	// generation and from the index entirely; individually registered
	// type names are filtered later, during accessor emission.
	var local []*descriptorpb.FileDescriptorProto
	var packages, targets []string
	for _, fd := range fds.GetFile() {
		if !externs.IsLocal(fd.GetPackage()) {
			continue
		}
		local = append(local, fd)
		packages = append(packages, fd.GetPackage())
		targets = append(targets, fd.GetName())
	}

	tree, err := nstree.Build(packages)
	if err != nil {
		return errors.Wrap(err, "failed to build namespace tree")
	}

	if b.Generator != nil {
		units, err := b.Generator.Generate(ctx, fds, targets)
		if err != nil {
			return errors.Wrap(err, "failed to generate sources")
		}
		for _, u := range units {
			wrote, err := WriteIfChanged(filepath.Join(outDir, u.FileName), u.Content)
			if err != nil {
				return err
			}
			log.Debug("persisted package", zap.String("package", u.Package),
				zap.String("file", u.FileName), zap.Bool("wrote", wrote))
		}
	}

	em := declgen.Emitter{PackageName: b.RootPackage, Externs: externs}
	decl, err := em.Emit(tree, messageRecords(local))
	if err != nil {
		return errors.Wrap(err, "failed to emit declarations")
	}
	rootFile := b.RootFile
	if rootFile == "" {
		rootFile = "protos.pb.go"
	}
	wrote, err := WriteIfChanged(filepath.Join(outDir, rootFile), decl)
	if err != nil {
		return err
	}

	log.Info("build complete", zap.Int("packages", len(tree.Packages())),
		zap.String("index", rootFile), zap.Bool("indexRewritten", wrote))
	return nil
}

// FindProtos walks dir for .proto files. The returned names are
// relative to dir's parent, which is also returned as the include root
// handed to the compiler, so that import statements resolve against
// the directory layout the same way protoc's -I flag would.
func FindProtos(dir string) (files []string, include string, err error) {
	dir = filepath.Clean(dir)
	include = filepath.Dir(dir)
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || filepath.Ext(d.Name()) != ".proto" {
			return nil
		}
		rel, err := filepath.Rel(include, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, "", errors.Wrapf(err, "scanning %s for protos", dir)
	}
	return files, include, nil
}

// messageRecords flattens the message definitions of the given files,
// including nested messages, into accessor records. Synthetic map
// entry messages are skipped.
func messageRecords(files []*descriptorpb.FileDescriptorProto) []declgen.MessageRecord {
	var out []declgen.MessageRecord
	for _, fd := range files {
		pkg := fd.GetPackage()
		var walk func(prefix string, msgs []*descriptorpb.DescriptorProto)
		walk = func(prefix string, msgs []*descriptorpb.DescriptorProto) {
			for _, m := range msgs {
				if m.GetOptions().GetMapEntry() {
					continue
				}
				name := m.GetName()
				if prefix != "" {
					name = prefix + "." + name
				}
				out = append(out, declgen.MessageRecord{Package: pkg, Name: name})
				walk(name, m.GetNestedType())
			}
		}
		walk("", fd.GetMessageType())
	}
	return out
}
