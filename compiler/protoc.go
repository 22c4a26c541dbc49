package compiler

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/descriptorpb"
)

const protocHint = "install protoc and add it to PATH, or point the PROTOC environment variable at the binary"

// Protoc compiles .proto sources by invoking an installed protoc
// binary with --include_imports --include_source_info, reading back
// the descriptor set it writes to a temporary file. The binary is
// located via Path, then the PROTOC environment variable, then PATH.
// A PROTOC_INCLUDE environment variable, if set, is added as an
// include path for the bundled well-known types.
type Protoc struct {
	// Path overrides discovery of the protoc executable.
	Path string
	// ExtraArgs are passed to protoc verbatim, before the file list.
	ExtraArgs []string
}

var _ Compiler = (*Protoc)(nil)

// Compile implements Compiler.
func (p *Protoc) Compile(ctx context.Context, files []string, includePaths []string) (*descriptorpb.FileDescriptorSet, error) {
	exe, err := p.executable()
	if err != nil {
		return nil, err
	}

	tmp, err := os.MkdirTemp("", "grpcbuild-")
	if err != nil {
		return nil, errors.Wrap(err, "creating temp dir for descriptor set")
	}
	defer func() {
		_ = os.RemoveAll(tmp)
	}()
	out := filepath.Join(tmp, "descriptor-set")

	args := []string{"--include_imports", "--include_source_info", "-o", out}
	for _, inc := range includePaths {
		args = append(args, "-I", inc)
	}
	if inc := os.Getenv("PROTOC_INCLUDE"); inc != "" {
		args = append(args, "-I", inc)
	}
	args = append(args, p.ExtraArgs...)
	args = append(args, files...)

	cmd := exec.CommandContext(ctx, exe, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, errors.Wrapf(err, "failed to invoke protoc: %s (hint: %s)",
			strings.TrimSpace(stderr.String()), protocHint)
	}

	raw, err := os.ReadFile(out)
	if err != nil {
		return nil, errors.Wrapf(err, "reading descriptor set %s", out)
	}
	var fds descriptorpb.FileDescriptorSet
	if err := proto.Unmarshal(raw, &fds); err != nil {
		return nil, errors.Wrap(err, "invalid FileDescriptorSet")
	}
	return &fds, nil
}

func (p *Protoc) executable() (string, error) {
	if p.Path != "" {
		return p.Path, nil
	}
	if env := os.Getenv("PROTOC"); env != "" {
		return env, nil
	}
	exe, err := exec.LookPath("protoc")
	if err != nil {
		return "", errors.Wrapf(err, "cannot find protoc (hint: %s)", protocHint)
	}
	return exe, nil
}
