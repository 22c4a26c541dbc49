package gen

import (
	"bytes"
	"context"
	"os/exec"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/pluginpb"
)

// Plugin generates code by executing a protoc-style plugin: a
// CodeGeneratorRequest is written to the child's stdin and a
// CodeGeneratorResponse is read back from its stdout. One request is
// issued per distinct package, in lexicographic package order, and the
// response files for a package are concatenated into a single Unit so
// that each package lands in exactly one output file.
type Plugin struct {
	// Path is the plugin executable to run.
	Path string
	// Parameter is passed through as the request parameter, the
	// equivalent of protoc's --<plugin>_opt flag.
	Parameter string
}

var _ Generator = (*Plugin)(nil)

// Generate implements Generator.
func (p *Plugin) Generate(ctx context.Context, fds *descriptorpb.FileDescriptorSet, targets []string) ([]Unit, error) {
	byPackage := make(map[string][]string)
	target := make(map[string]bool, len(targets))
	for _, name := range targets {
		target[name] = true
	}
	for _, fd := range fds.GetFile() {
		if target[fd.GetName()] {
			pkg := fd.GetPackage()
			byPackage[pkg] = append(byPackage[pkg], fd.GetName())
		}
	}

	packages := make([]string, 0, len(byPackage))
	for pkg := range byPackage {
		packages = append(packages, pkg)
	}
	sort.Strings(packages)

	units := make([]Unit, 0, len(packages))
	for _, pkg := range packages {
		content, err := p.run(ctx, fds, byPackage[pkg])
		if err != nil {
			return nil, errors.Wrapf(err, "generating package %q", pkg)
		}
		units = append(units, Unit{Package: pkg, FileName: FileName(pkg), Content: content})
	}
	return units, nil
}

func (p *Plugin) run(ctx context.Context, fds *descriptorpb.FileDescriptorSet, files []string) ([]byte, error) {
	req := &pluginpb.CodeGeneratorRequest{
		FileToGenerate: files,
		ProtoFile:      fds.GetFile(),
	}
	if p.Parameter != "" {
		req.Parameter = proto.String(p.Parameter)
	}
	raw, err := proto.Marshal(req)
	if err != nil {
		return nil, errors.Wrap(err, "marshaling CodeGeneratorRequest")
	}

	cmd := exec.CommandContext(ctx, p.Path)
	cmd.Stdin = bytes.NewReader(raw)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, errors.Wrapf(err, "plugin %s failed: %s", p.Path, strings.TrimSpace(stderr.String()))
	}

	resp := &pluginpb.CodeGeneratorResponse{}
	if err := proto.Unmarshal(stdout.Bytes(), resp); err != nil {
		return nil, errors.Wrapf(err, "plugin %s wrote an invalid CodeGeneratorResponse", p.Path)
	}
	if e := resp.GetError(); e != "" {
		return nil, errors.Newf("plugin %s: %s", p.Path, e)
	}

	var content bytes.Buffer
	for _, f := range resp.GetFile() {
		if f.GetInsertionPoint() != "" {
			return nil, errors.Newf("plugin %s: insertion points are not supported", p.Path)
		}
		if content.Len() > 0 {
			content.WriteByte('\n')
		}
		content.WriteString(f.GetContent())
	}
	return content.Bytes(), nil
}
