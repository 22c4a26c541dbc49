package gen_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/pluginpb"

	"github.com/grpcbuild/grpcbuild/gen"
)

func TestFileName(t *testing.T) {
	require.Equal(t, "a.b.pb.go", gen.FileName("a.b"))
	require.Equal(t, "single.pb.go", gen.FileName("single"))
	require.Equal(t, "_.pb.go", gen.FileName(""))
}

func descriptorSet() *descriptorpb.FileDescriptorSet {
	file := func(name, pkg string) *descriptorpb.FileDescriptorProto {
		return &descriptorpb.FileDescriptorProto{
			Name:    proto.String(name),
			Package: proto.String(pkg),
			Syntax:  proto.String("proto3"),
		}
	}
	return &descriptorpb.FileDescriptorSet{
		File: []*descriptorpb.FileDescriptorProto{
			file("x/one.proto", "x.one"),
			file("x/two.proto", "x.two"),
			file("dep/dep.proto", "dep"),
		},
	}
}

// fakePlugin writes a script that captures its stdin to reqPath and
// replies with the serialized response.
func fakePlugin(t *testing.T, reqPath string, resp *pluginpb.CodeGeneratorResponse) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake plugin script requires a POSIX shell")
	}
	dir := t.TempDir()
	respPath := filepath.Join(dir, "resp.bin")
	raw, err := proto.Marshal(resp)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(respPath, raw, 0o644))

	script := filepath.Join(dir, "plugin.sh")
	body := fmt.Sprintf("#!/bin/sh\ncat > %q\nexec cat %q\n", reqPath, respPath)
	require.NoError(t, os.WriteFile(script, []byte(body), 0o755))
	return script
}

func TestPluginGenerate(t *testing.T) {
	reqPath := filepath.Join(t.TempDir(), "req.bin")
	resp := &pluginpb.CodeGeneratorResponse{
		File: []*pluginpb.CodeGeneratorResponse_File{
			{Name: proto.String("one.pb.go"), Content: proto.String("// body\n")},
		},
	}
	p := &gen.Plugin{Path: fakePlugin(t, reqPath, resp), Parameter: "paths=flat"}

	units, err := p.Generate(context.Background(), descriptorSet(), []string{"x/one.proto"})
	require.NoError(t, err)
	require.Len(t, units, 1)
	require.Equal(t, "x.one", units[0].Package)
	require.Equal(t, "x.one.pb.go", units[0].FileName)
	require.Equal(t, "// body\n", string(units[0].Content))

	// The plugin must have seen the target file, the full descriptor
	// set, and the pass-through parameter.
	raw, err := os.ReadFile(reqPath)
	require.NoError(t, err)
	var req pluginpb.CodeGeneratorRequest
	require.NoError(t, proto.Unmarshal(raw, &req))
	require.Equal(t, []string{"x/one.proto"}, req.GetFileToGenerate())
	require.Len(t, req.GetProtoFile(), 3)
	require.Equal(t, "paths=flat", req.GetParameter())
}

func TestPluginGeneratePackageOrder(t *testing.T) {
	reqPath := filepath.Join(t.TempDir(), "req.bin")
	resp := &pluginpb.CodeGeneratorResponse{
		File: []*pluginpb.CodeGeneratorResponse_File{
			{Name: proto.String("out.pb.go"), Content: proto.String("// body\n")},
		},
	}
	p := &gen.Plugin{Path: fakePlugin(t, reqPath, resp)}

	units, err := p.Generate(context.Background(), descriptorSet(),
		[]string{"x/two.proto", "x/one.proto"})
	require.NoError(t, err)
	require.Len(t, units, 2)
	require.Equal(t, "x.one", units[0].Package, "units must be ordered by package")
	require.Equal(t, "x.two", units[1].Package)
}

func TestPluginGenerateReportsError(t *testing.T) {
	reqPath := filepath.Join(t.TempDir(), "req.bin")
	resp := &pluginpb.CodeGeneratorResponse{Error: proto.String("something broke")}
	p := &gen.Plugin{Path: fakePlugin(t, reqPath, resp)}

	_, err := p.Generate(context.Background(), descriptorSet(), []string{"x/one.proto"})
	require.Error(t, err)
	require.ErrorContains(t, err, "something broke")
	require.ErrorContains(t, err, `package "x.one"`)
}

func TestPluginGenerateRejectsInsertionPoints(t *testing.T) {
	reqPath := filepath.Join(t.TempDir(), "req.bin")
	resp := &pluginpb.CodeGeneratorResponse{
		File: []*pluginpb.CodeGeneratorResponse_File{
			{Name: proto.String("one.pb.go"), InsertionPoint: proto.String("imports"), Content: proto.String("x")},
		},
	}
	p := &gen.Plugin{Path: fakePlugin(t, reqPath, resp)}

	_, err := p.Generate(context.Background(), descriptorSet(), []string{"x/one.proto"})
	require.Error(t, err)
	require.ErrorContains(t, err, "insertion points are not supported")
}

func TestPluginMissingExecutable(t *testing.T) {
	p := &gen.Plugin{Path: filepath.Join(t.TempDir(), "absent")}
	_, err := p.Generate(context.Background(), descriptorSet(), []string{"x/one.proto"})
	require.Error(t, err)
}
