package declgen_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/grpcbuild/grpcbuild/declgen"
)

func TestGoCamelCase(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"foo", "Foo"},
		{"foo_bar", "FooBar"},
		{"fooBar", "FooBar"},
		{"grpc_build", "GrpcBuild"},
		{"grpc_build.response.helloworld", "GrpcBuildResponseHelloworld"},
		{"Outer.Inner", "Outer_Inner"},
		{"_foo", "XFoo"},
		{"foo2bar", "Foo2Bar"},
		{"v1", "V1"},
		{"HelloReply", "HelloReply"},
		{"", ""},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, declgen.GoCamelCase(tc.in), "GoCamelCase(%q)", tc.in)
	}
}

func TestMessageRecordNames(t *testing.T) {
	m := declgen.MessageRecord{Package: "grpc_build.response.helloworld", Name: "HelloReply"}
	require.Equal(t, "grpc_build.response.helloworld.HelloReply", m.FullName())
	require.Equal(t, "GrpcBuildResponseHelloworldHelloReply", m.GoTypeName())

	nested := declgen.MessageRecord{Package: "p.q", Name: "Outer.Inner"}
	require.Equal(t, "p.q.Outer.Inner", nested.FullName())
	require.Equal(t, "PQOuter_Inner", nested.GoTypeName())

	bare := declgen.MessageRecord{Name: "M"}
	require.Equal(t, "M", bare.FullName())
	require.Equal(t, "M", bare.GoTypeName())
}
