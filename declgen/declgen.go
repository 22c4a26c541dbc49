// Package declgen emits the root index source for a generated output
// directory: a single Go file declaring a nested structure that
// mirrors the protobuf package hierarchy, followed by a MessageName
// accessor method for every locally generated message. Emission is
// byte-deterministic: the same tree and message set always produce
// identical output, regardless of the order inputs were supplied in.
package declgen

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/grpcbuild/grpcbuild/externpath"
	"github.com/grpcbuild/grpcbuild/gen"
	"github.com/grpcbuild/grpcbuild/nstree"
)

// ErrIdentifierCollision is returned when two distinct namespace
// segments map to the same Go identifier even after disambiguation.
var ErrIdentifierCollision = errors.New("namespace segments collide after identifier mapping")

// reservedIdent is the record type declared by the emitted file. A
// segment mapping to it is suffixed with an underscore so it cannot
// shadow the embedded terminal record.
const reservedIdent = "Package"

// MessageRecord describes one message for accessor emission. Name may
// be a dotted path for nested messages ("Outer.Inner").
type MessageRecord struct {
	// Package is the enclosing package's dotted name, empty for the
	// default package.
	Package string
	// Name is the message name relative to Package.
	Name string
}

// FullName returns the canonical dotted protobuf name of the message.
func (m MessageRecord) FullName() string {
	if m.Package == "" {
		return m.Name
	}
	return m.Package + "." + m.Name
}

// GoTypeName returns the Go type identifier the paired generator
// assigns to the message.
func (m MessageRecord) GoTypeName() string {
	return GoCamelCase(m.Package) + GoCamelCase(m.Name)
}

// Emitter produces the root index source. The zero value emits into Go
// package "protos" with no extern filtering.
type Emitter struct {
	// PackageName is the package clause of the emitted file.
	PackageName string
	// Externs drops accessor emission for externally supplied types.
	Externs externpath.Set
}

// Emit renders the index for the given tree and messages. Messages
// whose fully-qualified name is registered in Externs, directly or via
// a namespace prefix, are omitted. Emission fails only when two
// sibling segments cannot be told apart after identifier mapping.
func (e *Emitter) Emit(tree *nstree.Tree, messages []MessageRecord) ([]byte, error) {
	idents, err := identify(tree)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	pkgName := e.PackageName
	if pkgName == "" {
		pkgName = "protos"
	}
	buf.WriteString("// Code generated by grpcbuild. DO NOT EDIT.\n\n")
	fmt.Fprintf(&buf, "package %s\n", pkgName)

	buf.WriteString(`
// Package identifies one generated protobuf package within this
// directory.
type Package struct {
	// Name is the dotted protobuf package name, empty for the default
	// package.
	Name string
	// File is the generated source file carrying the package.
	File string
}
`)

	buf.WriteString("\n// Packages mirrors the protobuf package hierarchy of the generated\n// sources.\nvar Packages = ")
	writeContainer(&buf, tree, nstree.Root, idents, 0)
	buf.WriteString("{}\n")

	writeInit(&buf, tree, idents)
	e.writeAccessors(&buf, messages)
	return buf.Bytes(), nil
}

// identify maps every node to its container identifier and rejects
// sibling collisions.
func identify(tree *nstree.Tree) (map[nstree.NodeID]string, error) {
	idents := make(map[nstree.NodeID]string, tree.Len())
	var walk func(nstree.NodeID) error
	walk = func(id nstree.NodeID) error {
		seen := make(map[string]nstree.NodeID)
		for _, child := range tree.Children(id) {
			ident := GoCamelCase(tree.Segment(child))
			if ident == reservedIdent {
				ident += "_"
			}
			if prev, ok := seen[ident]; ok {
				return errors.Wrapf(ErrIdentifierCollision,
					"%q and %q both map to %q", tree.Segment(prev), tree.Segment(child), ident)
			}
			seen[ident] = child
			idents[child] = ident
			if err := walk(child); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(nstree.Root); err != nil {
		return nil, err
	}
	return idents, nil
}

// writeContainer renders the anonymous struct type for id. It writes
// no trailing newline; the caller terminates the line.
func writeContainer(buf *bytes.Buffer, tree *nstree.Tree, id nstree.NodeID, idents map[nstree.NodeID]string, depth int) {
	children := tree.Children(id)
	if len(children) == 0 && !tree.IsTerminal(id) {
		buf.WriteString("struct{}")
		return
	}
	indent := strings.Repeat("\t", depth)
	buf.WriteString("struct {\n")
	if tree.IsTerminal(id) {
		buf.WriteString(indent + "\tPackage\n")
	}
	for _, child := range children {
		buf.WriteString(indent + "\t" + idents[child] + " ")
		if len(tree.Children(child)) == 0 {
			buf.WriteString("Package\n")
		} else {
			writeContainer(buf, tree, child, idents, depth+1)
			buf.WriteString("\n")
		}
	}
	buf.WriteString(indent + "}")
}

// writeInit renders the assignments that populate the terminal entries
// of Packages, in depth-first lexicographic order.
func writeInit(buf *bytes.Buffer, tree *nstree.Tree, idents map[nstree.NodeID]string) {
	var assigns []string
	var walk func(id nstree.NodeID, path string)
	walk = func(id nstree.NodeID, path string) {
		if tree.IsTerminal(id) {
			target := path
			if id == nstree.Root || len(tree.Children(id)) > 0 {
				// The record is embedded next to child containers.
				target += "." + reservedIdent
			}
			full := tree.FullPath(id)
			assigns = append(assigns, fmt.Sprintf("%s = Package{Name: %q, File: %q}", target, full, gen.FileName(full)))
		}
		for _, child := range tree.Children(id) {
			walk(child, path+"."+idents[child])
		}
	}
	walk(nstree.Root, "Packages")

	if len(assigns) == 0 {
		return
	}
	buf.WriteString("\nfunc init() {\n")
	for _, a := range assigns {
		buf.WriteString("\t" + a + "\n")
	}
	buf.WriteString("}\n")
}

// writeAccessors renders one MessageName method per local message,
// sorted by canonical name. Duplicate records collapse to one method.
func (e *Emitter) writeAccessors(buf *bytes.Buffer, messages []MessageRecord) {
	local := make([]MessageRecord, 0, len(messages))
	seen := make(map[string]bool, len(messages))
	for _, m := range messages {
		full := m.FullName()
		if seen[full] || !e.Externs.IsLocal(full) {
			continue
		}
		seen[full] = true
		local = append(local, m)
	}
	sort.Slice(local, func(i, j int) bool {
		return local[i].FullName() < local[j].FullName()
	})

	for _, m := range local {
		goType := m.GoTypeName()
		fmt.Fprintf(buf, "\n// MessageName reports the canonical protobuf type name of %s.\nfunc (*%s) MessageName() string {\n\treturn %q\n}\n", goType, goType, m.FullName())
	}
}
