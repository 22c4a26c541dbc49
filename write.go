package grpcbuild

import (
	"bytes"
	"io/fs"
	"os"

	"github.com/cockroachdb/errors"
)

// WriteIfChanged writes data to path unless the file already holds
// exactly those bytes. It reports whether a write occurred. Leaving
// unchanged files untouched keeps their modification times stable, so
// incremental build systems watching the output do not see phantom
// changes.
func WriteIfChanged(path string, data []byte) (bool, error) {
	prev, err := os.ReadFile(path)
	switch {
	case err == nil:
		if bytes.Equal(prev, data) {
			return false, nil
		}
	case !errors.Is(err, fs.ErrNotExist):
		return false, errors.Wrapf(err, "reading %s", path)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return false, errors.Wrapf(err, "writing %s", path)
	}
	return true, nil
}
