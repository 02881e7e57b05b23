package identity

import (
	"bytes"
	"encoding/gob"
	"os"
	"path/filepath"

	"github.com/axesdev/axes/internal/axerr"
)

// LocalRefFileName is the sidecar file written into a project's private
// directory at init time.
const LocalRefFileName = "ref.bin"

// LocalRefDir is the private directory (relative to the project root)
// the sidecar file lives under.
const LocalRefDir = ".axes"

// WriteLocalRef writes (or overwrites) the local reference file inside
// projectPath/.axes/ref.bin.
func WriteLocalRef(projectPath string, ref LocalRef) error {
	dir := filepath.Join(projectPath, LocalRefDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return axerr.Wrap(axerr.IOError, "create local reference directory", err)
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(ref); err != nil {
		return axerr.Wrap(axerr.IOError, "encode local reference", err)
	}

	finalPath := filepath.Join(dir, LocalRefFileName)
	tmp, err := os.CreateTemp(dir, ".ref-*.tmp")
	if err != nil {
		return axerr.Wrap(axerr.IOError, "create local reference temp file", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return axerr.Wrap(axerr.IOError, "write local reference temp file", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return axerr.Wrap(axerr.IOError, "close local reference temp file", err)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		return axerr.Wrap(axerr.IOError, "rename local reference into place", err)
	}
	return nil
}

// ReadLocalRef reads a project's local reference sidecar file.
func ReadLocalRef(projectPath string) (LocalRef, error) {
	path := filepath.Join(projectPath, LocalRefDir, LocalRefFileName)
	b, err := os.ReadFile(path)
	if err != nil {
		return LocalRef{}, axerr.Wrap(axerr.IOError, "read local reference", err)
	}
	var ref LocalRef
	if err := gob.NewDecoder(bytes.NewReader(b)).Decode(&ref); err != nil {
		return LocalRef{}, axerr.Wrap(axerr.IndexCorrupt, "decode local reference", err)
	}
	return ref, nil
}

// DeleteLocalRef removes a project's local reference sidecar directory.
func DeleteLocalRef(projectPath string) error {
	dir := filepath.Join(projectPath, LocalRefDir)
	if err := os.RemoveAll(dir); err != nil {
		return axerr.Wrap(axerr.IOError, "delete local reference directory", err)
	}
	return nil
}
