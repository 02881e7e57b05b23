package layer

import (
	"bytes"
	"encoding/gob"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/pierrec/lz4/v4"

	"github.com/axesdev/axes/internal/axerr"
	"github.com/axesdev/axes/internal/script/ast"
)

// CacheDirEnv overrides the default compiled-layer cache root, mirroring
// the identity store's own AXES_CONFIG_DIR override.
const CacheDirEnv = "AXES_CACHE_DIR"

// DefaultCacheDir returns the root directory compiled-layer cache files
// live under: $AXES_CACHE_DIR/layers, or $XDG_CACHE_HOME/axes/layers, or
// os.UserCacheDir()/axes/layers.
func DefaultCacheDir() (string, error) {
	if v := os.Getenv(CacheDirEnv); v != "" {
		return filepath.Join(v, "layers"), nil
	}
	base, err := os.UserCacheDir()
	if err != nil {
		return "", axerr.Wrap(axerr.IOError, "resolve cache directory", err)
	}
	return filepath.Join(base, "axes", "layers"), nil
}

func cacheFilePath(root string, project uuid.UUID, hash string) string {
	return filepath.Join(root, project.String(), hash+".axl")
}

// readCache loads and decompresses a compiled layer from its cache
// file. A missing file is reported as (nil, nil) — a plain cache miss,
// not an error. A file present but undecodable is LayerDecodeFailed,
// which the caller treats exactly like a miss (§4.4).
func readCache(root string, project uuid.UUID, hash string) (*ast.CompiledLayer, error) {
	path := cacheFilePath(root, project, hash)
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, axerr.Wrap(axerr.IOError, "read compiled layer cache", err)
	}

	decompressed, err := decompress(raw)
	if err != nil {
		return nil, axerr.Wrap(axerr.LayerDecodeFailed, "decompress compiled layer cache", err)
	}

	var layer ast.CompiledLayer
	if err := gob.NewDecoder(bytes.NewReader(decompressed)).Decode(&layer); err != nil {
		return nil, axerr.Wrap(axerr.LayerDecodeFailed, "decode compiled layer cache", err)
	}
	return &layer, nil
}

// writeCache gob-encodes and LZ4-compresses layer, writing it to its
// content-hash-keyed cache file atomically (temp file + rename).
func writeCache(root string, project uuid.UUID, hash string, layer *ast.CompiledLayer) error {
	var plain bytes.Buffer
	if err := gob.NewEncoder(&plain).Encode(layer); err != nil {
		return axerr.Wrap(axerr.IOError, "encode compiled layer", err)
	}
	compressed, err := compress(plain.Bytes())
	if err != nil {
		return axerr.Wrap(axerr.IOError, "compress compiled layer", err)
	}

	dir := filepath.Join(root, project.String())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return axerr.Wrap(axerr.IOError, "create compiled layer cache dir", err)
	}

	tmp, err := os.CreateTemp(dir, ".layer-*.tmp")
	if err != nil {
		return axerr.Wrap(axerr.IOError, "create compiled layer temp file", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(compressed); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return axerr.Wrap(axerr.IOError, "write compiled layer temp file", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return axerr.Wrap(axerr.IOError, "close compiled layer temp file", err)
	}
	if err := os.Rename(tmpPath, cacheFilePath(root, project, hash)); err != nil {
		os.Remove(tmpPath)
		return axerr.Wrap(axerr.IOError, "rename compiled layer cache into place", err)
	}
	return nil
}

func compress(plain []byte) ([]byte, error) {
	var out bytes.Buffer
	w := lz4.NewWriter(&out)
	if _, err := w.Write(plain); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func decompress(compressed []byte) ([]byte, error) {
	r := lz4.NewReader(bytes.NewReader(compressed))
	var out bytes.Buffer
	if _, err := out.ReadFrom(r); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}
