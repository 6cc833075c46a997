package vectorindex

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/jonathan/siteqa/internal/logging"
	"github.com/jonathan/siteqa/internal/schemas"
	"github.com/jonathan/siteqa/internal/types"
	schemafiles "github.com/jonathan/siteqa/schemas"
)

const (
	snapshotVersion = 1
	indexSuffix     = "_index.bin"
	chunksSuffix    = "_chunks.json"
)

// indexMagic opens every matrix file.
var indexMagic = [4]byte{'S', 'Q', 'I', 'X'}

// matrixHeader precedes the little-endian float32 rows in the matrix file.
type matrixHeader struct {
	Magic     [4]byte
	Version   uint32
	Dimension uint32
	Rows      uint64
}

// chunkSnapshot is the JSON companion of the matrix file.
type chunkSnapshot struct {
	Version   int           `json:"version"`
	Dimension int           `json:"dimension"`
	Chunks    []types.Chunk `json:"chunks"`
}

// SnapshotPaths returns the matrix and chunk file paths for prefix.
func SnapshotPaths(prefix string) (indexPath, chunksPath string) {
	return prefix + indexSuffix, prefix + chunksSuffix
}

// SnapshotExists reports whether both snapshot files for prefix are present.
func SnapshotExists(prefix string) bool {
	indexPath, chunksPath := SnapshotPaths(prefix)
	if _, err := os.Stat(indexPath); err != nil {
		return false
	}
	_, err := os.Stat(chunksPath)
	return err == nil
}

// Persist writes the matrix and the chunk list next to each other. Each file is written to a temporary
// name and renamed into place, so readers never observe a half-written file.
func (ix *Index) Persist(prefix string) error {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	indexPath, chunksPath := SnapshotPaths(prefix)
	if dir := filepath.Dir(indexPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return &PersistenceError{Path: dir, Message: "failed to create directory", Cause: err}
		}
	}

	var matrix bytes.Buffer
	header := matrixHeader{
		Magic:     indexMagic,
		Version:   snapshotVersion,
		Dimension: uint32(ix.dimension),
		Rows:      uint64(len(ix.chunks)),
	}
	if err := binary.Write(&matrix, binary.LittleEndian, header); err != nil {
		return &PersistenceError{Path: indexPath, Message: "failed to encode header", Cause: err}
	}
	if ix.matrix != nil {
		if err := binary.Write(&matrix, binary.LittleEndian, ix.matrix.data); err != nil {
			return &PersistenceError{Path: indexPath, Message: "failed to encode matrix", Cause: err}
		}
	}

	chunksJSON, err := json.Marshal(chunkSnapshot{
		Version:   snapshotVersion,
		Dimension: ix.dimension,
		Chunks:    ix.chunks,
	})
	if err != nil {
		return &PersistenceError{Path: chunksPath, Message: "failed to encode chunks", Cause: err}
	}

	if err := writeFileAtomic(indexPath, matrix.Bytes()); err != nil {
		return err
	}
	if err := writeFileAtomic(chunksPath, chunksJSON); err != nil {
		return err
	}

	logging.Infof("[INDEX] Saved %d chunks to %s and %s", len(ix.chunks), indexPath, chunksPath)
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return &PersistenceError{Path: path, Message: "failed to create temp file", Cause: err}
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return &PersistenceError{Path: path, Message: "failed to write temp file", Cause: err}
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return &PersistenceError{Path: path, Message: "failed to sync temp file", Cause: err}
	}
	if err := tmp.Close(); err != nil {
		return &PersistenceError{Path: path, Message: "failed to close temp file", Cause: err}
	}
	if err := os.Rename(tmpName, path); err != nil {
		return &PersistenceError{Path: path, Message: "failed to rename temp file", Cause: err}
	}
	return nil
}

// Load replaces the index contents with the snapshot at prefix. On any failure the index is reset
// to empty, a warning is logged and the *PersistenceError is returned.
func (ix *Index) Load(prefix string) error {
	matrix, chunks, err := ix.readSnapshot(prefix)

	ix.mu.Lock()
	defer ix.mu.Unlock()

	if err != nil {
		ix.matrix = nil
		ix.chunks = []types.Chunk{}
		logging.Warnf("[INDEX] Failed to load snapshot %s, starting empty: %v", prefix, err)
		return err
	}

	ix.matrix = matrix
	ix.chunks = chunks
	logging.Infof("[INDEX] Loaded %d chunks from %s", len(chunks), prefix)
	return nil
}

func (ix *Index) readSnapshot(prefix string) (*flatL2, []types.Chunk, error) {
	indexPath, chunksPath := SnapshotPaths(prefix)

	matrix, err := ix.readMatrix(indexPath)
	if err != nil {
		return nil, nil, err
	}

	raw, err := os.ReadFile(chunksPath)
	if err != nil {
		return nil, nil, &PersistenceError{Path: chunksPath, Message: "failed to read chunks", Cause: err}
	}
	if err := schemas.Validate(schemafiles.ChunkSnapshot, string(raw)); err != nil {
		return nil, nil, &PersistenceError{Path: chunksPath, Message: "chunk snapshot does not match schema", Cause: err}
	}
	var snapshot chunkSnapshot
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		return nil, nil, &PersistenceError{Path: chunksPath, Message: "failed to decode chunks", Cause: err}
	}

	if snapshot.Dimension != ix.dimension {
		return nil, nil, &PersistenceError{
			Path:    chunksPath,
			Message: fmt.Sprintf("snapshot dimension %d does not match index dimension %d", snapshot.Dimension, ix.dimension),
		}
	}
	rows := 0
	if matrix != nil {
		rows = matrix.rows()
	}
	if rows != len(snapshot.Chunks) {
		return nil, nil, &PersistenceError{
			Path:    prefix,
			Message: fmt.Sprintf("matrix has %d rows but snapshot has %d chunks", rows, len(snapshot.Chunks)),
		}
	}
	for i := range snapshot.Chunks {
		if !equalRow(snapshot.Chunks[i].Embedding, matrix.row(i)) {
			return nil, nil, &PersistenceError{Path: prefix, Message: fmt.Sprintf("chunk %d embedding does not match matrix row", i)}
		}
	}
	if snapshot.Chunks == nil {
		snapshot.Chunks = []types.Chunk{}
	}
	return matrix, snapshot.Chunks, nil
}

// readMatrix decodes a matrix file. An empty matrix decodes to nil.
func (ix *Index) readMatrix(path string) (*flatL2, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &PersistenceError{Path: path, Message: "failed to open matrix", Cause: err}
	}
	defer func() { _ = f.Close() }()

	var header matrixHeader
	if err := binary.Read(f, binary.LittleEndian, &header); err != nil {
		return nil, &PersistenceError{Path: path, Message: "failed to read header", Cause: err}
	}
	if header.Magic != indexMagic || header.Version != snapshotVersion {
		return nil, &PersistenceError{Path: path, Message: "not a siteqa matrix file"}
	}
	if int(header.Dimension) != ix.dimension {
		return nil, &PersistenceError{
			Path:    path,
			Message: fmt.Sprintf("matrix dimension %d does not match index dimension %d", header.Dimension, ix.dimension),
		}
	}
	if header.Rows == 0 {
		return nil, nil
	}
	if header.Rows > math.MaxInt32/uint64(ix.dimension) {
		return nil, &PersistenceError{Path: path, Message: fmt.Sprintf("implausible row count %d", header.Rows)}
	}

	m := newFlatL2(ix.dimension)
	m.data = make([]float32, int(header.Rows)*ix.dimension)
	if err := binary.Read(f, binary.LittleEndian, m.data); err != nil {
		return nil, &PersistenceError{Path: path, Message: "failed to read matrix rows", Cause: err}
	}
	if _, err := f.Read(make([]byte, 1)); !errors.Is(err, io.EOF) {
		return nil, &PersistenceError{Path: path, Message: "trailing data after matrix rows"}
	}
	return m, nil
}

func equalRow(a, b []float32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
