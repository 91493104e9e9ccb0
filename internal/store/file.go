package store

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// FileStore keeps the memo as a text file with one decimal value per line.
type FileStore struct {
	Path string
}

// NewFileStore returns a FileStore at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path}
}

// Load reads every value from the snapshot. Blank lines are skipped.
func (f *FileStore) Load(ctx context.Context) ([]uint64, error) {
	file, err := os.Open(f.Path)
	if err != nil {
		return nil, &Error{Kind: IoFailure, Op: "load", Path: f.Path, Err: err}
	}
	defer file.Close()

	var values []uint64
	scanner := bufio.NewScanner(file)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if lineNo%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, &Error{Kind: IoFailure, Op: "load", Path: f.Path, Err: err}
			}
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		v, err := strconv.ParseUint(line, 10, 64)
		if err != nil {
			return nil, &Error{Kind: DecodeFailure, Op: "load", Path: f.Path,
				Err: fmt.Errorf("line %d: %w", lineNo, err)}
		}
		if v == 0 {
			return nil, &Error{Kind: DecodeFailure, Op: "load", Path: f.Path,
				Err: fmt.Errorf("line %d: value must be positive", lineNo)}
		}
		values = append(values, v)
	}

	if err := scanner.Err(); err != nil {
		return nil, &Error{Kind: IoFailure, Op: "load", Path: f.Path, Err: err}
	}

	return values, nil
}

// Save writes values to a temporary file next to Path and renames it into place.
func (f *FileStore) Save(ctx context.Context, values []uint64) error {
	var buf bytes.Buffer
	for _, v := range values {
		if v == 0 {
			return &Error{Kind: EncodeFailure, Op: "save", Path: f.Path,
				Err: fmt.Errorf("refusing to persist zero")}
		}
		buf.WriteString(strconv.FormatUint(v, 10))
		buf.WriteByte('\n')
	}

	if err := ctx.Err(); err != nil {
		return &Error{Kind: IoFailure, Op: "save", Path: f.Path, Err: err}
	}

	dir := filepath.Dir(f.Path)
	tmp, err := os.CreateTemp(dir, filepath.Base(f.Path)+".*.tmp")
	if err != nil {
		return &Error{Kind: IoFailure, Op: "save", Path: f.Path, Err: err}
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return &Error{Kind: IoFailure, Op: "save", Path: f.Path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &Error{Kind: IoFailure, Op: "save", Path: f.Path, Err: err}
	}

	if err := os.Rename(tmpName, f.Path); err != nil {
		return &Error{Kind: IoFailure, Op: "save", Path: f.Path, Err: err}
	}

	return nil
}
