// Package trajectory finds and reads OpenHands output.jsonl files.
package trajectory

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// FileName is the trajectory file OpenHands writes into a submission directory.
const FileName = "output.jsonl"

// ErrNotFound is returned when a submission directory has no trajectory file.
var ErrNotFound = errors.New("trajectory file not found")

// candidates are tried in order when resolving a submission directory.
var candidates = []string{FileName, FileName + ".gz", FileName + ".zst"}

// IsTrajectoryFile reports whether name is a plain or compressed output.jsonl.
func IsTrajectoryFile(name string) bool {
	for _, c := range candidates {
		if name == c {
			return true
		}
	}
	return false
}

// Resolve returns the trajectory file inside a submission directory.
func Resolve(submissionDir string) (string, error) {
	for _, c := range candidates {
		p := filepath.Join(submissionDir, c)
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNotFound, filepath.Join(submissionDir, FileName))
}

// Find returns every trajectory file below base, sorted by path.
func Find(base string) ([]string, error) {
	var found []string
	err := filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && IsTrajectoryFile(d.Name()) {
			found = append(found, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("searching %s: %w", base, err)
	}
	sort.Strings(found)
	return found, nil
}

// Open opens a trajectory file, decompressing .gz and .zst transparently.
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening trajectory file: %w", err)
	}

	switch {
	case strings.HasSuffix(path, ".gz"):
		zr, err := gzip.NewReader(f)
		if err != nil {
			f.Close() //nolint:errcheck
			return nil, fmt.Errorf("opening gzip stream %s: %w", path, err)
		}
		return &stackedCloser{Reader: zr, closers: []io.Closer{zr, f}}, nil
	case strings.HasSuffix(path, ".zst"):
		dec, err := zstd.NewReader(f)
		if err != nil {
			f.Close() //nolint:errcheck
			return nil, fmt.Errorf("opening zstd stream %s: %w", path, err)
		}
		rc := dec.IOReadCloser()
		return &stackedCloser{Reader: rc, closers: []io.Closer{rc, f}}, nil
	default:
		return f, nil
	}
}

type stackedCloser struct {
	io.Reader
	closers []io.Closer
}

func (s *stackedCloser) Close() error {
	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

// Line is one non-blank line of a trajectory file. Number is 1-based.
type Line struct {
	Number int
	Data   []byte
}

// ReadLines reads every line from r, trimming surrounding whitespace and
// dropping blank lines. The number of blank lines is returned alongside.
// Lines are not length limited; a single trajectory can run to many megabytes.
func ReadLines(r io.Reader) (lines []Line, blank int, err error) {
	br := bufio.NewReaderSize(r, 1<<20)
	for n := 1; ; n++ {
		raw, readErr := br.ReadBytes('\n')
		if len(raw) > 0 || readErr == nil {
			if data := bytes.TrimSpace(raw); len(data) == 0 {
				blank++
			} else {
				lines = append(lines, Line{Number: n, Data: data})
			}
		}
		if readErr == io.EOF {
			return lines, blank, nil
		}
		if readErr != nil {
			return lines, blank, fmt.Errorf("reading line %d: %w", n, readErr)
		}
	}
}

// ReadFile opens path and reads all of its lines.
func ReadFile(path string) ([]Line, int, error) {
	rc, err := Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer rc.Close() //nolint:errcheck
	return ReadLines(rc)
}
