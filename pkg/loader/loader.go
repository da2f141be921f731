// Package loader reads every *.log file in a directory and turns it into
// one newest-first sequence of records.
package loader

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/mchurichi/logdash/internal/logger"
	"github.com/mchurichi/logdash/internal/metrics"
	"github.com/mchurichi/logdash/pkg/parser"
	"github.com/mchurichi/logdash/pkg/record"
)

const (
	// Pattern selects the files that are ingested.
	Pattern = "*.log"
	// DefaultMaxLineSize bounds a single line, terminator included. Longer
	// lines are dropped like malformed ones.
	DefaultMaxLineSize = 1024 * 1024
)

// ErrInvalidEncoding marks a file that is not valid UTF-8 text.
var ErrInvalidEncoding = errors.New("invalid utf-8")

// Loader reads log files from one directory. It keeps no state between
// calls, so one Loader can serve concurrent queries.
type Loader struct {
	dir         string
	parser      parser.Parser
	maxLineSize int
}

// Option configures a Loader.
type Option func(*Loader)

// WithMaxLineSize sets the longest accepted line in bytes.
func WithMaxLineSize(n int) Option {
	return func(l *Loader) {
		if n > 0 {
			l.maxLineSize = n
		}
	}
}

// WithParser replaces the line parser.
func WithParser(p parser.Parser) Option {
	return func(l *Loader) {
		if p != nil {
			l.parser = p
		}
	}
}

// New creates a Loader for dir.
func New(dir string, opts ...Option) *Loader {
	l := &Loader{
		dir:         dir,
		parser:      parser.NewLineParser(),
		maxLineSize: DefaultMaxLineSize,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Dir returns the directory the loader reads from.
func (l *Loader) Dir() string {
	return l.dir
}

// Files returns the paths of the eligible log files, sorted by name.
// Subdirectories and hidden files are not considered.
func (l *Loader) Files() ([]string, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, fmt.Errorf("read log directory: %w", err)
	}

	var paths []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		if ok, _ := filepath.Match(Pattern, name); !ok {
			continue
		}
		paths = append(paths, filepath.Join(l.dir, name))
	}
	return paths, nil
}

// Load parses every eligible file and returns all records, newest first.
// Records with equal timestamps keep file-name order, then line order.
// An unreadable file is logged and skipped; an unreadable directory fails
// the load.
func (l *Loader) Load(ctx context.Context) ([]*record.Record, error) {
	log := logger.Get(ctx)

	paths, err := l.Files()
	if err != nil {
		return nil, err
	}

	var all []*record.Record
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		records, err := l.LoadFile(path)
		if err != nil {
			metrics.FilesSkipped.Inc()
			log.Warnw("skipping unreadable log file", "file", path, "error", err)
			continue
		}
		all = append(all, records...)
	}

	SortNewestFirst(all)
	log.Debugw("loaded log directory", "dir", l.dir, "files", len(paths), "records", len(all))
	return all, nil
}

// LoadFile parses one file. Lines that do not parse, and lines longer than
// the maximum line size, are dropped. An open or read error, or invalid
// UTF-8, discards the file's records entirely.
func (l *Loader) LoadFile(path string) ([]*record.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	name := filepath.Base(path)
	reader := bufio.NewReaderSize(f, l.maxLineSize)

	var records []*record.Record
	rejected := 0
	for {
		chunk, err := reader.ReadSlice('\n')
		if errors.Is(err, bufio.ErrBufferFull) {
			rejected++
			if err = skipLine(reader); err == io.EOF {
				break
			}
			if err != nil {
				return nil, fmt.Errorf("read %s: %w", path, err)
			}
			continue
		}
		if err != nil && err != io.EOF {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}

		if len(chunk) > 0 {
			line := string(trimLineEnd(chunk))
			if !utf8.ValidString(line) {
				return nil, fmt.Errorf("read %s: %w", path, ErrInvalidEncoding)
			}
			if entry, perr := l.parser.Parse(line); perr == nil {
				entry.SourceFile = name
				records = append(records, entry)
			} else {
				rejected++
			}
		}
		if err == io.EOF {
			break
		}
	}

	metrics.LinesRejected.Add(float64(rejected))
	return records, nil
}

// skipLine discards input up to and including the next newline.
func skipLine(r *bufio.Reader) error {
	for {
		_, err := r.ReadSlice('\n')
		if !errors.Is(err, bufio.ErrBufferFull) {
			return err
		}
	}
}

func trimLineEnd(b []byte) []byte {
	b = bytes.TrimSuffix(b, []byte("\n"))
	return bytes.TrimSuffix(b, []byte("\r"))
}

// SortNewestFirst orders records by timestamp, most recent first. The sort
// is stable.
func SortNewestFirst(records []*record.Record) {
	slices.SortStableFunc(records, func(a, b *record.Record) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
}
