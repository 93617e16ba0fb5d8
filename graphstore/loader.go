package graphstore

import (
	"bufio"
	"context"
	"io"
	"os"
	"strings"

	"golang.org/x/xerrors"
)

// MaxLineLength is the maximum length in bytes of a single adjacency record.
const MaxLineLength = 1 << 20

// Load parses a textual adjacency description from r and returns the graph
// it describes.
//
// Each non-blank line holds one record: a source ID, an optional ":"
// separator and zero or more whitespace-separated destination IDs. Lines
// whose first non-blank character is '#' or '%' are comments. The ":"
// separator may either trail the source ID ("a: b c") or be a token of its
// own ("a : b c"); IDs may otherwise contain colons so URLs work as IDs.
//
// Errors carry the offending line number as a *LineError and unwrap to
// ErrMalformedInput or ErrDanglingReference.
func Load(r io.Reader, mode DeclarationMode) (*Graph, error) {
	var (
		b        = NewBuilder(mode)
		firstRef = make(map[string]int)
		scanner  = bufio.NewScanner(r)
		lineNo   int
	)
	scanner.Buffer(make([]byte, 0, 64*1024), MaxLineLength)

	for scanner.Scan() {
		lineNo++
		src, dsts, err := parseRecord(scanner.Text())
		if err != nil {
			return nil, &LineError{Line: lineNo, Err: err}
		} else if src == "" {
			continue
		}

		if err = b.AddVertex(src); err != nil {
			return nil, &LineError{Line: lineNo, Err: xerrors.Errorf("%v: %w", err, ErrMalformedInput)}
		}
		for _, dst := range dsts {
			if err = b.AddEdge(src, dst); err != nil {
				return nil, &LineError{Line: lineNo, Err: xerrors.Errorf("%v: %w", err, ErrMalformedInput)}
			}
			if _, seen := firstRef[dst]; !seen {
				firstRef[dst] = lineNo
			}
		}
	}

	if err := scanner.Err(); err != nil {
		if xerrors.Is(err, bufio.ErrTooLong) {
			return nil, &LineError{Line: lineNo + 1, Err: xerrors.Errorf("line exceeds %d bytes: %w", MaxLineLength, ErrMalformedInput)}
		}
		return nil, xerrors.Errorf("read graph: %w", err)
	}

	g, err := b.Build()
	if err != nil {
		var refErr *ReferenceError
		if xerrors.As(err, &refErr) {
			return nil, &LineError{Line: firstRef[refErr.Dst], Err: err}
		}
		return nil, err
	}
	return g, nil
}

// parseRecord splits a single input line into a source ID and its
// destination IDs. Blank and comment lines yield an empty source.
func parseRecord(line string) (string, []string, error) {
	tokens := strings.Fields(line)
	if len(tokens) == 0 || strings.HasPrefix(tokens[0], "#") || strings.HasPrefix(tokens[0], "%") {
		return "", nil, nil
	}

	src, dsts := tokens[0], tokens[1:]
	switch {
	case src == ":" || strings.HasPrefix(src, ":"):
		return "", nil, xerrors.Errorf("missing source ID: %w", ErrMalformedInput)
	case strings.HasSuffix(src, ":"):
		src = strings.TrimSuffix(src, ":")
	case len(dsts) != 0 && dsts[0] == ":":
		dsts = dsts[1:]
	}

	for _, dst := range dsts {
		if dst == ":" || strings.HasSuffix(dst, ":") {
			return "", nil, xerrors.Errorf("misplaced ':' separator: %w", ErrMalformedInput)
		}
	}

	return src, dsts, nil
}

// LoadFile opens the file at path and parses it using Load.
func LoadFile(path string, mode DeclarationMode) (*Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, xerrors.Errorf("open graph file: %w", err)
	}
	defer func() { _ = f.Close() }()

	g, err := Load(f, mode)
	if err != nil {
		return nil, xerrors.Errorf("load %s: %w", path, err)
	}
	return g, nil
}

// FileSource loads graphs from a file on the local filesystem.
type FileSource struct {
	Path string
	Mode DeclarationMode
}

// Load reads the graph from the configured path.
func (s FileSource) Load(ctx context.Context) (*Graph, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return LoadFile(s.Path, s.Mode)
}
