package cdb

import (
	"database/sql"

	"golang.org/x/xerrors"
)

// vertexIterator walks the rows of the vertices table.
type vertexIterator struct {
	rows      *sql.Rows
	lastErr   error
	latchedID string
}

// Next advances the iterator. It returns false once all rows have been
// consumed or an error occurs.
func (i *vertexIterator) Next() bool {
	if i.lastErr != nil || !i.rows.Next() {
		return false
	}

	i.lastErr = i.rows.Scan(&i.latchedID)
	return i.lastErr == nil
}

// Error returns the last error encountered by the iterator.
func (i *vertexIterator) Error() error {
	if i.lastErr != nil {
		return i.lastErr
	}
	return i.rows.Err()
}

// Close releases the underlying result set.
func (i *vertexIterator) Close() error {
	err := i.rows.Close()
	if err != nil {
		return xerrors.Errorf("vertex iterator: %w", err)
	}
	return nil
}

// ID returns the vertex ID at the current iterator position.
func (i *vertexIterator) ID() string {
	return i.latchedID
}

// edgeIterator walks the rows of the edges table.
type edgeIterator struct {
	rows       *sql.Rows
	lastErr    error
	latchedSrc string
	latchedDst string
}

// Next advances the iterator. It returns false once all rows have been
// consumed or an error occurs.
func (i *edgeIterator) Next() bool {
	if i.lastErr != nil || !i.rows.Next() {
		return false
	}

	i.lastErr = i.rows.Scan(&i.latchedSrc, &i.latchedDst)
	return i.lastErr == nil
}

// Error returns the last error encountered by the iterator.
func (i *edgeIterator) Error() error {
	if i.lastErr != nil {
		return i.lastErr
	}
	return i.rows.Err()
}

// Close releases the underlying result set.
func (i *edgeIterator) Close() error {
	err := i.rows.Close()
	if err != nil {
		return xerrors.Errorf("edge iterator: %w", err)
	}
	return nil
}

// Edge returns the source and destination of the edge at the current
// iterator position.
func (i *edgeIterator) Edge() (string, string) {
	return i.latchedSrc, i.latchedDst
}
