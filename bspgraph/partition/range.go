// Package partition splits index ranges into contiguous partitions.
package partition

import (
	"golang.org/x/xerrors"
)

// Range is the index range [0, size) split into a fixed number of contiguous
// partitions whose sizes differ by at most one. The first size%parts
// partitions receive the extra index; when there are more partitions than
// indices the trailing partitions are empty.
type Range struct {
	size  int
	parts int
}

// NewRange splits [0, size) into numPartitions partitions.
func NewRange(size, numPartitions int) (Range, error) {
	if size < 0 {
		return Range{}, xerrors.Errorf("range size must not be negative")
	}
	if numPartitions <= 0 {
		return Range{}, xerrors.Errorf("number of partitions must be at least equal to 1")
	}
	return Range{size: size, parts: numPartitions}, nil
}

// NumPartitions returns the number of partitions in the range.
func (r Range) NumPartitions() int { return r.parts }

// PartitionExtents returns the half-open [start, end) bounds of partition.
func (r Range) PartitionExtents(partition int) (int, int, error) {
	if partition < 0 || partition >= r.parts {
		return 0, 0, xerrors.Errorf("invalid partition index %d", partition)
	}

	base, extra := r.size/r.parts, r.size%r.parts
	start := partition*base + minInt(partition, extra)
	end := start + base
	if partition < extra {
		end++
	}
	return start, end, nil
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
