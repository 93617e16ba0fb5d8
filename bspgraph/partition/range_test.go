package partition

import (
	"testing"

	gc "gopkg.in/check.v1"
)

var _ = gc.Suite(new(RangeTestSuite))

type RangeTestSuite struct {
}

func (s *RangeTestSuite) TestNewRangeErrors(c *gc.C) {
	_, err := NewRange(-1, 1)
	c.Assert(err, gc.ErrorMatches, "range size must not be negative")

	_, err = NewRange(10, 0)
	c.Assert(err, gc.ErrorMatches, "number of partitions must be at least equal to 1")
}

func (s *RangeTestSuite) TestExtents(c *gc.C) {
	specs := []struct {
		descr string
		size  int
		parts int
		exp   [][2]int
	}{
		{descr: "even split", size: 12, parts: 4, exp: [][2]int{{0, 3}, {3, 6}, {6, 9}, {9, 12}}},
		{descr: "remainder goes to leading partitions", size: 10, parts: 3, exp: [][2]int{{0, 4}, {4, 7}, {7, 10}}},
		{descr: "more partitions than indices", size: 2, parts: 4, exp: [][2]int{{0, 1}, {1, 2}, {2, 2}, {2, 2}}},
		{descr: "empty range", size: 0, parts: 2, exp: [][2]int{{0, 0}, {0, 0}}},
		{descr: "single partition", size: 5, parts: 1, exp: [][2]int{{0, 5}}},
	}

	for specIndex, spec := range specs {
		c.Logf("[spec %d] %s", specIndex, spec.descr)
		r, err := NewRange(spec.size, spec.parts)
		c.Assert(err, gc.IsNil)
		c.Assert(r.NumPartitions(), gc.Equals, spec.parts)

		for p, exp := range spec.exp {
			from, to, err := r.PartitionExtents(p)
			c.Assert(err, gc.IsNil)
			c.Assert([2]int{from, to}, gc.DeepEquals, exp, gc.Commentf("partition %d", p))
		}
	}
}

func (s *RangeTestSuite) TestPartitionsCoverRange(c *gc.C) {
	for size := 0; size < 50; size++ {
		for parts := 1; parts <= 8; parts++ {
			r, err := NewRange(size, parts)
			c.Assert(err, gc.IsNil)

			next := 0
			for p := 0; p < parts; p++ {
				from, to, err := r.PartitionExtents(p)
				c.Assert(err, gc.IsNil)
				c.Assert(from, gc.Equals, next, gc.Commentf("size %d, parts %d, partition %d", size, parts, p))
				c.Assert(to-from <= size/parts+1, gc.Equals, true)
				next = to
			}
			c.Assert(next, gc.Equals, size)
		}
	}
}

func (s *RangeTestSuite) TestPartitionExtentsError(c *gc.C) {
	r, err := NewRange(10, 2)
	c.Assert(err, gc.IsNil)

	_, _, err = r.PartitionExtents(2)
	c.Assert(err, gc.ErrorMatches, "invalid partition index 2")

	_, _, err = r.PartitionExtents(-1)
	c.Assert(err, gc.ErrorMatches, "invalid partition index -1")
}

func Test(t *testing.T) {
	// Run all gocheck test-suites
	gc.TestingT(t)
}
