package pagerank_test

import (
	"strings"

	"github.com/pregelrank/pregelrank/pagerank"
	"golang.org/x/xerrors"
	gc "gopkg.in/check.v1"
)

var _ = gc.Suite(new(CompareTestSuite))

type CompareTestSuite struct {
}

func (s *CompareTestSuite) TestRankingBreaksTiesByID(c *gc.C) {
	ranking := pagerank.Ranking(map[string]float64{
		"c": 0.25,
		"a": 0.25,
		"b": 0.4,
		"d": 0.1,
	})

	c.Assert(ranking, gc.DeepEquals, []pagerank.Score{
		{ID: "b", Score: 0.4},
		{ID: "a", Score: 0.25},
		{ID: "c", Score: 0.25},
		{ID: "d", Score: 0.1},
	})
}

func (s *CompareTestSuite) TestNormalize(c *gc.C) {
	in := map[string]float64{"a": 1, "b": 3}
	out := pagerank.Normalize(in)
	c.Assert(out, gc.DeepEquals, map[string]float64{"a": 0.25, "b": 0.75})
	c.Assert(in["a"], gc.Equals, 1.0, gc.Commentf("input map must not be modified"))

	zero := pagerank.Normalize(map[string]float64{"a": 0})
	c.Assert(zero, gc.DeepEquals, map[string]float64{"a": 0.0})
}

func (s *CompareTestSuite) TestEquivalentScores(c *gc.C) {
	exp := map[string]float64{"a": 0.5, "b": 0.3, "c": 0.2}
	got := map[string]float64{"a": 0.500001, "b": 0.299999, "c": 0.2}

	cmp := pagerank.Compare(exp, got, 1e-5)
	c.Assert(cmp.Err(), gc.IsNil)
	c.Assert(cmp.Equivalent(), gc.Equals, true)
}

func (s *CompareTestSuite) TestNearTiesDoNotCountAsReordering(c *gc.C) {
	exp := map[string]float64{"a": 0.4, "b": 0.3, "c": 0.3}
	got := map[string]float64{"a": 0.4, "b": 0.3 - 1e-12, "c": 0.3 + 1e-12}

	cmp := pagerank.Compare(exp, got, 1e-5)
	c.Assert(cmp.OrderMismatches, gc.HasLen, 0)
	c.Assert(cmp.Err(), gc.IsNil)
}

func (s *CompareTestSuite) TestDetectsDifferences(c *gc.C) {
	specs := []struct {
		descr  string
		exp    map[string]float64
		got    map[string]float64
		errMsg string
	}{
		{
			descr:  "missing vertex",
			exp:    map[string]float64{"a": 0.5, "b": 0.5},
			got:    map[string]float64{"a": 1.0},
			errMsg: `missing vertices \[b\].*`,
		},
		{
			descr:  "unexpected vertex",
			exp:    map[string]float64{"a": 1.0},
			got:    map[string]float64{"a": 0.5, "z": 0.5},
			errMsg: `unexpected vertices \[z\].*`,
		},
		{
			descr:  "different order",
			exp:    map[string]float64{"a": 0.6, "b": 0.4},
			got:    map[string]float64{"a": 0.4, "b": 0.6},
			errMsg: `ranking differs at positions \[0 1\].*score for "[ab]" differs by .*`,
		},
		{
			descr:  "mass leak",
			exp:    map[string]float64{"a": 0.6, "b": 0.4},
			got:    map[string]float64{"a": 0.5, "b": 0.3},
			errMsg: `actual scores add up to 0\.[78].*score for "[ab]" differs by .*`,
		},
	}

	for specIndex, spec := range specs {
		c.Logf("[spec %d] %s", specIndex, spec.descr)
		err := pagerank.Compare(spec.exp, spec.got, 1e-5).Err()
		c.Assert(xerrors.Is(err, pagerank.ErrNotEquivalent), gc.Equals, true)
		c.Assert(err, gc.ErrorMatches, spec.errMsg)
	}
}

func (s *CompareTestSuite) TestDump(c *gc.C) {
	cmp := pagerank.Compare(
		map[string]float64{"a": 0.75, "b": 0.25},
		map[string]float64{"a": 0.5, "b": 0.5},
		1e-5,
	)

	var sb strings.Builder
	c.Assert(cmp.Dump(&sb), gc.IsNil)
	c.Assert(sb.String(), gc.Equals, strings.Join([]string{
		"Expected:",
		"         a : 0.75000000000000000000",
		"         b : 0.25000000000000000000",
		"sum = 1.00000000000000000000",
		"Actual:",
		"         a : 0.50000000000000000000",
		"         b : 0.50000000000000000000",
		"sum = 1.00000000000000000000",
		"",
	}, "\n"))
	c.Assert(cmp.String(), gc.Equals, sb.String())
}
