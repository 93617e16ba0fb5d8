package pagerank

import (
	"fmt"
	"io"
	"math"
	"strings"

	"golang.org/x/xerrors"
)

// ErrNotEquivalent is returned by Comparison.Err when two sets of scores do
// not describe the same ranking.
var ErrNotEquivalent = xerrors.New("scores are not equivalent")

// Comparison summarizes the differences between two sets of PageRank scores.
type Comparison struct {
	Expected  map[string]float64
	Actual    map[string]float64
	Tolerance float64

	// IDs present in only one of the two score sets.
	MissingIDs []string
	ExtraIDs   []string

	// Ranking positions where the two sets disagree on the vertex. Near
	// ties, where both candidates score within Tolerance of each other in
	// both sets, are not reported.
	OrderMismatches []int

	// The largest per-vertex score difference and the vertex it was
	// observed at.
	MaxAbsDelta float64
	MaxDeltaID  string

	ExpectedSum float64
	ActualSum   float64
}

// Compare checks whether actual reproduces expected: both sets must contain
// the same IDs, produce the same ranking, add up to 1 (unless empty) and
// agree on every score, all within tolerance.
func Compare(expected, actual map[string]float64, tolerance float64) *Comparison {
	cmp := &Comparison{
		Expected:    expected,
		Actual:      actual,
		Tolerance:   tolerance,
		ExpectedSum: Sum(expected),
		ActualSum:   Sum(actual),
	}

	for _, entry := range Ranking(expected) {
		got, exists := actual[entry.ID]
		if !exists {
			cmp.MissingIDs = append(cmp.MissingIDs, entry.ID)
			continue
		}
		if delta := math.Abs(got - entry.Score); delta > cmp.MaxAbsDelta || cmp.MaxDeltaID == "" {
			cmp.MaxAbsDelta = delta
			cmp.MaxDeltaID = entry.ID
		}
	}
	for _, entry := range Ranking(actual) {
		if _, exists := expected[entry.ID]; !exists {
			cmp.ExtraIDs = append(cmp.ExtraIDs, entry.ID)
		}
	}

	if len(cmp.MissingIDs) == 0 && len(cmp.ExtraIDs) == 0 {
		expRanking, actRanking := Ranking(expected), Ranking(actual)
		for pos := range expRanking {
			expID, actID := expRanking[pos].ID, actRanking[pos].ID
			if expID == actID {
				continue
			}
			if math.Abs(expected[expID]-expected[actID]) <= tolerance &&
				math.Abs(actual[expID]-actual[actID]) <= tolerance {
				continue
			}
			cmp.OrderMismatches = append(cmp.OrderMismatches, pos)
		}
	}

	return cmp
}

// Equivalent returns true if no differences were detected.
func (c *Comparison) Equivalent() bool { return c.Err() == nil }

// Err returns an error describing each detected difference or nil if the two
// score sets are equivalent.
func (c *Comparison) Err() error {
	var problems []string
	if len(c.MissingIDs) != 0 {
		problems = append(problems, fmt.Sprintf("missing vertices %v", c.MissingIDs))
	}
	if len(c.ExtraIDs) != 0 {
		problems = append(problems, fmt.Sprintf("unexpected vertices %v", c.ExtraIDs))
	}
	if len(c.OrderMismatches) != 0 {
		problems = append(problems, fmt.Sprintf("ranking differs at positions %v", c.OrderMismatches))
	}
	if len(c.Expected) != 0 && math.Abs(1.0-c.ExpectedSum) > c.Tolerance {
		problems = append(problems, fmt.Sprintf("expected scores add up to %.20f", c.ExpectedSum))
	}
	if len(c.Actual) != 0 && math.Abs(1.0-c.ActualSum) > c.Tolerance {
		problems = append(problems, fmt.Sprintf("actual scores add up to %.20f", c.ActualSum))
	}
	if c.MaxAbsDelta > c.Tolerance {
		problems = append(problems, fmt.Sprintf("score for %q differs by %g", c.MaxDeltaID, c.MaxAbsDelta))
	}

	if len(problems) == 0 {
		return nil
	}
	return xerrors.Errorf("%s: %w", strings.Join(problems, "; "), ErrNotEquivalent)
}

// Dump writes both score sets, sorted by descending score, to w.
func (c *Comparison) Dump(w io.Writer) error {
	if _, err := io.WriteString(w, "Expected:\n"); err != nil {
		return err
	}
	if err := DumpScores(w, c.Expected); err != nil {
		return err
	}
	if _, err := io.WriteString(w, "Actual:\n"); err != nil {
		return err
	}
	return DumpScores(w, c.Actual)
}

// String returns the output of Dump.
func (c *Comparison) String() string {
	var sb strings.Builder
	_ = c.Dump(&sb)
	return sb.String()
}

// DumpScores writes one line per vertex, sorted by descending score, followed
// by the sum of all scores.
func DumpScores(w io.Writer, scores map[string]float64) error {
	var sum float64
	for _, entry := range Ranking(scores) {
		if _, err := fmt.Fprintf(w, "%10s : %1.20f\n", entry.ID, entry.Score); err != nil {
			return err
		}
		sum += entry.Score
	}
	_, err := fmt.Fprintf(w, "sum = %1.20f\n", sum)
	return err
}
