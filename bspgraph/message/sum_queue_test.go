package message_test

import (
	"math"
	"math/rand"
	"sync"

	"github.com/pregelrank/pregelrank/bspgraph/message"
	"golang.org/x/xerrors"
	gc "gopkg.in/check.v1"
)

var _ = gc.Suite(new(SumQueueTest))

type SumQueueTest struct {
	q message.Queue
}

func (s *SumQueueTest) SetUpTest(c *gc.C) {
	s.q = message.NewSumQueue()
}

func (s *SumQueueTest) TearDownTest(c *gc.C) {
	c.Assert(s.q.Close(), gc.IsNil)
}

func (s *SumQueueTest) TestCombine(c *gc.C) {
	for i := 1; i <= 4; i++ {
		c.Assert(s.q.Enqueue(scalar(float64(i))), gc.IsNil)
	}
	c.Assert(s.q.PendingMessages(), gc.Equals, true)

	it := s.q.Messages()
	c.Assert(it.Next(), gc.Equals, true)
	c.Assert(it.Message().(message.Scalar).Value(), gc.Equals, 10.0)
	c.Assert(it.Message().Type(), gc.Equals, "sum")
	c.Assert(it.Next(), gc.Equals, false)
	c.Assert(it.Error(), gc.IsNil)
	c.Assert(s.q.PendingMessages(), gc.Equals, false)
}

func (s *SumQueueTest) TestZeroValuesAreDropped(c *gc.C) {
	c.Assert(s.q.Enqueue(scalar(0)), gc.IsNil)
	c.Assert(s.q.PendingMessages(), gc.Equals, false)
	c.Assert(s.q.Messages().Next(), gc.Equals, false)
}

func (s *SumQueueTest) TestRejectNonScalarMessages(c *gc.C) {
	err := s.q.Enqueue(msg{payload: "not a number"})
	c.Assert(xerrors.Is(err, message.ErrNotScalar), gc.Equals, true)
	c.Assert(err, gc.ErrorMatches, `enqueue "msg" message: message does not carry a scalar value`)
}

func (s *SumQueueTest) TestSumIsIndependentOfArrivalOrder(c *gc.C) {
	// Adding these values left-to-right yields different results depending
	// on the order in which they are visited.
	values := []float64{1e16, 1.0, -1e16, 3.0, 0.1, 0.2, 0.3, math.Pi}

	var exp float64
	for attempt := 0; attempt < 50; attempt++ {
		perm := rand.Perm(len(values))

		var wg sync.WaitGroup
		wg.Add(len(perm))
		for _, idx := range perm {
			go func(v float64) {
				defer wg.Done()
				c.Check(s.q.Enqueue(scalar(v)), gc.IsNil)
			}(values[idx])
		}
		wg.Wait()

		it := s.q.Messages()
		c.Assert(it.Next(), gc.Equals, true)
		got := it.Message().(message.Scalar).Value()
		if attempt == 0 {
			exp = got
			continue
		}
		c.Assert(math.Float64bits(got), gc.Equals, math.Float64bits(exp), gc.Commentf("attempt %d: got %v; expected %v", attempt, got, exp))
	}
}

type scalar float64

func (scalar) Type() string     { return "scalar" }
func (s scalar) Value() float64 { return float64(s) }
