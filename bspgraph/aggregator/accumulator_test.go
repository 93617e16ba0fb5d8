package aggregator

import (
	"math"
	"math/rand"
	"sync"
	"testing"

	gc "gopkg.in/check.v1"
)

var _ = gc.Suite(new(AccumulatorTestSuite))

type accumulator interface {
	Set(interface{})
	Get() interface{}
	Aggregate(interface{})
	Delta() interface{}
}

type AccumulatorTestSuite struct {
}

func (s *AccumulatorTestSuite) TestZeroValues(c *gc.C) {
	c.Assert(new(Float64Accumulator).Get(), gc.Equals, 0.0)
	c.Assert(new(IntAccumulator).Get(), gc.Equals, 0)
	c.Assert(new(Float64Accumulator).Type(), gc.Equals, "Float64Accumulator")
	c.Assert(new(IntAccumulator).Type(), gc.Equals, "IntAccumulator")
}

func (s *AccumulatorTestSuite) TestFloat64ConcurrentAggregation(c *gc.C) {
	values := make([]interface{}, 200)
	var exp float64
	for i := range values {
		v := rand.Float64()
		values[i] = v
		exp += v
	}

	got := aggregateConcurrently(new(Float64Accumulator), values).(float64)
	c.Assert(math.Abs(exp-got) < 1e-9, gc.Equals, true, gc.Commentf("expected %v; got %v", exp, got))
}

func (s *AccumulatorTestSuite) TestIntConcurrentAggregation(c *gc.C) {
	values := make([]interface{}, 200)
	var exp int
	for i := range values {
		v := rand.Intn(1<<20) - 1<<19
		values[i] = v
		exp += v
	}

	got := aggregateConcurrently(new(IntAccumulator), values).(int)
	c.Assert(got, gc.Equals, exp)
}

func (s *AccumulatorTestSuite) TestDeltaTracksChangesSinceLastCall(c *gc.C) {
	specs := []struct {
		acc      accumulator
		initial  interface{}
		first    []interface{}
		expDelta interface{}
		expValue interface{}
		zero     interface{}
	}{
		{
			acc:      new(Float64Accumulator),
			initial:  0.5,
			first:    []interface{}{0.25, 0.125},
			expDelta: 0.375,
			expValue: 0.875,
			zero:     0.0,
		},
		{
			acc:      new(IntAccumulator),
			initial:  10,
			first:    []interface{}{5, -2},
			expDelta: 3,
			expValue: 13,
			zero:     0,
		},
	}

	for specIndex, spec := range specs {
		c.Logf("[spec %d] %T", specIndex, spec.acc)
		spec.acc.Set(spec.initial)
		c.Assert(spec.acc.Delta(), gc.Equals, spec.zero, gc.Commentf("Set must reset the delta reference"))

		for _, v := range spec.first {
			spec.acc.Aggregate(v)
		}
		c.Assert(spec.acc.Get(), gc.Equals, spec.expValue)
		c.Assert(spec.acc.Delta(), gc.Equals, spec.expDelta)
		c.Assert(spec.acc.Delta(), gc.Equals, spec.zero)
	}
}

func aggregateConcurrently(a accumulator, values []interface{}) interface{} {
	var (
		start sync.WaitGroup
		done  sync.WaitGroup
		gate  = make(chan struct{})
	)
	start.Add(len(values))
	done.Add(len(values))
	for _, v := range values {
		go func(v interface{}) {
			defer done.Done()
			start.Done()
			<-gate
			a.Aggregate(v)
		}(v)
	}

	// Release all goroutines at once to maximize contention.
	start.Wait()
	close(gate)
	done.Wait()
	return a.Get()
}

func Test(t *testing.T) {
	// Run all gocheck test-suites
	gc.TestingT(t)
}
