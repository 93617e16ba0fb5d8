// Package aggregator provides summing aggregators for bspgraph.
package aggregator

import "sync"

// Float64Accumulator sums float64 values. It is safe for concurrent use and
// its zero value holds 0.0.
type Float64Accumulator struct {
	mu   sync.Mutex
	sum  float64
	base float64
}

// Type implements bspgraph.Aggregator.
func (a *Float64Accumulator) Type() string { return "Float64Accumulator" }

// Get implements bspgraph.Aggregator.
func (a *Float64Accumulator) Get() interface{} {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sum
}

// Set replaces the sum with v, which also becomes the reference point for
// the next Delta call.
func (a *Float64Accumulator) Set(v interface{}) {
	a.mu.Lock()
	a.sum = v.(float64)
	a.base = a.sum
	a.mu.Unlock()
}

// Aggregate adds v to the sum.
func (a *Float64Accumulator) Aggregate(v interface{}) {
	a.mu.Lock()
	a.sum += v.(float64)
	a.mu.Unlock()
}

// Delta returns the change since the last Delta or Set call.
func (a *Float64Accumulator) Delta() interface{} {
	a.mu.Lock()
	defer a.mu.Unlock()
	d := a.sum - a.base
	a.base = a.sum
	return d
}

// IntAccumulator sums int values. It is safe for concurrent use and its
// zero value holds 0.
type IntAccumulator struct {
	mu   sync.Mutex
	sum  int
	base int
}

// Type implements bspgraph.Aggregator.
func (a *IntAccumulator) Type() string { return "IntAccumulator" }

// Get implements bspgraph.Aggregator.
func (a *IntAccumulator) Get() interface{} {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sum
}

// Set replaces the sum with v.
func (a *IntAccumulator) Set(v interface{}) {
	a.mu.Lock()
	a.sum = v.(int)
	a.base = a.sum
	a.mu.Unlock()
}

// Aggregate adds v to the sum.
func (a *IntAccumulator) Aggregate(v interface{}) {
	a.mu.Lock()
	a.sum += v.(int)
	a.mu.Unlock()
}

// Delta returns the change since the last Delta or Set call.
func (a *IntAccumulator) Delta() interface{} {
	a.mu.Lock()
	defer a.mu.Unlock()
	d := a.sum - a.base
	a.base = a.sum
	return d
}
