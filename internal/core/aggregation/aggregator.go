package aggregation

import (
	"github.com/shopspring/decimal"
)

// Aggregator defines the reduce semantics of a fold operator.
type Aggregator interface {
	// Initial returns the value after the first observation for a key.
	Initial(incoming decimal.Decimal) decimal.Decimal

	// Apply folds an incoming value into an existing one.
	Apply(current, incoming decimal.Decimal) decimal.Decimal
}

// Operators is the registry of supported fold operators.
var Operators = map[string]Aggregator{
	OpSum: sumAgg{},
	OpMax: maxAgg{},
}

// sumAgg accumulates the sum of incoming values.
type sumAgg struct{}

func (sumAgg) Initial(v decimal.Decimal) decimal.Decimal      { return v }
func (sumAgg) Apply(cur, inc decimal.Decimal) decimal.Decimal { return cur.Add(inc) }

// maxAgg tracks the maximum value seen.
type maxAgg struct{}

func (maxAgg) Initial(v decimal.Decimal) decimal.Decimal { return v }
func (maxAgg) Apply(cur, inc decimal.Decimal) decimal.Decimal {
	if inc.GreaterThan(cur) {
		return inc
	}
	return cur
}

// Accumulator folds decimal observations per key with a single operator and
// remembers first-seen key order.
type Accumulator[K comparable] struct {
	agg    Aggregator
	values map[K]decimal.Decimal
	keys   []K
}

// NewAccumulator returns an accumulator for op. It panics on an unknown
// operator since operators are fixed at compile time.
func NewAccumulator[K comparable](op string) *Accumulator[K] {
	agg, ok := Operators[op]
	if !ok {
		panic("aggregation: unknown operator " + op)
	}
	return &Accumulator[K]{agg: agg, values: make(map[K]decimal.Decimal)}
}

// Add folds v into the value held for key.
func (a *Accumulator[K]) Add(key K, v decimal.Decimal) {
	cur, ok := a.values[key]
	if !ok {
		a.values[key] = a.agg.Initial(v)
		a.keys = append(a.keys, key)
		return
	}
	a.values[key] = a.agg.Apply(cur, v)
}

// Get returns the folded value for key.
func (a *Accumulator[K]) Get(key K) (decimal.Decimal, bool) {
	v, ok := a.values[key]
	return v, ok
}

// Len is the number of distinct keys.
func (a *Accumulator[K]) Len() int { return len(a.keys) }

// Each visits keys in first-seen order.
func (a *Accumulator[K]) Each(fn func(key K, value decimal.Decimal)) {
	for _, k := range a.keys {
		fn(k, a.values[k])
	}
}
