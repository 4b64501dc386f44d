package aggregation

// Fold operators used when several observations land on the same key.
const (
	OpSum = "sum"
	OpMax = "max"
)
