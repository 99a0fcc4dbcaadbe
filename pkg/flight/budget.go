package flight

// Budget tracks the bytes logged since the last flush.
// The counter is 16 bits wide; Config.Validate keeps it from wrapping.
type Budget struct {
	Threshold uint16
	index     uint16
}

// NewBudget creates a Budget flushing every threshold bytes.
func NewBudget(threshold uint16) Budget {
	return Budget{Threshold: threshold}
}

// Add accounts size bytes.
func (b *Budget) Add(size uint16) {
	b.index += size
}

// Due reports whether a flush is due.
func (b *Budget) Due() bool {
	return b.index >= b.Threshold
}

// Settle subtracts exactly one threshold if a flush is due. The residual
// is carried into the next block.
func (b *Budget) Settle() bool {
	if !b.Due() {
		return false
	}
	b.index -= b.Threshold
	return true
}

// Index returns the bytes accounted since the last flush.
func (b *Budget) Index() uint16 {
	return b.index
}
