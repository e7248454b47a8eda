package combat

// Meter tracks a bounded value together with the value it held before the
// last change that was saved.
type Meter struct {
	current int
	maximum int
	last    int
}

// NewMeter creates a full meter.
func NewMeter(maximum int) Meter {
	if maximum < 0 {
		maximum = 0
	}
	return Meter{current: maximum, maximum: maximum, last: maximum}
}

func (m *Meter) Current() int   { return m.current }
func (m *Meter) Maximum() int   { return m.maximum }
func (m *Meter) LastValue() int { return m.last }

// IsMinimized reports whether the meter is empty.
func (m *Meter) IsMinimized() bool { return m.current <= 0 }

// IsMaximized reports whether the meter is full.
func (m *Meter) IsMaximized() bool { return m.current >= m.maximum }

// SetCurrent clamps v to [0, maximum].
func (m *Meter) SetCurrent(v int) {
	m.current = min(max(v, 0), m.maximum)
}

// AdjustCurrent adds delta, clamped.
func (m *Meter) AdjustCurrent(delta int) {
	m.SetCurrent(m.current + delta)
}

// Reset fills the meter.
func (m *Meter) Reset() {
	m.current = m.maximum
}

// SaveLast remembers the current value.
func (m *Meter) SaveLast() {
	m.last = m.current
}
