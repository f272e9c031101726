package telem

// Frame is an ordered map from channel key to a data Series and an optional
// parallel timestamp Series. Ordering is preserved (not just key-sorted) so
// that repeated emission of the same channel set produces deterministic
// iteration order. The paired (data, time) shape mirrors ChannelUpdate below
// and runtime/state.ValuePair, both grounded on arc/cpp/runtime/core/types.h.
type Frame struct {
	keys   []ChannelKey
	series []*Series
	times  []*Series // parallel to series; entry is nil if untimed
}

// NewFrame returns an empty frame pre-sized for n entries.
func NewFrame(n int) *Frame {
	return &Frame{keys: make([]ChannelKey, 0, n), series: make([]*Series, 0, n), times: make([]*Series, 0, n)}
}

// Len returns the number of channel entries in the frame.
func (f *Frame) Len() int { return len(f.keys) }

// Emplace appends a (key, series) pair to the frame with no timestamp
// series. Prefer EmplaceWithTime when the data carries per-sample time
// information.
func (f *Frame) Emplace(key ChannelKey, s *Series) {
	f.EmplaceWithTime(key, s, nil)
}

// EmplaceWithTime appends a (key, data, time) triple to the frame. time may
// be nil for channels with no associated timestamp series.
func (f *Frame) EmplaceWithTime(key ChannelKey, data, time *Series) {
	f.keys = append(f.keys, key)
	f.series = append(f.series, data)
	f.times = append(f.times, time)
}

// Get returns the data series for key and whether it was present.
func (f *Frame) Get(key ChannelKey) (*Series, bool) {
	for i, k := range f.keys {
		if k == key {
			return f.series[i], true
		}
	}
	return nil, false
}

// GetTime returns the timestamp series for key, if any was set.
func (f *Frame) GetTime(key ChannelKey) (*Series, bool) {
	for i, k := range f.keys {
		if k == key {
			return f.times[i], f.times[i] != nil
		}
	}
	return nil, false
}

// Range calls fn for every (key, series) pair in insertion order.
func (f *Frame) Range(fn func(key ChannelKey, s *Series)) {
	for i, k := range f.keys {
		fn(k, f.series[i])
	}
}

// RangeWithTime calls fn for every (key, data, time) triple in insertion
// order; time is nil for entries with no timestamp series.
func (f *Frame) RangeWithTime(fn func(key ChannelKey, data, time *Series)) {
	for i, k := range f.keys {
		fn(k, f.series[i], f.times[i])
	}
}

// DeepCopy returns a frame with independently-owned series, used to sever
// sharing between the runtime thread and downstream consumers before a
// frame crosses the outbound queue.
func (f *Frame) DeepCopy() *Frame {
	out := NewFrame(f.Len())
	f.RangeWithTime(func(key ChannelKey, data, time *Series) {
		var timeCopy *Series
		if time != nil {
			timeCopy = time.DeepCopy()
		}
		out.EmplaceWithTime(key, data.DeepCopy(), timeCopy)
	})
	return out
}

// ChannelUpdate is the inbound RT message produced by the I/O thread and
// consumed by the runtime thread: one channel's new data and its aligned
// timestamps.
type ChannelUpdate struct {
	Key  ChannelKey
	Data *Series
	Time *Series
}
