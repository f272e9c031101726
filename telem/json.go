package telem

import (
	"encoding/json"
	"fmt"
)

// wireSample is the JSON encoding of a single SampleValue: a type tag plus
// either a numeric or string payload, used only by the CLI fixture harness
// (arcrun), not by the hot path.
type wireSample struct {
	Kind string  `json:"kind"`
	Num  float64 `json:"num,omitempty"`
	Str  string  `json:"str,omitempty"`
}

func kindFromString(s string) (TypeKind, error) {
	for k := TypeUint8; k <= TypeTimeStamp; k++ {
		if k.String() == s {
			return k, nil
		}
	}
	return TypeUnknown, fmt.Errorf("arc.module.unknown_type_kind: %q", s)
}

func (v SampleValue) toWire() wireSample {
	if v.Kind == TypeString {
		return wireSample{Kind: v.Kind.String(), Str: v.str}
	}
	return wireSample{Kind: v.Kind.String(), Num: v.AsFloat64()}
}

func fromWire(w wireSample) (SampleValue, error) {
	kind, err := kindFromString(w.Kind)
	if err != nil {
		return SampleValue{}, err
	}
	if kind == TypeString {
		return StringValue(w.Str), nil
	}
	switch kind {
	case TypeFloat32:
		return Float32Value(float32(w.Num)), nil
	case TypeFloat64:
		return Float64Value(w.Num), nil
	case TypeUint8:
		return Uint8Value(uint8(w.Num)), nil
	case TypeUint16:
		return Uint16Value(uint16(w.Num)), nil
	case TypeUint32:
		return Uint32Value(uint32(w.Num)), nil
	case TypeUint64:
		return Uint64Value(uint64(w.Num)), nil
	case TypeInt8:
		return Int8Value(int8(w.Num)), nil
	case TypeInt16:
		return Int16Value(int16(w.Num)), nil
	case TypeInt32:
		return Int32Value(int32(w.Num)), nil
	case TypeInt64:
		return Int64Value(int64(w.Num)), nil
	case TypeTimeStamp:
		return TimeStampValue(TimeStamp(int64(w.Num))), nil
	default:
		return SampleValue{}, fmt.Errorf("arc.module.unsupported_wire_kind: %q", w.Kind)
	}
}

// MarshalJSON encodes the series as its type kind and sample values, used by
// the arcrun fixture harness to read/write frames as newline-delimited JSON.
func (s *Series) MarshalJSON() ([]byte, error) {
	wire := struct {
		Kind    string       `json:"kind"`
		Samples []wireSample `json:"samples"`
	}{Kind: s.Kind.String(), Samples: make([]wireSample, s.Len())}
	for i := 0; i < s.Len(); i++ {
		wire.Samples[i] = s.At(i).toWire()
	}
	return json.Marshal(wire)
}

// UnmarshalJSON decodes a series previously written by MarshalJSON.
func (s *Series) UnmarshalJSON(data []byte) error {
	var wire struct {
		Kind    string       `json:"kind"`
		Samples []wireSample `json:"samples"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	kind, err := kindFromString(wire.Kind)
	if err != nil {
		return err
	}
	s.Kind = kind
	s.data = make([]SampleValue, len(wire.Samples))
	for i, w := range wire.Samples {
		v, err := fromWire(w)
		if err != nil {
			return err
		}
		s.data[i] = v
	}
	return nil
}

// wireEntry is one channel's data (and, if present, its parallel timestamp
// series) in a frame's wire encoding.
type wireEntry struct {
	Key  ChannelKey `json:"key"`
	Data *Series    `json:"data"`
	Time *Series    `json:"time,omitempty"`
}

// MarshalJSON encodes the frame as an ordered list of (key, data, time)
// entries, preserving insertion order.
func (f *Frame) MarshalJSON() ([]byte, error) {
	entries := make([]wireEntry, f.Len())
	i := 0
	f.RangeWithTime(func(key ChannelKey, data, time *Series) {
		entries[i] = wireEntry{Key: key, Data: data, Time: time}
		i++
	})
	return json.Marshal(entries)
}

// UnmarshalJSON decodes a frame previously written by MarshalJSON.
func (f *Frame) UnmarshalJSON(data []byte) error {
	var entries []wireEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}
	f.keys = make([]ChannelKey, 0, len(entries))
	f.series = make([]*Series, 0, len(entries))
	f.times = make([]*Series, 0, len(entries))
	for _, e := range entries {
		f.EmplaceWithTime(e.Key, e.Data, e.Time)
	}
	return nil
}
