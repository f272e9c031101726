// Package telem provides the telemetry primitives consumed by the Arc
// runtime: typed series, timestamps, and frames. In a full Synnax
// deployment this package is a thin client over the cluster's own telemetry
// library; here it is implemented as a small, self-contained library so the
// runtime has something concrete to compile against.
package telem

import "time"

// TimeStamp is a Unix nanosecond timestamp.
type TimeStamp int64

// Now returns the current time as a TimeStamp.
func Now() TimeStamp { return TimeStamp(time.Now().UnixNano()) }

// TimeSpan is a duration expressed in nanoseconds.
type TimeSpan int64

// Nanoseconds returns the span as an int64 count of nanoseconds.
func (s TimeSpan) Nanoseconds() int64 { return int64(s) }

// Duration converts the span to a standard library time.Duration.
func (s TimeSpan) Duration() time.Duration { return time.Duration(s) }

// Since returns the elapsed TimeSpan between t and the current time.
func Since(t TimeStamp) TimeSpan { return TimeSpan(Now() - t) }

// Sub returns the span between two timestamps (a - b).
func (t TimeStamp) Sub(o TimeStamp) TimeSpan { return TimeSpan(t - o) }

// TypeKind identifies the scalar element type carried by a Series.
type TypeKind uint8

const (
	TypeUnknown TypeKind = iota
	TypeUint8
	TypeUint16
	TypeUint32
	TypeUint64
	TypeInt8
	TypeInt16
	TypeInt32
	TypeInt64
	TypeFloat32
	TypeFloat64
	TypeString
	TypeTimeStamp
)

// String returns a human-readable name for the type kind.
func (k TypeKind) String() string {
	switch k {
	case TypeUint8:
		return "u8"
	case TypeUint16:
		return "u16"
	case TypeUint32:
		return "u32"
	case TypeUint64:
		return "u64"
	case TypeInt8:
		return "i8"
	case TypeInt16:
		return "i16"
	case TypeInt32:
		return "i32"
	case TypeInt64:
		return "i64"
	case TypeFloat32:
		return "f32"
	case TypeFloat64:
		return "f64"
	case TypeString:
		return "string"
	case TypeTimeStamp:
		return "timestamp"
	default:
		return "unknown"
	}
}
