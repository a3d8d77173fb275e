// Package interval holds the wait between two probes as a number of seconds
// that is guaranteed to be finite and non-negative.
package interval

import (
	"errors"
	"math"
	"strconv"
	"time"
)

var (
	ErrNotANumber = errors.New("not a number")
	ErrNegative   = errors.New("negative value")
)

// ParseError reports which input was rejected and why. Err is ErrNotANumber
// or ErrNegative.
type ParseError struct {
	Input string
	Err   error
}

func (e *ParseError) Error() string {
	return "invalid interval " + strconv.Quote(e.Input) + ": " + e.Err.Error()
}

func (e *ParseError) Unwrap() error { return e.Err }

// Interval is a non-negative number of seconds. The zero value means no wait.
type Interval struct {
	seconds float64
}

// Default is one probe per second.
var Default = Interval{seconds: 1}

// New validates an already numeric value.
func New(seconds float64) (Interval, error) {
	s := strconv.FormatFloat(seconds, 'g', -1, 64)
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return Interval{}, &ParseError{Input: s, Err: ErrNotANumber}
	}
	if seconds < 0 {
		return Interval{}, &ParseError{Input: s, Err: ErrNegative}
	}
	return Interval{seconds: seconds}, nil
}

// Parse reads a decimal number of seconds, e.g. "0.5".
func Parse(s string) (Interval, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Interval{}, &ParseError{Input: s, Err: ErrNotANumber}
	}
	iv, err := New(f)
	if err != nil {
		var pe *ParseError
		if errors.As(err, &pe) {
			pe.Input = s
		}
		return Interval{}, err
	}
	return iv, nil
}

// Seconds returns the raw value.
func (i Interval) Seconds() float64 { return i.seconds }

// Duration truncates to whole milliseconds and saturates at the largest
// time.Duration.
func (i Interval) Duration() time.Duration {
	ms := i.seconds * 1000
	if ms >= float64(math.MaxInt64/int64(time.Millisecond)) {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(int64(ms)) * time.Millisecond
}

// String, Set and Type make *Interval usable as a pflag.Value.
func (i Interval) String() string {
	return strconv.FormatFloat(i.seconds, 'g', -1, 64)
}

func (i *Interval) Set(s string) error {
	v, err := Parse(s)
	if err != nil {
		return err
	}
	*i = v
	return nil
}

func (i *Interval) Type() string { return "seconds" }
