package index

import (
	"cmp"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrBadLocation is returned when location text does not match
// "[*]<file>:<line>:<column>".
var ErrBadLocation = errors.New("index: malformed location")

// Location is a point in a file plus a flag telling whether the use there is
// semantically meaningful (an explicit reference) or incidental.
//
// Use Equal, not ==: equality ignores Interesting.
type Location struct {
	Interesting bool
	File        FileID
	Line        int
	Column      int
}

// UnknownLocation is the synthetic location with every field set to -1.
var UnknownLocation = Location{File: FileID{n: -1}, Line: -1, Column: -1}

// NewLocation builds a location in file at line:column.
func NewLocation(interesting bool, file FileID, line, column int) Location {
	return Location{Interesting: interesting, File: file, Line: line, Column: column}
}

// IsUnknown reports whether l is a synthetic location.
func (l Location) IsUnknown() bool {
	return !l.File.Valid() && l.Line < 0 && l.Column < 0
}

// Equal reports whether l and o are the same place.
func (l Location) Equal(o Location) bool {
	return l.File.n == o.File.n && l.Line == o.Line && l.Column == o.Column
}

// Compare orders locations by file, line, column and finally interest, so
// uninteresting sorts before interesting at the same place.
func (l Location) Compare(o Location) int {
	if c := cmp.Compare(l.File.n, o.File.n); c != 0 {
		return c
	}
	if c := cmp.Compare(l.Line, o.Line); c != 0 {
		return c
	}
	if c := cmp.Compare(l.Column, o.Column); c != 0 {
		return c
	}
	return compareBool(l.Interesting, o.Interesting)
}

// WithInteresting returns a copy of l with the interest flag replaced.
func (l Location) WithInteresting(interesting bool) Location {
	l.Interesting = interesting
	return l
}

// String renders the location as "*1:2:3" (interesting) or "1:2:3".
func (l Location) String() string {
	var b strings.Builder
	b.Grow(16)
	if l.Interesting {
		b.WriteByte('*')
	}
	b.WriteString(strconv.Itoa(int(l.File.n)))
	b.WriteByte(':')
	b.WriteString(strconv.Itoa(l.Line))
	b.WriteByte(':')
	b.WriteString(strconv.Itoa(l.Column))
	return b.String()
}

// MarshalText implements encoding.TextMarshaler.
func (l Location) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. The decoded file ID is
// untagged.
func (l *Location) UnmarshalText(text []byte) error {
	parsed, err := ParseLocation(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// ParseLocation decodes the text produced by Location.String.
func ParseLocation(s string) (Location, error) {
	var l Location
	rest := s
	if strings.HasPrefix(rest, "*") {
		l.Interesting = true
		rest = rest[1:]
	}
	parts := strings.Split(rest, ":")
	if len(parts) != 3 {
		return Location{}, fmt.Errorf("%w: %q", ErrBadLocation, s)
	}
	var nums [3]int64
	for i, p := range parts {
		n, err := strconv.ParseInt(p, 10, 32)
		if err != nil {
			return Location{}, fmt.Errorf("%w: %q: %v", ErrBadLocation, s, err)
		}
		if n < -1 || n > math.MaxInt32 {
			return Location{}, fmt.Errorf("%w: %q: %d out of range", ErrBadLocation, s, n)
		}
		nums[i] = n
	}
	l.File = RawFileID(int(nums[0]))
	l.Line = int(nums[1])
	l.Column = int(nums[2])
	return l, nil
}

func compareBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	default:
		return 1
	}
}
