package index

import (
	"errors"
	"fmt"
)

// ErrLocationOverflow is returned when a location does not fit the packed layout.
var ErrLocationOverflow = errors.New("index: location does not fit packed layout")

// Packed layout, low bit first. Each numeric field stores value+1 so the -1
// sentinel packs to zero.
const (
	packedFileShift   = 1
	packedFileBits    = 29
	packedLineShift   = packedFileShift + packedFileBits
	packedLineBits    = 20
	packedColumnShift = packedLineShift + packedLineBits
	packedColumnBits  = 14
)

// PackedLocation is a Location squeezed into one machine word. It keeps the
// text encoding and equality contract of Location.
type PackedLocation uint64

// Pack encodes l. Values below -1 or beyond the field widths fail with
// ErrLocationOverflow.
func Pack(l Location) (PackedLocation, error) {
	file, ok := packField(int(l.File.n), packedFileBits)
	if !ok {
		return 0, fmt.Errorf("%w: file %d", ErrLocationOverflow, l.File.n)
	}
	line, ok := packField(l.Line, packedLineBits)
	if !ok {
		return 0, fmt.Errorf("%w: line %d", ErrLocationOverflow, l.Line)
	}
	col, ok := packField(l.Column, packedColumnBits)
	if !ok {
		return 0, fmt.Errorf("%w: column %d", ErrLocationOverflow, l.Column)
	}
	p := file<<packedFileShift | line<<packedLineShift | col<<packedColumnShift
	if l.Interesting {
		p |= 1
	}
	return PackedLocation(p), nil
}

func packField(v, bits int) (uint64, bool) {
	if v < -1 || v+1 >= 1<<bits {
		return 0, false
	}
	return uint64(v + 1), true
}

func unpackField(p PackedLocation, shift, bits int) int {
	return int(uint64(p)>>shift&(1<<bits-1)) - 1
}

// Unpack restores the Location. The file ID comes back untagged.
func (p PackedLocation) Unpack() Location {
	return Location{
		Interesting: p&1 == 1,
		File:        RawFileID(unpackField(p, packedFileShift, packedFileBits)),
		Line:        unpackField(p, packedLineShift, packedLineBits),
		Column:      unpackField(p, packedColumnShift, packedColumnBits),
	}
}

// Equal ignores the interest bit.
func (p PackedLocation) Equal(o PackedLocation) bool {
	return p>>1 == o>>1
}

func (p PackedLocation) String() string {
	return p.Unpack().String()
}
