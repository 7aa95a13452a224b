package recordings

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrUnsatisfiableRange indicates a Range header that cannot be served:
// malformed bounds, start beyond the artifact, an inverted range, or a
// multi-range request (unsupported).
var ErrUnsatisfiableRange = errors.New("range not satisfiable")

// ByteRange is an inclusive byte interval within an artifact.
type ByteRange struct {
	Start int64
	End   int64
}

// Length returns the number of bytes covered by the range.
func (r ByteRange) Length() int64 { return r.End - r.Start + 1 }

// ParseRange interprets a Range header value of the form "bytes=<start>-<end>?"
// against an artifact of the given size. A nil range with nil error means the
// header should be ignored and full content served (absent header, or a unit
// other than bytes). The start position is required; the end defaults to, and
// is clamped to, size-1. Requests with start >= size or start > end are
// rejected rather than clamped.
func ParseRange(header string, size int64) (*ByteRange, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return nil, nil
	}
	spec, ok := strings.CutPrefix(header, "bytes=")
	if !ok {
		// Unknown range units are ignored per RFC 9110.
		return nil, nil
	}
	if strings.Contains(spec, ",") {
		return nil, fmt.Errorf("%w: multi-range requests are not supported", ErrUnsatisfiableRange)
	}
	startStr, endStr, ok := strings.Cut(spec, "-")
	if !ok {
		return nil, ErrUnsatisfiableRange
	}
	start, err := strconv.ParseInt(strings.TrimSpace(startStr), 10, 64)
	if err != nil || start < 0 {
		return nil, ErrUnsatisfiableRange
	}
	end := size - 1
	if s := strings.TrimSpace(endStr); s != "" {
		end, err = strconv.ParseInt(s, 10, 64)
		if err != nil || end < 0 {
			return nil, ErrUnsatisfiableRange
		}
		if end > size-1 {
			end = size - 1
		}
	}
	if start >= size || start > end {
		return nil, ErrUnsatisfiableRange
	}
	return &ByteRange{Start: start, End: end}, nil
}
