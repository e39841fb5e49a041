package logport

import (
	"io"
	"strconv"

	"github.com/pkg/errors"
)

// Frame is one length-prefixed message unit on the wire.
// The wire format is the ASCII decimal byte length of the payload,
// a single '\n' delimiter, and exactly that many payload bytes (UTF-8).
type Frame []byte

// Length returns the length of the frame payload in bytes.
func (f Frame) Length() int {
	return len(f)
}

// Text returns the frame payload as a string.
func (f Frame) Text() string {
	return string(f)
}

// EncodeFrame encodes a payload into its wire representation:
// ascii_digits(len(payload)) + "\n" + payload.
func EncodeFrame(payload []byte) []byte {
	buf := make([]byte, 0, len(payload)+12)
	buf = strconv.AppendInt(buf, int64(len(payload)), 10)
	buf = append(buf, '\n')
	buf = append(buf, payload...)
	return buf
}

// DecodeLength reads the length header of the next frame from r, one byte
// at a time, until the '\n' delimiter. Stray non-digit bytes before the
// delimiter reset the accumulator and scanning restarts, so a stream
// containing garbage ahead of a valid header still resynchronizes onto the
// next frame. A '\n' with no preceding digits is treated as a stray byte.
func DecodeLength(r io.Reader) (int, error) {
	var (
		digits []byte
		b      [1]byte
	)
	for {
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return 0, errors.Wrap(err, "read length header")
		}
		switch c := b[0]; {
		case c == '\n':
			if len(digits) == 0 {
				continue
			}
			n, err := strconv.Atoi(string(digits))
			if err != nil {
				return 0, errors.Wrapf(err, "parse length header %q", digits)
			}
			return n, nil
		case c >= '0' && c <= '9':
			digits = append(digits, c)
		default:
			digits = digits[:0]
		}
	}
}

// DecodeBody reads exactly length payload bytes from r, accumulating across
// partial reads. The stream ending early is an error.
func DecodeBody(r io.Reader, length int) ([]byte, error) {
	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, errors.Wrap(err, "read frame body")
	}
	return body, nil
}
