package protocol

import "bytes"

// LineBuffer reassembles protocol lines from arbitrary read chunks. Bytes
// after the last delimiter are kept until a later Feed completes the line.
// Lines end in "\r\n"; a bare "\n" is accepted too.
type LineBuffer struct {
	buf []byte
}

// Feed appends p and returns every line completed by it, in order, without
// delimiters. Empty lines are skipped.
func (b *LineBuffer) Feed(p []byte) []string {
	b.buf = append(b.buf, p...)

	var lines []string
	for {
		i := bytes.IndexByte(b.buf, '\n')
		if i < 0 {
			break
		}
		line := bytes.TrimSuffix(b.buf[:i], []byte{'\r'})
		if len(line) > 0 {
			lines = append(lines, string(line))
		}
		b.buf = b.buf[i+1:]
	}

	// release the backing array once everything was consumed
	if len(b.buf) == 0 {
		b.buf = nil
	}
	return lines
}

// Pending returns the unterminated tail.
func (b *LineBuffer) Pending() string {
	return string(b.buf)
}

// Reset drops the unterminated tail.
func (b *LineBuffer) Reset() {
	b.buf = nil
}
