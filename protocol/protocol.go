// Package protocol implements the one-line control directive a netthru
// client sends immediately after connecting. The directive tells the
// server how long to stream, how large each send should be, and gives
// it an arbitrary message to log. There is no acknowledgement: the
// server either starts streaming or closes the connection.
package protocol

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Command is the tag that opens every directive. It names the only
// operation the server understands.
const Command = "send"

// maxDirectiveLen bounds the receive accumulator. A well-formed
// directive is a few dozen bytes; anything that reaches the cap with
// no newline is not a netthru client.
const maxDirectiveLen = 256

// ErrDirectiveTooLong is returned when the accumulator fills before a
// terminating newline arrives.
var ErrDirectiveTooLong = errors.New("directive exceeded 256 bytes with no terminating newline")

// Directive carries the parameters of one measurement session. The
// client builds it from its settings; the server's copy is decoded
// from the wire and is authoritative for that session only.
type Directive struct {
	// Seconds is how long the server should stream filler data.
	Seconds int
	// BytesPerBuf is the size of each chunk the server sends.
	BytesPerBuf int
	// Message is free-form text for the server to log.
	Message string
}

// Format renders the directive in its wire form:
//
//	send|<seconds>|<bytesPerBuf>|<message>|\n
func (d Directive) Format() string {
	return fmt.Sprintf("%s|%d|%d|%s|\n", Command, d.Seconds, d.BytesPerBuf, d.Message)
}

// Validate rejects parameter values that cannot produce a measurement.
// It must run before any buffer is allocated from the decoded values.
func (d Directive) Validate() error {
	if d.Seconds <= 0 {
		return fmt.Errorf("directive: seconds must be positive, got %d", d.Seconds)
	}
	if d.BytesPerBuf <= 0 {
		return fmt.Errorf("directive: bytes per send must be positive, got %d", d.BytesPerBuf)
	}
	return nil
}

// ReadDirective accumulates bytes from r until a newline appears, the
// stream ends, or the bounded accumulator fills. A stream that ends
// before the newline still parses whatever arrived. Overflow is a
// checked error, never silent truncation.
func ReadDirective(r io.Reader) (Directive, error) {
	buf := make([]byte, 0, maxDirectiveLen)
	for {
		n, err := r.Read(buf[len(buf):cap(buf)])
		buf = buf[:len(buf)+n]
		if bytes.IndexByte(buf, '\n') >= 0 {
			break
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return Directive{}, err
		}
		if len(buf) == cap(buf) {
			return Directive{}, ErrDirectiveTooLong
		}
	}
	return parseDirective(string(buf)), nil
}

// parseDirective splits the line on '|' and consumes the fields
// positionally: tag, seconds, bytes per send, optional message. A
// missing trailing field defaults rather than errors.
func parseDirective(line string) Directive {
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	fields := strings.Split(line, "|")
	var d Directive
	// fields[0] is the command tag. Every client to date sends "send",
	// so it is ignored rather than checked.
	if len(fields) > 1 {
		d.Seconds = lenientInt(fields[1])
	}
	if len(fields) > 2 {
		d.BytesPerBuf = lenientInt(fields[2])
	}
	if len(fields) > 3 {
		d.Message = fields[3]
	}
	return d
}

// lenientInt parses s as a base-10 integer, degrading to zero when it
// cannot. Malformed numeric fields have always degraded to zero rather
// than failing the handshake; Validate is where zeroes get rejected.
func lenientInt(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
