// Package transfer provides the partial-I/O-safe primitives shared by
// both sides of a netthru session: a send that retries partial writes,
// a receive bounded by an inactivity deadline, and the filler buffer
// the server streams during the bulk phase.
package transfer

import (
	"errors"
	"io"
	"net"
	"time"
)

// InactivityTimeout is how long Recv waits for any data before giving
// up on the peer. A clean close is EOF, never a timeout.
const InactivityTimeout = 5 * time.Second

// ErrInactivityTimeout is returned by Recv when the peer goes silent
// without closing the connection. It is deliberately distinct from
// io.EOF: logs and tests must be able to tell a stalled peer from a
// finished one.
var ErrInactivityTimeout = errors.New("no data received within the inactivity timeout")

// SendAll writes the whole buffer to w, retrying from the first unsent
// byte after a partial write. Failure is all-or-nothing for the
// caller: there is no meaningful partial-success outcome, so any error
// should tear down the session.
func SendAll(w io.Writer, buf []byte) error {
	for sent := 0; sent < len(buf); {
		n, err := w.Write(buf[sent:])
		if err != nil {
			return err
		}
		sent += n
	}
	return nil
}

// Recv reads from conn until buf is full, the peer closes, or no data
// arrives for InactivityTimeout. It returns the number of bytes
// accumulated and one of:
//
//   - nil: buf is full
//   - io.EOF: the peer closed cleanly, possibly after some bytes
//   - ErrInactivityTimeout: the peer stalled without closing
//   - any other read error, which is hard
//
// Each call starts a fresh inactivity budget, and the budget resets
// whenever data arrives.
func Recv(conn net.Conn, buf []byte) (int, error) {
	return recvDeadline(conn, buf, InactivityTimeout)
}

func recvDeadline(conn net.Conn, buf []byte, inactivity time.Duration) (int, error) {
	total := 0
	for total < len(buf) {
		if err := conn.SetReadDeadline(time.Now().Add(inactivity)); err != nil {
			return total, err
		}
		n, err := conn.Read(buf[total:])
		total += n
		if err == io.EOF {
			return total, io.EOF
		}
		var nerr net.Error
		if errors.As(err, &nerr) && nerr.Timeout() {
			return total, ErrInactivityTimeout
		}
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// NewFillerBuffer returns n bytes cycling through the printable ASCII
// range. Only the size affects the measurement; the content just makes
// packet captures easy to eyeball.
func NewFillerBuffer(n int) []byte {
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = byte(((i * 101) % (122 - 33)) + 33)
	}
	return buf
}
