package transfer

import (
	"bytes"
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"github.com/m-lab/go/rtx"
)

// mustLoopback returns both ends of a real TCP connection over
// localhost.
func mustLoopback(t *testing.T) (client, server net.Conn) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	rtx.Must(err, "Could not listen")
	defer ln.Close()
	conns := make(chan net.Conn)
	go func() {
		c, err := net.Dial("tcp", ln.Addr().String())
		rtx.Must(err, "Could not dial loopback listener")
		conns <- c
	}()
	s, err := ln.Accept()
	rtx.Must(err, "Could not accept")
	return <-conns, s
}

// shortWriter writes at most three bytes per call to force the partial
// write path in SendAll.
type shortWriter struct {
	buf bytes.Buffer
}

func (w *shortWriter) Write(p []byte) (int, error) {
	if len(p) > 3 {
		p = p[:3]
	}
	return w.buf.Write(p)
}

func TestSendAllPartialWrites(t *testing.T) {
	w := &shortWriter{}
	payload := NewFillerBuffer(100)
	if err := SendAll(w, payload); err != nil {
		t.Fatal("SendAll failed:", err)
	}
	if !bytes.Equal(w.buf.Bytes(), payload) {
		t.Error("the writer did not receive every byte in order")
	}
}

type failingWriter struct{ calls int }

func (w *failingWriter) Write(p []byte) (int, error) {
	w.calls++
	if w.calls > 1 {
		return 0, errors.New("synthetic write failure")
	}
	return 1, nil
}

func TestSendAllPropagatesError(t *testing.T) {
	if err := SendAll(&failingWriter{}, make([]byte, 10)); err == nil {
		t.Error("expected an error from the failing writer")
	}
}

func TestSendAllLoopback(t *testing.T) {
	cConn, sConn := mustLoopback(t)
	defer cConn.Close()
	const total = 256 * 1024
	received := make(chan int64)
	go func() {
		n, _ := io.Copy(io.Discard, sConn)
		sConn.Close()
		received <- n
	}()
	rtx.Must(SendAll(cConn, NewFillerBuffer(total)), "SendAll failed on loopback")
	cConn.Close()
	if n := <-received; n != total {
		t.Errorf("peer received %d bytes, want %d", n, total)
	}
}

func TestRecvFullBuffer(t *testing.T) {
	cConn, sConn := mustLoopback(t)
	defer cConn.Close()
	defer sConn.Close()
	go func() {
		rtx.Must(SendAll(sConn, NewFillerBuffer(4096)), "Could not send")
	}()
	buf := make([]byte, 4096)
	n, err := Recv(cConn, buf)
	if err != nil {
		t.Fatal("Recv failed:", err)
	}
	if n != len(buf) {
		t.Errorf("Recv returned %d bytes, want %d", n, len(buf))
	}
}

func TestRecvEOFNeverTimeout(t *testing.T) {
	cConn, sConn := mustLoopback(t)
	defer cConn.Close()
	go func() {
		rtx.Must(SendAll(sConn, NewFillerBuffer(100)), "Could not send")
		sConn.Close()
	}()
	buf := make([]byte, 4096)
	n, err := recvDeadline(cConn, buf, 2*time.Second)
	if !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF for a clean close, got %v", err)
	}
	if n != 100 {
		t.Errorf("Recv accumulated %d bytes before EOF, want 100", n)
	}
}

func TestRecvTimeoutNeverEOF(t *testing.T) {
	cConn, sConn := mustLoopback(t)
	defer cConn.Close()
	defer sConn.Close()
	// The peer stays silent and does not close.
	buf := make([]byte, 16)
	n, err := recvDeadline(cConn, buf, 100*time.Millisecond)
	if !errors.Is(err, ErrInactivityTimeout) {
		t.Fatalf("expected ErrInactivityTimeout for a silent peer, got %v", err)
	}
	if errors.Is(err, io.EOF) {
		t.Error("a stalled peer must never look like EOF")
	}
	if n != 0 {
		t.Errorf("accumulated %d bytes from a silent peer", n)
	}
}

func TestRecvBudgetResetsOnActivity(t *testing.T) {
	cConn, sConn := mustLoopback(t)
	defer cConn.Close()
	defer sConn.Close()
	// Three bytes spaced further apart than the deadline would allow
	// in aggregate, but each gap is within the per-read budget.
	go func() {
		for i := 0; i < 3; i++ {
			time.Sleep(60 * time.Millisecond)
			_, err := sConn.Write([]byte{'x'})
			rtx.Must(err, "Could not write")
		}
	}()
	buf := make([]byte, 3)
	n, err := recvDeadline(cConn, buf, 150*time.Millisecond)
	if err != nil {
		t.Fatal("Recv failed despite steady trickle:", err)
	}
	if n != 3 {
		t.Errorf("Recv returned %d bytes, want 3", n)
	}
}

func TestNewFillerBuffer(t *testing.T) {
	buf := NewFillerBuffer(12288)
	if len(buf) != 12288 {
		t.Fatalf("buffer is %d bytes, want 12288", len(buf))
	}
	for i, b := range buf {
		if b < 33 || b > 121 {
			t.Fatalf("byte %d (0x%x) is outside the printable cycle", i, b)
		}
	}
}
