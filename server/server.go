// Package server implements the accepting side of a netthru session:
// listen, accept one connection, decode its directive, stream filler
// data for the requested duration, close, and go back to listening.
package server

import (
	"context"
	"net"
	"time"

	"github.com/apex/log"
	"github.com/google/uuid"
	"github.com/m-lab/go/warnonerror"

	"github.com/m-lab/netthru/logging"
	"github.com/m-lab/netthru/meter"
	"github.com/m-lab/netthru/metrics"
	"github.com/m-lab/netthru/protocol"
	"github.com/m-lab/netthru/transfer"
)

// Server accepts netthru sessions and streams filler data on request.
// It serves exactly one connection at a time: the point of the program
// is to measure total throughput, and simultaneous sessions would
// share the link and corrupt each other's measurement.
type Server struct {
	// Logger is the run's log sink. When nil, logging.Logger is used.
	Logger   log.Interface
	listener net.Listener
}

// Listen opens the server socket on addr. It is separate from Serve so
// that callers binding port 0 can discover the assigned address before
// any client connects.
func (s *Server) Listen(addr string) error {
	if s.Logger == nil {
		s.Logger = logging.Logger
	}
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.listener = l
	return nil
}

// Addr returns the address the server is listening on.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Serve accepts and serves sessions until ctx is canceled. Each
// session runs to completion before the next Accept: a failed session
// is logged and the loop simply returns to accepting. Only context
// cancellation ends the loop.
func (s *Server) Serve(ctx context.Context) error {
	// Close the listener when the context is canceled, so that
	// cancellation interrupts a blocked Accept.
	go func() {
		<-ctx.Done()
		s.listener.Close()
	}()
	for {
		s.Logger.WithField("addr", s.listener.Addr().String()).Info("waiting to accept a connection")
		conn, err := s.listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.Logger.WithError(err).Error("accept failed")
			metrics.Sessions.WithLabelValues(metrics.ResultAcceptError).Inc()
			continue
		}
		s.serveConn(conn)
	}
}

// serveConn runs one full session lifecycle on an accepted connection.
func (s *Server) serveConn(conn net.Conn) {
	defer warnonerror.Close(conn, "Could not close session connection")
	logger := s.Logger.WithField("session", uuid.NewString())
	logger.WithField("client", conn.RemoteAddr().String()).Info("accepted connection")

	d, err := protocol.ReadDirective(conn)
	if err != nil {
		logger.WithError(err).Error("could not read client directive")
		metrics.Sessions.WithLabelValues(metrics.ResultProtocolError).Inc()
		return
	}
	logger.WithFields(log.Fields{
		"secs":        d.Seconds,
		"bytesPerBuf": d.BytesPerBuf,
		"msg":         d.Message,
	}).Info("client directive received")
	if err := d.Validate(); err != nil {
		logger.WithError(err).Error("rejecting session")
		metrics.Sessions.WithLabelValues(metrics.ResultProtocolError).Inc()
		return
	}

	filler := transfer.NewFillerBuffer(d.BytesPerBuf)
	duration := time.Duration(d.Seconds) * time.Second
	start := time.Now()
	m := meter.Start(start)
	for {
		if err := transfer.SendAll(conn, filler); err != nil {
			logger.WithError(err).WithField("bytesSent", m.TotalBytes()).Error("send failed mid-stream")
			metrics.Sessions.WithLabelValues(metrics.ResultTransferError).Inc()
			return
		}
		metrics.BytesStreamed.Add(float64(len(filler)))
		now := time.Now()
		m.Record(int64(len(filler)), now)
		// The current chunk always completes, so the total sent may
		// slightly exceed the exact nominal average.
		if now.Sub(start) >= duration {
			break
		}
	}

	summary := m.Summary(time.Now())
	logger.WithFields(log.Fields{
		"bytes": summary.Bytes,
		"secs":  summary.Elapsed.Seconds(),
		"MBps":  summary.MBPerSec(),
		"Mbps":  summary.MbPerSec(),
	}).Info("session complete")
	metrics.Sessions.WithLabelValues(metrics.ResultOkay).Inc()
	metrics.SessionDuration.Observe(summary.Elapsed.Seconds())
	metrics.SessionRate.Observe(summary.MbPerSec())
}
