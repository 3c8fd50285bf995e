// Package client implements the initiating side of a netthru session:
// connect, send the directive, then read the resulting byte stream
// until the server closes it, measuring throughput along the way. One
// Run is one measurement; there is no reconnection.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"

	"github.com/apex/log"
	"github.com/m-lab/go/warnonerror"

	"github.com/m-lab/netthru/config"
	"github.com/m-lab/netthru/logging"
	"github.com/m-lab/netthru/meter"
	"github.com/m-lab/netthru/protocol"
	"github.com/m-lab/netthru/transfer"
)

// Client performs a single throughput measurement against a netthru
// server and reports the result.
type Client struct {
	// Logger is the run's log sink. When nil, logging.Logger is used.
	Logger log.Interface
	// Dialer is used to reach the server. The zero value works.
	Dialer net.Dialer
}

// Run connects to the server named by the settings, requests a stream,
// and reads it to EOF. It returns the whole-session summary: total
// bytes received over wall-clock seconds from connect to EOF. A
// receive timeout or any mid-stream failure aborts the measurement
// with an error; partial totals are still reported for diagnostics.
func (c *Client) Run(ctx context.Context, settings config.Settings) (meter.Report, error) {
	if c.Logger == nil {
		c.Logger = logging.Logger
	}
	addr := net.JoinHostPort(settings.RemoteIP, strconv.Itoa(settings.Port))
	c.Logger.WithFields(log.Fields{
		"remote":      addr,
		"secs":        settings.Seconds,
		"bytesPerBuf": settings.BytesPerBuf,
		"msg":         settings.Message,
	}).Info("client parameters")

	conn, err := c.Dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return meter.Report{}, fmt.Errorf("connect to %s: %w", addr, err)
	}
	defer warnonerror.Close(conn, "Could not close connection to server")
	c.Logger.WithField("remote", addr).Info("connected")

	d := protocol.Directive{
		Seconds:     settings.Seconds,
		BytesPerBuf: settings.BytesPerBuf,
		Message:     settings.Message,
	}
	if err := transfer.SendAll(conn, []byte(d.Format())); err != nil {
		return meter.Report{}, fmt.Errorf("send directive: %w", err)
	}

	buf := make([]byte, settings.BytesPerBuf)
	m := meter.Start(time.Now())
	for {
		n, err := transfer.Recv(conn, buf)
		now := time.Now()
		if n > 0 {
			if sample, ok := m.Record(int64(n), now); ok {
				c.Logger.Infof("%9.3f MB/sec (%.3f Mb/sec)", sample.MBPerSec(), sample.MbPerSec())
			}
		}
		if errors.Is(err, io.EOF) {
			// A clean close is the only end-of-data signal; there is
			// no in-band terminator.
			summary := m.Summary(now)
			c.Logger.WithFields(log.Fields{
				"bytes": summary.Bytes,
				"secs":  summary.Elapsed.Seconds(),
			}).Infof("%8.3f MB/sec (%.3f Mb/sec) final average", summary.MBPerSec(), summary.MbPerSec())
			return summary, nil
		}
		if err != nil {
			return m.Summary(now), fmt.Errorf("receive after %d bytes: %w", m.TotalBytes(), err)
		}
	}
}
