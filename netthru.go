// netthru is a command-line program to measure the network throughput
// between two computers. One copy of the program is run in server
// mode, and the other is run in client mode. The server streams filler
// data over TCP as fast as possible for a client-requested duration;
// the client reads the stream and measures the throughput.
package main

import (
	"context"
	"flag"
	"net/http"
	"net/http/pprof"
	"os"
	"strconv"

	"github.com/m-lab/go/flagx"
	"github.com/m-lab/go/httpx"
	"github.com/m-lab/go/rtx"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/m-lab/netthru/client"
	"github.com/m-lab/netthru/config"
	"github.com/m-lab/netthru/logging"
	"github.com/m-lab/netthru/server"
)

var (
	mode      = flag.String("mode", "", "server or client")
	remoteIP  = flag.String("remoteip", "", "address of the server (client mode only)")
	port      = flag.Int("port", config.DefaultPort, "TCP port")
	secs      = flag.Int("secs", config.DefaultSeconds, "number of seconds for which the server should send")
	nbytes    = flag.Int("nbytes", config.DefaultBytesPerBuf, "number of bytes the server should send at once")
	msg       = flag.String("msg", "", "arbitrary message for the server to log")
	logfile   = flag.String("logfile", "", "log file path (defaults to netthruserver.log / netthruclient.log)")
	debugAddr = flag.String("debug-address", "", "address for the /metrics and pprof debug server (empty disables it)")

	// Context for the whole program.
	ctx, cancel = context.WithCancel(context.Background())
)

func main() {
	defer cancel()
	flag.Parse()
	rtx.Must(flagx.ArgsFromEnv(flag.CommandLine), "Could not get args from environment")

	settings := config.Settings{
		Mode:        *mode,
		RemoteIP:    *remoteIP,
		Port:        *port,
		Seconds:     *secs,
		BytesPerBuf: *nbytes,
		Message:     *msg,
		Logfile:     *logfile,
	}
	if err := settings.Validate(); err != nil {
		flag.Usage()
		rtx.Must(err, "Invalid command line")
	}

	logger, closeLog, err := logging.New(settings.LogfileOrDefault())
	rtx.Must(err, "Could not open log file")
	defer closeLog()

	if *debugAddr != "" {
		mux := http.NewServeMux()
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
		mux.Handle("/metrics", promhttp.Handler())
		srv := &http.Server{
			Addr:    *debugAddr,
			Handler: logging.MakeAccessLogHandler(mux),
		}
		rtx.Must(httpx.ListenAndServeAsync(srv), "Could not start debug server")
		defer srv.Close()
	}

	switch settings.Mode {
	case config.ModeServer:
		srv := &server.Server{Logger: logger}
		rtx.Must(srv.Listen(":"+strconv.Itoa(settings.Port)), "Could not listen")
		rtx.Must(srv.Serve(ctx), "Server loop failed")
	case config.ModeClient:
		c := &client.Client{Logger: logger}
		if _, err := c.Run(ctx, settings); err != nil {
			logger.WithError(err).Error("measurement failed")
			closeLog()
			os.Exit(1)
		}
	}
}
