// Package logging constructs the log sink shared by the netthru server
// and client. The sink is built once in main for the duration of the
// run and passed into the session components explicitly; nothing in
// this repo logs through ambient global file handles.
package logging

import (
	golog "log"
	"net/http"
	"os"

	"github.com/apex/log"
	"github.com/apex/log/handlers/logfmt"
	"github.com/apex/log/handlers/multi"
	"github.com/apex/log/handlers/text"
	"github.com/gorilla/handlers"
)

// Logger is the fallback logger, writing to the standard error. It is
// used before New has run and by components that were not handed a
// sink of their own.
var Logger log.Interface = &log.Logger{
	Handler: text.New(os.Stderr),
	Level:   log.InfoLevel,
}

// New returns a logger that writes human-readable lines to the
// standard error and appends logfmt lines to the file at path. The
// returned close function releases the file and is always safe to
// call.
func New(path string) (log.Interface, func(), error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, func() {}, err
	}
	logger := &log.Logger{
		Handler: multi.New(text.New(os.Stderr), logfmt.New(f)),
		Level:   log.InfoLevel,
	}
	return logger, func() { f.Close() }, nil
}

// MakeAccessLogHandler wraps |handler| with another handler that logs
// access to each resource on the standard output. Access logs are a
// fairly standard format that has been around for a long time now, so
// better to follow such standard than to invent one.
func MakeAccessLogHandler(handler http.Handler) http.Handler {
	return handlers.LoggingHandler(golog.Writer(), handler)
}
