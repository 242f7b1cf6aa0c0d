// Package debug builds the zerolog loggers used by the gosnips CLI.
package debug

import (
	"fmt"
	"io"
	"reflect"
	"runtime"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
)

type Options struct {
	Level zerolog.Level
	// Color enables ANSI colors in the console output and the caller field.
	Color bool
	// Caller adds the package, file and line of every log call.
	Caller bool
	// TimeFormat of the time field, millisecond UTC when empty.
	TimeFormat string
}

// NewLogger returns a console logger writing to w.
func NewLogger(w io.Writer, opts Options) zerolog.Logger {
	out := zerolog.ConsoleWriter{
		Out:     w,
		NoColor: !opts.Color,
		FormatTimestamp: func(i interface{}) string {
			return fmt.Sprint(i)
		},
	}

	logger := zerolog.New(out).Level(opts.Level).Hook(TimeHook{Format: opts.TimeFormat})
	if opts.Caller {
		logger = logger.Hook(CallerHook{WithColor: opts.Color})
	}
	return logger
}

// Level maps the --debug and --quiet flags to a log level.
func Level(debug, quiet bool) zerolog.Level {
	switch {
	case debug:
		return zerolog.TraceLevel
	case quiet:
		return zerolog.ErrorLevel
	}
	return zerolog.WarnLevel
}

func callerSkipFrameCount(e *zerolog.Event) int {
	// skipFrame is unexported; reading it through reflect is allowed
	field := reflect.ValueOf(e).Elem().FieldByName("skipFrame")
	if field.IsValid() {
		return int(field.Int())
	}
	return 0
}

type TimeHook struct {
	Format string
}

func (t TimeHook) Run(e *zerolog.Event, _ zerolog.Level, _ string) {
	format := t.Format
	if format == "" {
		format = "2006-01-02T15:04:05.0000Z"
	}
	e.Str(zerolog.TimestampFieldName, time.Now().UTC().Format(format))
}

type CallerHook struct {
	WithColor bool
}

func (c CallerHook) Run(e *zerolog.Event, _ zerolog.Level, _ string) {
	pc, file, line, ok := runtime.Caller(callerSkipFrameCount(e) + 3)
	if !ok {
		return
	}

	pkg, _ := SplitFuncName(runtime.FuncForPC(pc).Name())
	e.Str(zerolog.CallerFieldName, FormatCaller(pkg, file, line, c.WithColor))
}

// SplitFuncName splits a fully qualified function name as reported by the
// runtime into its package path and function, methods keeping their receiver.
func SplitFuncName(name string) (pkg, function string) {
	lastSlash := strings.LastIndexByte(name, '/')
	if lastSlash < 0 {
		lastSlash = 0
	}

	firstDot := strings.IndexByte(name[lastSlash:], '.')
	if firstDot < 0 {
		return name, ""
	}
	firstDot += lastSlash

	pkg = name[:firstDot]
	function = name[firstDot+1:]

	if strings.HasPrefix(function, "(") {
		return pkg, function
	}
	if strings.Contains(pkg, ".(") {
		parts := strings.SplitN(pkg, ".(", 2)
		pkg = parts[0]
		function = "(" + parts[1] + "." + function
	}
	return pkg, function
}

func FormatCaller(pkg, path string, line int, colorize bool) string {
	file := path
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		file = path[i+1:]
	}

	if colorize {
		sep := color.New(color.Faint).Sprint(":")
		return pkg + sep + color.New(color.Bold).Sprint(file) + sep + color.New(color.FgHiRed, color.Bold).Sprintf("%d", line)
	}
	return fmt.Sprintf("%s:%s:%d", pkg, file, line)
}
