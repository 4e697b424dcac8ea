package logger

import (
	"bytes"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/fatih/color"
)

type SourceFileMode int

const (
	// Nop does nothing.
	Nop SourceFileMode = iota

	// ShortFile produces only the filename (for example main.go:69).
	ShortFile

	// LongFile produces the full file path.
	LongFile
)

type Options struct {
	// Level reports the minimum level to log. Nil means slog.LevelInfo.
	Level slog.Leveler

	TimeFormat string

	SrcFileMode SourceFileMode

	// SrcFileLength pads the source location to a fixed width, 0 keeps it as is.
	SrcFileLength int

	// MsgPrefix is printed before the message.
	MsgPrefix string

	MsgColor *color.Color

	// MsgLength pads the message to a fixed width, 0 keeps it as is.
	MsgLength int

	NoColor bool
}

func DefaultOptions() Options {
	return Options{
		Level:       slog.LevelDebug,
		TimeFormat:  time.DateTime,
		SrcFileMode: ShortFile,
		MsgPrefix:   color.HiWhiteString("| "),
		MsgColor:    color.New(),
	}
}

// ParseLevel maps debug, info, warn and error to slog levels.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}

var ansi = regexp.MustCompile("[\u001B\u009B][[\\]()#;?]*(?:(?:(?:[a-zA-Z\\d]*(?:;[a-zA-Z\\d]*)*)?\u0007)|(?:(?:\\d{1,4}(?:;\\d{0,4})*)?[\\dA-PRZcf-ntqry=><~]))")

func stripANSI(bf *bytes.Buffer) {
	cleaned := ansi.ReplaceAll(bf.Bytes(), nil)
	bf.Reset()
	bf.Write(cleaned)
}
