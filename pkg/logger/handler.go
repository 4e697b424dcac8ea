// Package logger is a colored slog handler for terminal output.
package logger

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/fatih/color"
)

var (
	timeColor    = color.New(color.Faint)
	requestColor = color.New(color.FgMagenta)
	keyColor     = color.New(color.FgCyan)
	errKeyColor  = color.New(color.FgRed)

	levelLabels = map[slog.Level]string{
		slog.LevelDebug: color.New(color.BgCyan, color.FgHiWhite).Sprint("DEBUG"),
		slog.LevelInfo:  color.New(color.BgGreen, color.FgHiWhite).Sprint("INFO "),
		slog.LevelWarn:  color.New(color.BgYellow, color.FgHiWhite).Sprint("WARN "),
		slog.LevelError: color.New(color.BgRed, color.FgHiWhite).Sprint("ERROR"),
	}
)

type Handler struct {
	groups []string
	attrs  []slog.Attr

	opts Options

	mu  *sync.Mutex
	out io.Writer
}

// NewHandler creates a Handler writing to out. A nil opts means DefaultOptions.
func NewHandler(out io.Writer, opts *Options) *Handler {
	h := &Handler{out: out, mu: &sync.Mutex{}}
	if opts == nil {
		h.opts = DefaultOptions()
	} else {
		h.opts = *opts
	}
	if h.opts.Level == nil {
		h.opts.Level = slog.LevelInfo
	}
	if h.opts.MsgColor == nil {
		h.opts.MsgColor = color.New()
	}
	return h
}

func (h *Handler) clone() *Handler {
	return &Handler{
		groups: append([]string(nil), h.groups...),
		attrs:  append([]slog.Attr(nil), h.attrs...),
		opts:   h.opts,
		mu:     h.mu,
		out:    h.out,
	}
}

func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.Level.Level()
}

func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	bf := getBuffer()
	defer freeBuffer(bf)

	if !r.Time.IsZero() {
		bf.WriteString(timeColor.Sprint(r.Time.Format(h.opts.TimeFormat)))
		bf.WriteByte(' ')
	}

	if requestID, ok := RequestIDFromContext(ctx); ok {
		bf.WriteString(requestColor.Sprintf("%d ", requestID))
	}

	bf.WriteString(levelLabel(r.Level))
	bf.WriteByte(' ')

	if src := h.source(r.PC); src != "" {
		bf.WriteString(src)
	}

	attrs := append([]slog.Attr(nil), h.attrs...)
	r.Attrs(func(a slog.Attr) bool {
		attrs = append(attrs, a)
		return true
	})
	if sessionID, ok := SessionIDFromContext(ctx); ok {
		attrs = append(attrs, slog.String("session", sessionID))
	}

	bf.WriteString(h.opts.MsgPrefix)
	bf.WriteString(h.opts.MsgColor.Sprint(h.message(r.Message, len(attrs) > 0)))

	prefix := h.groupPrefix()
	for _, a := range attrs {
		writeAttr(bf, prefix, a)
	}
	bf.WriteByte('\n')

	if h.opts.NoColor {
		stripANSI(bf)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.Copy(h.out, bf)
	return err
}

func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	h2 := h.clone()
	h2.groups = append(h2.groups, name)
	return h2
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	h2 := h.clone()
	h2.attrs = append(h2.attrs, attrs...)
	return h2
}

func (h *Handler) source(pc uintptr) string {
	if h.opts.SrcFileMode == Nop || pc == 0 {
		return ""
	}

	f, _ := runtime.CallersFrames([]uintptr{pc}).Next()
	filename := f.File
	if h.opts.SrcFileMode == ShortFile {
		filename = filepath.Base(f.File)
	}

	line := fmt.Sprintf(":%d", f.Line)
	if h.opts.SrcFileLength <= 0 {
		return filename + line + " "
	}

	if maxLen := h.opts.SrcFileLength - len(line) - 1; maxLen > 0 && len(filename) > maxLen {
		filename = filename[:maxLen]
	}
	return fmt.Sprintf("%-*s", h.opts.SrcFileLength, filename+line)
}

// message pads or truncates msg to MsgLength so attributes line up. Without
// attributes the full message is kept.
func (h *Handler) message(msg string, hasAttrs bool) string {
	if h.opts.MsgLength <= 0 || !hasAttrs {
		return msg
	}
	if len(msg) > h.opts.MsgLength {
		return msg[:h.opts.MsgLength-1] + "…"
	}
	return fmt.Sprintf("%-*s", h.opts.MsgLength, msg)
}

func (h *Handler) groupPrefix() string {
	if len(h.groups) == 0 {
		return ""
	}
	return strings.Join(h.groups, ".") + "."
}

func writeAttr(bf *bytes.Buffer, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}

	if a.Value.Kind() == slog.KindGroup {
		for _, ga := range a.Value.Group() {
			writeAttr(bf, prefix+a.Key+".", ga)
		}
		return
	}

	kc := keyColor
	if strings.Contains(a.Key, "err") {
		kc = errKeyColor
	}
	bf.WriteByte(' ')
	bf.WriteString(kc.Sprintf("%s%s=", prefix, a.Key))
	bf.WriteString(a.Value.String())
}

func levelLabel(level slog.Level) string {
	if label, ok := levelLabels[level]; ok {
		return label
	}
	return level.String()
}

var bufPool = sync.Pool{
	New: func() any {
		return &bytes.Buffer{}
	},
}

func getBuffer() *bytes.Buffer {
	bf := bufPool.Get().(*bytes.Buffer)
	bf.Reset()
	return bf
}

func freeBuffer(bf *bytes.Buffer) {
	bufPool.Put(bf)
}
