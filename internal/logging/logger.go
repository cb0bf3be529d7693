package logging

import (
	"io"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// DefaultBufferSize is how many recent log lines a Buffer keeps.
const DefaultBufferSize = 100

var redactPattern = regexp.MustCompile(`(?i)\b(\w*(?:password|token|key|secret|auth)\w*)(=|:\s*)("[^"]*"|\S+)`)

type Options struct {
	Output     io.Writer
	Level      string
	Prefix     string
	BufferSize int
}

// Logging owns the process logger and its recent-lines buffer. It is
// created once in main and handed to components.
type Logging struct {
	Logger *log.Logger
	Buffer *Buffer
}

func New(opts Options) *Logging {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	level, err := log.ParseLevel(strings.ToLower(strings.TrimSpace(opts.Level)))
	if err != nil || opts.Level == "" {
		level = log.InfoLevel
	}

	buf := NewBuffer(opts.BufferSize)
	logger := log.NewWithOptions(io.MultiWriter(out, buf), log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Level:           level,
		Prefix:          opts.Prefix,
	})

	return &Logging{Logger: logger, Buffer: buf}
}

// Discard returns a logger that writes nowhere, for tests and optional
// collaborators.
func Discard() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.FatalLevel})
}

// Component returns a child logger tagged with the component name.
func (l *Logging) Component(name string) *log.Logger {
	return l.Logger.WithPrefix(name)
}

// Buffer keeps the most recent log lines with credential-looking values
// redacted. Safe for concurrent use.
type Buffer struct {
	mu    sync.Mutex
	lines []string
	size  int
	head  int
	count int
}

func NewBuffer(size int) *Buffer {
	if size <= 0 {
		size = DefaultBufferSize
	}
	return &Buffer{lines: make([]string, size), size: size}
}

func (b *Buffer) Write(p []byte) (int, error) {
	for _, line := range strings.Split(strings.TrimRight(string(p), "\n"), "\n") {
		if line == "" {
			continue
		}
		b.push(Redact(line))
	}
	return len(p), nil
}

func (b *Buffer) push(line string) {
	b.mu.Lock()
	b.lines[b.head] = line
	b.head = (b.head + 1) % b.size
	if b.count < b.size {
		b.count++
	}
	b.mu.Unlock()
}

// Lines returns the buffered lines oldest first.
func (b *Buffer) Lines() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.count == 0 {
		return nil
	}
	out := make([]string, b.count)
	if b.count < b.size {
		copy(out, b.lines[:b.count])
	} else {
		n := copy(out, b.lines[b.head:])
		copy(out[n:], b.lines[:b.head])
	}
	return out
}

func (b *Buffer) Reset() {
	b.mu.Lock()
	b.head, b.count = 0, 0
	b.mu.Unlock()
}

// Redact masks values that follow credential-looking keys.
func Redact(s string) string {
	return redactPattern.ReplaceAllString(s, "$1$2[REDACTED]")
}
