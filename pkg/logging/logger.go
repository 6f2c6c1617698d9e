// Package logging provides the levelled logger used by the converter.
// Messages go to stdout through the standard log package unless a log file is
// configured, in which case they are written to a rotating file.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/natefinch/lumberjack"
)

// Logger is the levelled logging interface used throughout the module
type Logger interface {
	// Debugf formats its arguments analogous to fmt.Printf and records the text
	// at Debug level. Debug lines are dropped unless verbose output is on.
	Debugf(format string, args ...interface{})

	// Infof is like Debugf, but at Info level.
	Infof(format string, args ...interface{})

	// Warningf is like Debugf, but at Warning level.
	Warningf(format string, args ...interface{})

	// Errorf is like Debugf, but at Error level.
	Errorf(format string, args ...interface{})
}

// Config controls where log lines are written
type Config struct {
	// File is the path of a rotating log file. Empty means stdout.
	File string `yaml:"file"`

	// MaxSize is the size in megabytes at which the log file is rotated
	MaxSize int `yaml:"maxSize"`

	// MaxAge is the number of days rotated files are retained
	MaxAge int `yaml:"maxAge"`

	// Verbose enables Debug lines
	Verbose bool `yaml:"verbose"`
}

// StdLogger writes levelled lines through a standard library *log.Logger
type StdLogger struct {
	out     *log.Logger
	file    *lumberjack.Logger
	verbose bool
}

// New creates a logger for the given configuration
func New(c Config) *StdLogger {
	var w io.Writer = os.Stdout
	var file *lumberjack.Logger
	if c.File != "" {
		file = &lumberjack.Logger{
			Filename: c.File,
			MaxSize:  c.MaxSize, // megabytes
			MaxAge:   c.MaxAge,  // days
		}
		w = file
	}
	return &StdLogger{
		out:     log.New(w, "", log.LstdFlags),
		file:    file,
		verbose: c.Verbose,
	}
}

// NewWriter creates a logger that writes to w, mostly useful in tests
func NewWriter(w io.Writer, verbose bool) *StdLogger {
	return &StdLogger{out: log.New(w, "", 0), verbose: verbose}
}

func (l *StdLogger) printf(level, format string, args ...interface{}) {
	l.out.Printf(level+" "+format, args...)
}

func (l *StdLogger) Debugf(format string, args ...interface{}) {
	if l.verbose {
		l.printf("DEBUG", format, args...)
	}
}

func (l *StdLogger) Infof(format string, args ...interface{}) {
	l.printf("INFO", format, args...)
}

func (l *StdLogger) Warningf(format string, args ...interface{}) {
	l.printf("WARNING", format, args...)
}

func (l *StdLogger) Errorf(format string, args ...interface{}) {
	l.printf("ERROR", format, args...)
}

// Shutdown closes the log file, if any
func (l *StdLogger) Shutdown() error {
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

// Fields renders key=value pairs in a stable order so log lines can be grepped
// and parsed. Values containing spaces are quoted.
func Fields(kv map[string]interface{}) string {
	keys := make([]string, 0, len(kv))
	for k := range kv {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		s := fmt.Sprint(kv[k])
		if strings.ContainsAny(s, " \t\"=") {
			s = fmt.Sprintf("%q", s)
		}
		parts = append(parts, k+"="+s)
	}
	return strings.Join(parts, " ")
}

// Entry is one captured log line
type Entry struct {
	Level   string
	Message string
}

// Recorder is a Logger that keeps every line in memory
type Recorder struct {
	mu      sync.Mutex
	entries []Entry
}

func (r *Recorder) add(level, format string, args ...interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, Entry{Level: level, Message: fmt.Sprintf(format, args...)})
}

func (r *Recorder) Debugf(format string, args ...interface{})   { r.add("DEBUG", format, args...) }
func (r *Recorder) Infof(format string, args ...interface{})    { r.add("INFO", format, args...) }
func (r *Recorder) Warningf(format string, args ...interface{}) { r.add("WARNING", format, args...) }
func (r *Recorder) Errorf(format string, args ...interface{})   { r.add("ERROR", format, args...) }

// Entries returns a copy of the captured lines
func (r *Recorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Entry(nil), r.entries...)
}

// Find returns the captured lines whose message contains substr
func (r *Recorder) Find(substr string) []Entry {
	var found []Entry
	for _, e := range r.Entries() {
		if strings.Contains(e.Message, substr) {
			found = append(found, e)
		}
	}
	return found
}
