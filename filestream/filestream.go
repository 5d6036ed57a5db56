// Package filestream implements the FileStream notifier: it tails a
// path by polling for growth, the same periodical-timer technique
// package filewatcher uses for stat polling, and delivers
// delimiter-terminated records as they complete. A trailing partial
// record is carried forward across polls, the same way package
// stream's read buffer carries forward bytes that don't yet satisfy a
// queued read predicate.
package filestream

import (
	"io"
	"os"
	"regexp"
	"time"

	"github.com/joeycumines/go-asyncipc/loop"
	"github.com/joeycumines/go-asyncipc/notifier"
	"github.com/joeycumines/go-asyncipc/periodical"
)

// DefaultInterval is the poll interval used when Config.Interval is
// zero.
const DefaultInterval = 2 * time.Second

// defaultDelimiter matches a single newline.
var defaultDelimiter = regexp.MustCompile("\n")

// Config supplies FileStream's construction-time fields.
type Config struct {
	Name string
	Path string

	// Interval is the poll period; DefaultInterval if zero.
	Interval time.Duration

	// Delimiter splits tailed content into records; defaultDelimiter (a
	// single newline) if nil. A match is included in the record it
	// terminates, mirroring read_until's "up to and including the
	// match" contract.
	Delimiter *regexp.Regexp

	// OnInitial reports the file's size at Start, before any record is
	// delivered.
	OnInitial func(size int64)

	// OnRead is invoked once per completed record, in arrival order.
	OnRead func(record []byte)
}

// FileStream tails Config.Path, delivering records as their delimiter
// arrives. At Start it seeks past any already-complete trailing
// records in the existing content but keeps a partial trailing
// fragment pending, so a line that was cut off mid-write is delivered
// intact once the rest of it lands.
type FileStream struct {
	*notifier.Base

	l    *loop.Loop
	cfg  Config
	poll *periodical.Periodical

	f       *os.File
	offset  int64
	pending []byte
}

// New constructs a FileStream bound to l. It does not open Config.Path
// or start polling; call Start.
func New(l *loop.Loop, cfg Config) (*FileStream, error) {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Delimiter == nil {
		cfg.Delimiter = defaultDelimiter
	}
	base, err := notifier.New(l, notifier.Config{Type: "filestream", Name: cfg.Name})
	if err != nil {
		return nil, err
	}
	fs := &FileStream{Base: base, l: l, cfg: cfg}
	poll, err := periodical.New(l, cfg.Name+".poll", cfg.Interval, fs.check)
	if err != nil {
		return nil, err
	}
	fs.poll = poll
	return fs, nil
}

// Start opens Config.Path, seeks the read cursor to the end of the last
// complete record already present (retaining any partial trailing
// fragment as pending), reports the pre-existing size via OnInitial,
// and arms the poll timer.
func (fs *FileStream) Start() error {
	f, err := os.Open(fs.cfg.Path)
	if err != nil {
		return err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return err
	}
	size := info.Size()
	content := make([]byte, size)
	if size > 0 {
		if _, err := io.ReadFull(f, content); err != nil {
			f.Close()
			return err
		}
	}

	fs.f = f
	fs.offset = size

	var lastEnd int
	if locs := fs.cfg.Delimiter.FindAllIndex(content, -1); len(locs) > 0 {
		lastEnd = locs[len(locs)-1][1]
	}
	fs.pending = append([]byte(nil), content[lastEnd:]...)

	if fs.cfg.OnInitial != nil {
		fs.cfg.OnInitial(size)
	}
	return fs.poll.Start()
}

// Stop disarms the poll timer and closes the underlying file.
func (fs *FileStream) Stop() {
	fs.poll.Stop()
	if fs.f != nil {
		fs.f.Close()
		fs.f = nil
	}
}

// Destroy implies Stop, matching FileWatcher's own precedent.
func (fs *FileStream) Destroy() {
	fs.Stop()
	fs.Base.Destroy()
}

// Offset returns the current read cursor into the tailed file.
func (fs *FileStream) Offset() int64 { return fs.offset }

func (fs *FileStream) check() {
	if fs.f == nil {
		return
	}
	info, err := fs.f.Stat()
	if err != nil {
		defaultLogger.Err().Str("path", fs.cfg.Path).Err(err).Log("filestream stat failed")
		return
	}
	size := info.Size()
	if size < fs.offset {
		fs.offset = size
		fs.pending = fs.pending[:0]
		return
	}
	if size == fs.offset {
		return
	}

	buf := make([]byte, size-fs.offset)
	n, err := fs.f.ReadAt(buf, fs.offset)
	if err != nil && err != io.EOF {
		defaultLogger.Err().Str("path", fs.cfg.Path).Err(err).Log("filestream read failed")
		return
	}
	fs.offset += int64(n)
	fs.pending = append(fs.pending, buf[:n]...)
	fs.drain()
}

func (fs *FileStream) drain() {
	for {
		loc := fs.cfg.Delimiter.FindIndex(fs.pending)
		if loc == nil {
			return
		}
		record := append([]byte(nil), fs.pending[:loc[1]]...)
		fs.pending = fs.pending[loc[1]:]
		if fs.cfg.OnRead != nil {
			fs.cfg.OnRead(record)
		}
	}
}
