/*
 * MailResponder - Copyright (C) 2022 Zane van Iperen.
 *    Contact: zane@zanevaniperen.com
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU General Public License version 2, and only
 * version 2 as published by the Free Software Foundation.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program; if not, write to the Free Software
 * Foundation, Inc., 59 Temple Place, Suite 330, Boston, MA  02111-1307  USA
 */

package logging

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	DefaultFile       = "service.log"
	DefaultMaxSizeMB  = 1
	DefaultMaxBackups = 5
	fileTimeFormat    = "2006-01-02 15:04:05"
)

type Config struct {
	File       string
	MaxSizeMB  int
	MaxBackups int
	// Format selects the console format, "text" or "json".
	Format string
	// Console defaults to stderr.
	Console io.Writer
}

func DefaultConfig() Config {
	return Config{
		File:       DefaultFile,
		MaxSizeMB:  DefaultMaxSizeMB,
		MaxBackups: DefaultMaxBackups,
		Format:     "text",
	}
}

// LevelName maps logrus levels onto the names used in the log files.
func LevelName(level log.Level) string {
	switch level {
	case log.TraceLevel:
		return "TRACE"
	case log.DebugLevel:
		return "DEBUG"
	case log.InfoLevel:
		return "INFO"
	case log.WarnLevel:
		return "WARNING"
	case log.ErrorLevel:
		return "ERROR"
	default:
		return "CRITICAL"
	}
}

func writeFields(b *bytes.Buffer, data log.Fields) {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		v := data[k]
		if err, ok := v.(error); ok {
			v = err.Error()
		}
		fmt.Fprintf(b, " %v=%v", k, v)
	}
}

// FileFormatter writes `time,LEVEL,"message"` lines with any fields
// appended as key=value pairs.
type FileFormatter struct{}

func (f *FileFormatter) Format(e *log.Entry) ([]byte, error) {
	b := new(bytes.Buffer)
	b.WriteString(e.Time.Format(fileTimeFormat))
	b.WriteByte(',')
	b.WriteString(LevelName(e.Level))
	b.WriteString(`,"`)
	b.WriteString(strings.ReplaceAll(e.Message, `"`, `""`))
	b.WriteByte('"')
	writeFields(b, e.Data)
	b.WriteByte('\n')
	return b.Bytes(), nil
}

// ConsoleFormatter writes `LEVEL - message` lines.
type ConsoleFormatter struct{}

func (f *ConsoleFormatter) Format(e *log.Entry) ([]byte, error) {
	b := new(bytes.Buffer)
	b.WriteString(LevelName(e.Level))
	b.WriteString(" - ")
	b.WriteString(e.Message)
	writeFields(b, e.Data)
	b.WriteByte('\n')
	return b.Bytes(), nil
}

// FileHook mirrors every entry into w using its own formatter.
type FileHook struct {
	mu        sync.Mutex
	w         io.Writer
	formatter log.Formatter
}

func NewFileHook(w io.Writer, formatter log.Formatter) *FileHook {
	if formatter == nil {
		formatter = &FileFormatter{}
	}
	return &FileHook{w: w, formatter: formatter}
}

func (h *FileHook) Levels() []log.Level {
	return log.AllLevels
}

func (h *FileHook) Fire(e *log.Entry) error {
	line, err := h.formatter.Format(e)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err = h.w.Write(line)
	return err
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Setup configures logger for console output and, if cfg.File is set, a
// size-rotated log file. The returned Closer releases the file.
func Setup(logger *log.Logger, cfg Config) (io.Closer, error) {
	console := cfg.Console
	if console == nil {
		console = os.Stderr
	}
	logger.SetOutput(console)

	switch strings.ToLower(cfg.Format) {
	case "json":
		logger.SetFormatter(&log.JSONFormatter{})
	case "", "text":
		logger.SetFormatter(&ConsoleFormatter{})
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	if cfg.File == "" {
		return nopCloser{}, nil
	}

	maxSize := cfg.MaxSizeMB
	if maxSize <= 0 {
		maxSize = DefaultMaxSizeMB
	}

	maxBackups := cfg.MaxBackups
	if maxBackups < 0 {
		maxBackups = DefaultMaxBackups
	}

	lj := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    maxSize,
		MaxBackups: maxBackups,
	}

	logger.AddHook(NewFileHook(lj, &FileFormatter{}))
	return lj, nil
}
