// Copyright (C) 2024  wwhai
//
// This program is free software; you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation; either version 2 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License along
// with this program; if not, see <https://www.gnu.org/licenses/>.

package dynamixel

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// LogLevel type defines the severity of a log message.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarning
	LevelError
	LevelNone // Disables logging
)

// LevelToString maps LogLevel to its string representation.
var LevelToString = map[LogLevel]string{
	LevelDebug:   "DEBUG",
	LevelInfo:    "INFO",
	LevelWarning: "WARNING",
	LevelError:   "ERROR",
	LevelNone:    "NONE",
}

// StringToLevel maps string representation of LogLevel to its value.
var StringToLevel = map[string]LogLevel{
	"DEBUG":   LevelDebug,
	"INFO":    LevelInfo,
	"WARNING": LevelWarning,
	"WARN":    LevelWarning,
	"ERROR":   LevelError,
	"NONE":    LevelNone,
}

var zerologLevels = map[LogLevel]zerolog.Level{
	LevelDebug:   zerolog.DebugLevel,
	LevelInfo:    zerolog.InfoLevel,
	LevelWarning: zerolog.WarnLevel,
	LevelError:   zerolog.ErrorLevel,
}

// SimpleLogger is the io.Writer handed to Client.SetLogger. Each write is one
// message whose level is taken from a DEBUG:/INFO:/WARNING:/ERROR: prefix; it
// is filtered by the configured level and emitted through zerolog.
type SimpleLogger struct {
	mu     sync.Mutex
	level  LogLevel
	output io.Writer
	zl     zerolog.Logger
}

// NewSimpleLogger creates a new SimpleLogger writing human-readable lines.
// If output is nil, it defaults to os.Stdout.
func NewSimpleLogger(output io.Writer, level LogLevel, component string) *SimpleLogger {
	if output == nil {
		output = os.Stdout
	}
	console := zerolog.ConsoleWriter{Out: output, TimeFormat: time.RFC3339, NoColor: true}
	return newSimpleLogger(output, level, zerolog.New(console), component)
}

// NewJSONLogger creates a SimpleLogger emitting one JSON object per message.
func NewJSONLogger(output io.Writer, level LogLevel, component string) *SimpleLogger {
	if output == nil {
		output = os.Stdout
	}
	return newSimpleLogger(output, level, zerolog.New(output), component)
}

func newSimpleLogger(output io.Writer, level LogLevel, zl zerolog.Logger, component string) *SimpleLogger {
	return &SimpleLogger{
		level:  level,
		output: output,
		zl:     zl.With().Timestamp().Str("component", component).Logger(),
	}
}

// SetLevel sets the logging level of the SimpleLogger.
func (l *SimpleLogger) SetLevel(level LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// GetLevel returns the current logging level of the SimpleLogger.
func (l *SimpleLogger) GetLevel() LogLevel {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.level
}

// SetLevelFromString sets the logging level from a string representation (e.g., "DEBUG").
func (l *SimpleLogger) SetLevelFromString(levelStr string) error {
	level, err := ParseLogLevel(levelStr)
	if err != nil {
		return err
	}
	l.SetLevel(level)
	return nil
}

// ParseLogLevel parses a level name, ignoring case.
func ParseLogLevel(levelStr string) (LogLevel, error) {
	if level, ok := StringToLevel[strings.ToUpper(strings.TrimSpace(levelStr))]; ok {
		return level, nil
	}
	return LevelNone, fmt.Errorf("invalid log level: %s. Available levels: %v", levelStr, getAvailableLevels())
}

func getAvailableLevels() []string {
	levels := make([]string, 0, len(StringToLevel))
	for levelStr := range StringToLevel {
		levels = append(levels, levelStr)
	}
	sort.Strings(levels)
	return levels
}

// Logger returns the underlying zerolog logger.
func (l *SimpleLogger) Logger() zerolog.Logger {
	return l.zl
}

// Write implements io.Writer. Messages below the configured level are
// dropped but still reported as written.
func (l *SimpleLogger) Write(p []byte) (n int, err error) {
	message := string(p)
	level, body := splitLevel(message)

	current := l.GetLevel()
	if current == LevelNone || level < current {
		return len(p), nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.zl.WithLevel(zerologLevels[level]).Msg(strings.TrimSpace(body))
	return len(p), nil
}

// Close closes the underlying output if it's not os.Stdout or os.Stderr.
func (l *SimpleLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.output == os.Stdout || l.output == os.Stderr {
		return nil
	}
	if closer, ok := l.output.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

var levelPrefixes = []struct {
	prefix string
	level  LogLevel
}{
	{"[DEBUG]", LevelDebug},
	{"DEBUG:", LevelDebug},
	{"[INFO]", LevelInfo},
	{"INFO:", LevelInfo},
	{"[WARNING]", LevelWarning},
	{"WARNING:", LevelWarning},
	{"WARN:", LevelWarning},
	{"[ERROR]", LevelError},
	{"ERROR:", LevelError},
}

// splitLevel infers the level from the message prefix and strips it.
// Messages without a known prefix are LevelInfo.
func splitLevel(message string) (LogLevel, string) {
	trimmed := strings.TrimLeft(message, " \t")
	upper := strings.ToUpper(trimmed)
	for _, p := range levelPrefixes {
		if strings.HasPrefix(upper, p.prefix) {
			return p.level, trimmed[len(p.prefix):]
		}
	}
	return LevelInfo, message
}
