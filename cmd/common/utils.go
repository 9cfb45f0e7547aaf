package common

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// LogLevel represents console verbosity
type LogLevel int

const (
	LogLevelError LogLevel = iota
	LogLevelWarn
	LogLevelInfo
	LogLevelDebug
)

// Console prints user-facing CLI messages
type Console struct {
	Out        io.Writer
	Level      LogLevel
	ShowEmojis bool
	SilentMode bool
}

// NewConsole creates a console writing to w
func NewConsole(w io.Writer) *Console {
	return &Console{
		Out:        w,
		Level:      LogLevelInfo,
		ShowEmojis: true,
	}
}

func (c *Console) prefix(emoji, plain string) string {
	if c.ShowEmojis {
		return emoji
	}
	return plain
}

// Header prints a formatted header
func (c *Console) Header(title string) {
	if c.SilentMode {
		return
	}
	fmt.Fprintf(c.Out, "\n%s %s\n", c.prefix("🎯", "***"), strings.ToUpper(title))
	fmt.Fprintf(c.Out, "%s\n", strings.Repeat("=", len(title)+5))
}

// Section prints a formatted section header
func (c *Console) Section(title string) {
	if c.SilentMode {
		return
	}
	fmt.Fprintf(c.Out, "\n%s %s\n", c.prefix("📋", "---"), title)
	fmt.Fprintf(c.Out, "%s\n", strings.Repeat("-", len(title)+5))
}

func (c *Console) Info(format string, args ...interface{}) {
	if c.SilentMode || c.Level < LogLevelInfo {
		return
	}
	fmt.Fprintf(c.Out, "%s  %s\n", c.prefix("ℹ️", "[INFO]"), fmt.Sprintf(format, args...))
}

// Error always prints
func (c *Console) Error(format string, args ...interface{}) {
	fmt.Fprintf(c.Out, "%s %s\n", c.prefix("❌", "[ERROR]"), fmt.Sprintf(format, args...))
}

func (c *Console) Success(format string, args ...interface{}) {
	if c.SilentMode {
		return
	}
	fmt.Fprintf(c.Out, "%s %s\n", c.prefix("✅", "[SUCCESS]"), fmt.Sprintf(format, args...))
}

func (c *Console) Warn(format string, args ...interface{}) {
	if c.Level < LogLevelWarn {
		return
	}
	fmt.Fprintf(c.Out, "%s  %s\n", c.prefix("⚠️", "[WARN]"), fmt.Sprintf(format, args...))
}

func (c *Console) Debug(format string, args ...interface{}) {
	if c.Level < LogLevelDebug {
		return
	}
	fmt.Fprintf(c.Out, "%s %s\n", c.prefix("🔍", "[DEBUG]"), fmt.Sprintf(format, args...))
}

func (c *Console) Progress(format string, args ...interface{}) {
	if c.SilentMode {
		return
	}
	fmt.Fprintf(c.Out, "%s %s\n", c.prefix("🔄", "[PROGRESS]"), fmt.Sprintf(format, args...))
}

// DefaultConsole writes to stdout
var DefaultConsole = NewConsole(os.Stdout)

func Header(title string)                         { DefaultConsole.Header(title) }
func Section(title string)                        { DefaultConsole.Section(title) }
func Info(format string, args ...interface{})     { DefaultConsole.Info(format, args...) }
func Error(format string, args ...interface{})    { DefaultConsole.Error(format, args...) }
func Success(format string, args ...interface{})  { DefaultConsole.Success(format, args...) }
func Warn(format string, args ...interface{})     { DefaultConsole.Warn(format, args...) }
func Debug(format string, args ...interface{})    { DefaultConsole.Debug(format, args...) }
func Progress(format string, args ...interface{}) { DefaultConsole.Progress(format, args...) }
