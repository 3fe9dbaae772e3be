// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package log prints what tasks did to a console and mirrors every line to
// a structured zerolog logger.
package log

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/walteh/buildfs/pkg/status"
)

// 🎨 Column layout of a path line
const (
	fileIndent   = 4
	nameWidth    = 35
	domainWidth  = 15
	statusWidth  = 15
	unknownStyle = '-'
)

type style struct {
	symbol rune
	color  color.Attribute
}

var statusStyles = map[status.FileStatus]style{
	status.StatusNew:       {'✓', color.FgGreen},
	status.StatusModified:  {'⟳', color.FgBlue},
	status.StatusDeleted:   {'✗', color.FgRed},
	status.StatusUnchanged: {'•', color.FgCyan},
}

var domainColors = map[string]color.Attribute{
	"execution": color.FgCyan,
	"local":     color.FgYellow,
}

// 🎯 FileOperation is one synchronized path, ready for display
type FileOperation struct {
	Path   string            // relative to the task target, directories end in "/"
	Domain string            // execution or local
	Status status.FileStatus // how the path was synchronized
	IsDir  bool
}

// FileOperationFromChange converts a synchronization change for display.
func FileOperationFromChange(c status.Change, domain string) FileOperation {
	p := c.Path
	if c.IsDir && p != "." {
		p += "/"
	}
	return FileOperation{Path: p, Domain: domain, Status: c.Status, IsDir: c.IsDir}
}

// 📦 TaskOperation names a task for its header line
type TaskOperation struct {
	Name   string
	Kind   string // copy, prepare or mirror
	Target string
}

// 🎯 Logger writes console lines. It is safe for concurrent use; a task's
// block is never interleaved with another's.
type Logger struct {
	zlog    zerolog.Logger
	console io.Writer
	verbose bool
	mu      sync.Mutex
}

// 🏭 New creates a logger printing to console. Unchanged paths are only
// printed when verbose is set.
func New(console io.Writer, zlog zerolog.Logger, verbose bool) *Logger {
	return &Logger{zlog: zlog, console: console, verbose: verbose}
}

type contextKey struct{}

var nop = New(io.Discard, zerolog.Nop(), false)

// FromContext returns the logger stored by NewContext, or one that prints
// nothing.
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(contextKey{}).(*Logger); ok {
		return logger
	}
	return nop
}

func NewContext(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, l)
}

func formatFileOperation(op FileOperation) string {
	st, ok := statusStyles[op.Status]
	if !ok {
		st = style{unknownStyle, color.FgYellow}
	}
	domainColor, ok := domainColors[op.Domain]
	if !ok {
		domainColor = color.FgBlue
	}

	return fmt.Sprintf("%*s%s %-*s %s %-*s",
		fileIndent, "",
		color.New(st.color).Sprint(string(st.symbol)),
		nameWidth, op.Path,
		color.New(domainColor).Sprintf("%-*s", domainWidth, op.Domain),
		statusWidth, op.Status)
}

// 📝 LogFileOperation prints one path line
func (l *Logger) LogFileOperation(ctx context.Context, op FileOperation) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.writeFileOperation(op)
}

func (l *Logger) writeFileOperation(op FileOperation) {
	fmt.Fprintln(l.console, formatFileOperation(op))
	l.zlog.Debug().
		Str("file", op.Path).
		Str("domain", op.Domain).
		Stringer("status", op.Status).
		Msg("file operation")
}

// 📝 LogTask prints a task header followed by the changes in report
func (l *Logger) LogTask(ctx context.Context, op TaskOperation, domain string, report *status.Report) {
	var changes []status.Change
	if report != nil {
		changes = report.Changes()
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	fmt.Fprintf(l.console, "[%s %s]\n", color.MagentaString(op.Kind), color.CyanString(op.Target))
	fmt.Fprintf(l.console, "%s %s\n", color.MagentaString("◆"), color.New(color.Bold).Sprint(op.Name))

	written, unchanged := 0, 0
	for _, c := range changes {
		if c.Status == status.StatusUnchanged {
			unchanged++
			if !l.verbose {
				continue
			}
		} else {
			written++
		}
		l.writeFileOperation(FileOperationFromChange(c, domain))
	}
	if unchanged > 0 && !l.verbose {
		fmt.Fprintf(l.console, "%*s%s\n", fileIndent, "", color.New(color.Faint).Sprintf("%d unchanged", unchanged))
	}

	l.zlog.Info().
		Str("task", op.Name).
		Str("kind", op.Kind).
		Str("target", op.Target).
		Int("written", written).
		Int("unchanged", unchanged).
		Msg("task complete")
}

// 📝 LogSkipped notes a task that did not need to run
func (l *Logger) LogSkipped(ctx context.Context, op TaskOperation, reason string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	faint := color.New(color.Faint)
	fmt.Fprintf(l.console, "%s %s %s\n", faint.Sprint("◇"), color.New(color.Bold).Sprint(op.Name), faint.Sprint("• "+reason))
	l.zlog.Info().Str("task", op.Name).Str("reason", reason).Msg("task skipped")
}

// Header prints the run banner.
func (l *Logger) Header(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "\n%s %s\n\n", color.New(color.Bold, color.FgCyan).Sprint("buildfs"), color.New(color.Faint).Sprint("• "+msg))
	l.zlog.Info().Msg(msg)
}

func (l *Logger) notice(prefix string, attr color.Attribute, level zerolog.Level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "%s %s\n", prefix, color.New(attr).Sprint(msg))
	l.zlog.WithLevel(level).Msg(msg)
}

func (l *Logger) Success(msg string) { l.notice("✅", color.FgGreen, zerolog.InfoLevel, msg) }
func (l *Logger) Info(msg string)    { l.notice("ℹ️ ", color.FgCyan, zerolog.InfoLevel, msg) }
func (l *Logger) Warning(msg string) { l.notice("⚠️ ", color.FgYellow, zerolog.WarnLevel, msg) }

func (l *Logger) Successf(format string, args ...any) { l.Success(fmt.Sprintf(format, args...)) }
func (l *Logger) Warningf(format string, args ...any) { l.Warning(fmt.Sprintf(format, args...)) }
