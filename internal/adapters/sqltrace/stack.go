package sqltrace

import (
	"runtime"
	"strings"

	"github.com/yevheniidehtiar/sqlsmell/domain/issue"
)

// captureStack walks the caller stack, drops runtime, database/sql and this
// package's own frames, and returns at most depth application frames.
func captureStack(skip, depth int) []issue.StackFrame {
	pcs := make([]uintptr, depth+16)
	n := runtime.Callers(skip+1, pcs)
	if n == 0 {
		return nil
	}

	frames := runtime.CallersFrames(pcs[:n])
	out := make([]issue.StackFrame, 0, depth)
	for {
		frame, more := frames.Next()
		if !isInfraFrame(frame.Function) {
			out = append(out, issue.StackFrame{
				Function: shortFunc(frame.Function),
				File:     shortFile(frame.File),
				Line:     frame.Line,
			})
			if len(out) >= depth {
				break
			}
		}
		if !more {
			break
		}
	}
	return out
}

func isInfraFrame(fn string) bool {
	if fn == "" {
		return true
	}
	return strings.HasPrefix(fn, "runtime.") ||
		strings.HasPrefix(fn, "database/sql.") ||
		strings.Contains(fn, "/internal/adapters/sqltrace.")
}

// shortFunc trims the import path prefix, keeping pkg.Func.
func shortFunc(fn string) string {
	if i := strings.LastIndex(fn, "/"); i >= 0 {
		return fn[i+1:]
	}
	return fn
}

// shortFile keeps the last two path segments, matching the Go runtime's
// own abbreviated traceback style.
func shortFile(file string) string {
	short := file
	for i, slashes := len(file)-1, 0; i >= 0; i-- {
		if file[i] == '/' {
			slashes++
			if slashes == 2 {
				short = file[i+1:]
				break
			}
		}
	}
	return short
}
