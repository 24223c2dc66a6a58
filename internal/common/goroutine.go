// -----------------------------------------------------------------------
// Safe Goroutine - Panic-protected goroutine wrapper
// -----------------------------------------------------------------------

package common

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/ternarybob/arbor"
)

// SafeGo runs fn in a goroutine with panic recovery, so one dataset
// fetch or stream worker crashing doesn't take the whole pipeline
// down with it. Recovered panics are logged and persisted to
// CrashLogDir for post-mortem review.
//
// Example:
//
//	common.SafeGo(logger, "fetchDataset", func() {
//	    client.FetchDataset(ctx, id, formats)
//	})
func SafeGo(logger arbor.ILogger, name string, fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				buf := make([]byte, 4096)
				n := runtime.Stack(buf, false)
				stackTrace := string(buf[:n])

				if logger != nil {
					logger.Error().
						Str("goroutine", name).
						Str("panic", fmt.Sprintf("%v", r)).
						Str("stack", stackTrace).
						Msg("recovered from panic in goroutine, continuing")
				} else {
					fmt.Fprintf(os.Stderr, "panic in goroutine %s: %v\n%s\n", name, r, stackTrace)
				}

				writeGoroutinePanicLog(name, r, stackTrace)
			}
		}()

		fn()
	}()
}

// writeGoroutinePanicLog persists a non-fatal goroutine panic under
// CrashLogDir, separately from the fatal reports WriteCrashFile
// produces, so an operator can tell a recovered worker crash apart
// from a process-ending one.
func writeGoroutinePanicLog(name string, panicVal interface{}, stackTrace string) {
	if CrashLogDir == "" {
		return
	}
	if err := os.MkdirAll(CrashLogDir, 0755); err != nil {
		return
	}

	timestamp := time.Now().Format("2006-01-02T15-04-05")
	path := filepath.Join(CrashLogDir, fmt.Sprintf("goroutine-panic-%s-%s.log", name, timestamp))

	content := fmt.Sprintf("=== GOROUTINE PANIC (recovered) ===\nGoroutine: %s\nTime: %s\nPanic: %v\n\n=== STACK TRACE ===\n%s\n",
		name, time.Now().Format(time.RFC3339), panicVal, stackTrace)

	_ = os.WriteFile(path, []byte(content), 0644)
}
