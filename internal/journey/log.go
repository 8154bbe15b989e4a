package journey

import (
	"bufio"
	"encoding/json"
	"os"
	"time"
)

// ndjsonLogger writes the per-run structured log file. One JSON object
// per line, flushed per entry so a crashed run still leaves a usable
// log.
type ndjsonLogger struct {
	w *bufio.Writer
}

type logLine struct {
	TS    time.Time      `json:"ts"`
	Level string         `json:"level"`
	Scope string         `json:"scope"`
	Msg   string         `json:"msg"`
	Meta  map[string]any `json:"meta,omitempty"`
}

func newNDJSONLogger(file *os.File) *ndjsonLogger {
	return &ndjsonLogger{w: bufio.NewWriter(file)}
}

func (l *ndjsonLogger) write(level, scope, msg string, meta map[string]any) {
	line := logLine{TS: time.Now(), Level: level, Scope: scope, Msg: msg, Meta: meta}
	b, _ := json.Marshal(line)
	l.w.Write(b)
	l.w.WriteByte('\n')
	l.w.Flush()
}

func (l *ndjsonLogger) info(scope, msg string, meta map[string]any) {
	l.write("info", scope, msg, meta)
}

func (l *ndjsonLogger) warn(scope, msg string, meta map[string]any) {
	l.write("warn", scope, msg, meta)
}
