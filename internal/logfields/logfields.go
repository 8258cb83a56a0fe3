package logfields

import (
	"log/slog"
	"time"
)

// Canonical log field names shared by every package.
const (
	KeyStage      = "stage"
	KeyState      = "state"
	KeyCheck      = "check"
	KeyStatus     = "status"
	KeyUnit       = "unit"
	KeyCommand    = "command"
	KeyExitCode   = "exit_code"
	KeyPath       = "path"
	KeyFlavor     = "flavor"
	KeyRunID      = "run_id"
	KeyDurationMS = "duration_ms"
	KeyError      = "error"
)

func Stage(name string) slog.Attr  { return slog.String(KeyStage, name) }
func State(s string) slog.Attr     { return slog.String(KeyState, s) }
func Check(id string) slog.Attr    { return slog.String(KeyCheck, id) }
func Status(s string) slog.Attr    { return slog.String(KeyStatus, s) }
func Unit(name string) slog.Attr   { return slog.String(KeyUnit, name) }
func Command(cmd string) slog.Attr { return slog.String(KeyCommand, cmd) }
func ExitCode(code int) slog.Attr  { return slog.Int(KeyExitCode, code) }
func Path(p string) slog.Attr      { return slog.String(KeyPath, p) }
func Flavor(f string) slog.Attr    { return slog.String(KeyFlavor, f) }
func RunID(id string) slog.Attr    { return slog.String(KeyRunID, id) }

func Duration(d time.Duration) slog.Attr {
	return slog.Float64(KeyDurationMS, float64(d.Microseconds())/1000)
}
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
