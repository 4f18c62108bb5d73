package logx

import (
	"time"

	"github.com/rs/zerolog"
)

// Keys shared by every component.
const (
	KeyComp     = "comp"
	KeyJob      = "job"
	KeyCycle    = "cycle"
	KeyEndpoint = "endpoint"
)

// Field adds one key to an event. Later fields win on duplicate keys.
type Field func(e *zerolog.Event)

func String(k, v string) Field           { return func(e *zerolog.Event) { e.Str(k, v) } }
func Strings(k string, v []string) Field { return func(e *zerolog.Event) { e.Strs(k, v) } }
func Int(k string, v int) Field          { return func(e *zerolog.Event) { e.Int(k, v) } }
func Int64(k string, v int64) Field      { return func(e *zerolog.Event) { e.Int64(k, v) } }
func Float64(k string, v float64) Field  { return func(e *zerolog.Event) { e.Float64(k, v) } }
func Bool(k string, v bool) Field        { return func(e *zerolog.Event) { e.Bool(k, v) } }
func Any(k string, v any) Field          { return func(e *zerolog.Event) { e.Interface(k, v) } }

func Duration(k string, v time.Duration) Field {
	return func(e *zerolog.Event) { e.Dur(k, v) }
}

// Err is a no-op for a nil error.
func Err(err error) Field {
	return func(e *zerolog.Event) {
		if err != nil {
			e.Err(err)
		}
	}
}

func Comp(name string) Field    { return String(KeyComp, name) }
func Job(name string) Field     { return String(KeyJob, name) }
func Cycle(id string) Field     { return String(KeyCycle, id) }
func Endpoint(url string) Field { return String(KeyEndpoint, url) }
