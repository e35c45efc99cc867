// Package monitoring routes the diagnostic lines every pipeline stage emits.
// Results go to stdout; everything written here is meant for stderr.
package monitoring

import "log"

// Logf receives all diagnostics. It is log.Printf until SetLogger says
// otherwise.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger installs f as Logf. A nil f discards diagnostics (-quiet).
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		f = func(string, ...interface{}) {}
	}
	Logf = f
}

// Stagef prefixes the message with its stage name, e.g.
// Stagef("merge", "matched %d", 3) logs "[merge] matched 3".
func Stagef(stage, format string, v ...interface{}) {
	Logf("["+stage+"] "+format, v...)
}
