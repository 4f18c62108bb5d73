// Package logx is contentwatch's structured logging on top of zerolog.
//
// Console output is human readable with a short caller, the optional file
// sink writes one JSON event per line, and the optional chat sink forwards
// WARN+ events to an operator chat. The chat sink is rate limited and folds
// repeats of the same event so a flapping endpoint posts once per window.
package logx
