// Package logging sets up structured slog logging for amandocs.
//
// Logs are JSON lines. With --debug they go to ~/.amandocs/logs/amandocs.log
// (size-rotated) and to stderr; otherwise only warnings and errors reach
// stderr so CLI output stays readable.
package logging
