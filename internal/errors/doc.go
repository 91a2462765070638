// Package errors provides structured, coded errors for the native bridge.
//
// Every failure the bridge can report has a registered code (e.g. "B001")
// that maps to:
//   - A category (encoder, native, sync, tree, dispatch, config, recording)
//   - A short message
//   - A longer explanation
//
// # Usage
//
//	err := errors.New("B001").
//	    WithDetail("frame needs 300 commands, encoder holds 256").
//	    WithSuggestion("raise encoder.maxCommands or split the frame")
//
//	fmt.Println(err.Format())
//
// Errors built from the same code compare equal under errors.Is, so
// callers can match on a package-level sentinel:
//
//	var ErrHeaderCapacity = errors.New("B001")
//	if stderrors.Is(err, ErrHeaderCapacity) { ... }
package errors
