package task

import (
	"errors"
	"fmt"
	"strings"

	"tram/eval"
)

// FormatTraceback formats a traceback and the error that ended it:
//
//	demo.counter (prog.yaml:12:5):  ZeroDivisionError: division by zero
//	... called from demo.run (prog.yaml:20:3)
//	(End of traceback)
//
// Frames are listed most recent first. Each location is where that frame
// was entered from.
func FormatTraceback(tb eval.Traceback, err error) []string {
	msg := errorMessage(err)
	if len(tb) == 0 {
		return []string{
			fmt.Sprintf("(no stack):  %s", msg),
			"(End of traceback)",
		}
	}

	var lines []string

	// Walk the stack from top (most recent) to bottom (oldest)
	for i := len(tb) - 1; i >= 0; i-- {
		frame := tb[i]
		if i == len(tb)-1 {
			lines = append(lines, fmt.Sprintf("%s (%s):  %s", frame.Name, frame.Location, msg))
		} else {
			lines = append(lines, fmt.Sprintf("... called from %s (%s)", frame.Name, frame.Location))
		}
	}

	lines = append(lines, "(End of traceback)")
	return lines
}

// FormatTracebackString returns the traceback as a single string with newlines
func FormatTracebackString(tb eval.Traceback, err error) string {
	return strings.Join(FormatTraceback(tb, err), "\n")
}

// errorMessage prefers the language error inside a processor error, with
// the location it was raised at
func errorMessage(err error) string {
	if err == nil {
		return "no error"
	}
	var le *eval.LangError
	if errors.As(err, &le) {
		return fmt.Sprintf("%s (at %s)", le.Error(), le.Location)
	}
	return err.Error()
}
