package cli

import "os"

// stderrIsTerminal reports whether stderr is attached to a character device.
// Log output defaults to human-readable text on a terminal and JSON when
// redirected, where a collector is the likely reader.
func stderrIsTerminal() bool {
	fi, err := os.Stderr.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}
