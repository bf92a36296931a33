package analyzer

import "strings"

// autoCorrectFlags are the analyzer flags that rewrite files.
var autoCorrectFlags = map[string]bool{
	"-a":                 true,
	"-A":                 true,
	"-x":                 true,
	"--auto-correct":     true,
	"--autocorrect":      true,
	"--auto-correct-all": true,
	"--autocorrect-all":  true,
	"--fix-layout":       true,
}

// AutoCorrectRequested reports whether args ask the analyzer to rewrite files.
func AutoCorrectRequested(args []string) bool {
	for _, arg := range args {
		if autoCorrectFlags[arg] {
			return true
		}
	}
	return false
}

// hasConfigFlag reports whether args already choose an analyzer config file.
func hasConfigFlag(args []string) bool {
	for _, arg := range args {
		if arg == "-c" || arg == "--config" || strings.HasPrefix(arg, "--config=") {
			return true
		}
	}
	return false
}
