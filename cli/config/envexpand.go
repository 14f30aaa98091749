// Package config handles chatkit.yaml loading for the CLI.
package config

import (
	"os"
	"regexp"
)

// envRef matches ${NAME} and ${NAME:-fallback}.
var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-([^}]*))?\}`)

// ExpandEnv substitutes environment references in input.
//
// ${NAME} becomes the variable's value. ${NAME:-fallback} becomes the value,
// or fallback when the variable is unset or empty. An unset variable with no
// fallback becomes the empty string; missing secrets surface later when the
// component that needs them validates its config.
func ExpandEnv(input string) string {
	return envRef.ReplaceAllStringFunc(input, func(ref string) string {
		m := envRef.FindStringSubmatch(ref)
		if v := os.Getenv(m[1]); v != "" {
			return v
		}
		return m[2]
	})
}
