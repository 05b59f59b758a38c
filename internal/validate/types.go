// SPDX-License-Identifier: MIT
package validate

import (
	"fmt"
	"slices"
	"strings"
)

// LogLevels lists the accepted level names, most verbose first.
var LogLevels = []string{"trace", "debug", "info", "warn", "error"}

// LogLevel validates a log level name, ignoring case.
func (v *Validator) LogLevel(field, value string) {
	if slices.Contains(LogLevels, strings.ToLower(value)) {
		return
	}
	v.AddError(field,
		fmt.Sprintf("invalid log level %q (must be: %s)", value, strings.Join(LogLevels, ", ")),
		value)
}
