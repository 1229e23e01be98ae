package command

import (
	"strings"
)

// Script is an ordered list of shell command lines, one logical build or
// test step.
type Script []string

// ParseScript splits user-authored multi-line text into a Script. Lines are
// trimmed; blank lines and lines starting with '#' are dropped; order is
// preserved. CRLF line endings are accepted.
func ParseScript(text string) Script {
	var s Script
	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		s = append(s, line)
	}
	return s
}

// ScriptOf builds a Script from individual commands, dropping blank ones.
func ScriptOf(commands ...string) Script {
	return ParseScript(strings.Join(commands, "\n"))
}

// Empty reports whether the script has no commands.
func (s Script) Empty() bool { return len(s) == 0 }

// String renders the script back as multi-line text.
func (s Script) String() string { return strings.Join(s, "\n") }
