package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseScript(t *testing.T) {
	text := "  make deps \r\n\n# comment\nmake build\n\t\nmake test  "
	s := ParseScript(text)
	assert.Equal(t, Script{"make deps", "make build", "make test"}, s)
	assert.False(t, s.Empty())
	assert.Equal(t, "make deps\nmake build\nmake test", s.String())
}

func TestParseScriptEmpty(t *testing.T) {
	assert.True(t, ParseScript("").Empty())
	assert.True(t, ParseScript("\n  \n# only a comment\n").Empty())
}

func TestScriptOf(t *testing.T) {
	assert.Equal(t, Script{"npm install", "npm test"}, ScriptOf("npm install", "", "npm test"))
}
