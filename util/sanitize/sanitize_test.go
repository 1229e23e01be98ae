package sanitize

import "testing"

func TestForImageTag(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty string", "", ""},
		{"simple string", "widget", "widget"},
		{"uppercase", "MyService", "myservice"},
		{"keeps separators", "my_app.v2-beta", "my_app.v2-beta"},
		{"special characters", "hello@world#foo", "hello-world-foo"},
		{"leading separators", "-.app", "app"},
		{"spaces", "my app ", "my-app"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ForImageTag(tt.input)
			if result != tt.expected {
				t.Errorf("ForImageTag(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestForFilename(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty string", "", ""},
		{"simple string", "watch", "watch"},
		{"with spaces", "script watcher", "script-watcher"},
		{"path separators", "../etc/passwd", "etc-passwd"},
		{"uppercase", "Widget.Repo", "widget.repo"},
		{"long", "abcdefghijklmnopqrstuvwxyzabcdefghijklmnopqrstuvwxyz", "abcdefghijklmnopqrstuvwxyzabcdefghijklmnopqrstuvwx"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ForFilename(tt.input)
			if result != tt.expected {
				t.Errorf("ForFilename(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}
