package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/grovetools/repowatch/errors"
)

var (
	errorStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	hintStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// ErrorHandler provides user-friendly error messages
type ErrorHandler struct {
	Verbose bool
	Out     io.Writer
}

// NewErrorHandler creates a new error handler writing to stderr.
func NewErrorHandler(verbose bool) *ErrorHandler {
	return &ErrorHandler{Verbose: verbose, Out: os.Stderr}
}

// Handle prints err with a hint chosen by its error code and returns it
// unchanged.
func (h *ErrorHandler) Handle(err error) error {
	if err == nil {
		return nil
	}

	fmt.Fprintf(h.Out, "%s %v\n", errorStyle.Render("✗"), err)
	if hint := hintFor(err); hint != "" {
		fmt.Fprintln(h.Out, hintStyle.Render(hint))
	}

	if h.Verbose {
		if rwErr, ok := err.(*errors.Error); ok {
			fmt.Fprintf(h.Out, "\nError details:\n%s\n", rwErr.ToJSON())
		}
	}
	return err
}

func hintFor(err error) string {
	rwErr, _ := err.(*errors.Error)
	detail := func(key string) interface{} {
		if rwErr == nil {
			return ""
		}
		return rwErr.Details[key]
	}

	switch errors.GetCode(err) {
	case errors.ErrCodeConfigNotFound:
		return "Create repowatch.yml in this directory or pass --config."
	case errors.ErrCodeConfigInvalid, errors.ErrCodeConfigValidation:
		return "Run 'repowatch config schema' to see the accepted settings."
	case errors.ErrCodeDirectoryCreation:
		return fmt.Sprintf("Check that %v is writable or choose another --root.", detail("path"))
	case errors.ErrCodeGitCloneFailed:
		return "Check the URL and that git can reach it without prompting for credentials."
	case errors.ErrCodeGitSyncFailed:
		return "The clone may have local changes or a diverged branch; inspect it with 'git status'."
	case errors.ErrCodeGitRemoteConfig:
		return fmt.Sprintf("Check the remote '%v' in the local clone.", detail("remote"))
	case errors.ErrCodeCommandNotFound, errors.ErrCodeGitNotInstalled:
		return "Make sure git is installed and on PATH."
	case errors.ErrCodeSessionRunning:
		return "Another repowatch session is watching this clone. Stop it first."
	case errors.ErrCodeInvalidInput:
		return "Run with --help for usage."
	}
	return ""
}
