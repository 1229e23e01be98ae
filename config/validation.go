package config

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/grovetools/repowatch/errors"
	"github.com/grovetools/repowatch/git"
	"github.com/grovetools/repowatch/util/pathutil"
)

var remoteNameRe = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_.-]*$`)

func newStructValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("duration", func(fl validator.FieldLevel) bool {
		_, err := time.ParseDuration(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("gitremote", func(fl validator.FieldLevel) bool {
		return remoteNameRe.MatchString(fl.Field().String())
	})
	return v
}

// Validate checks field formats and the relationships between fields.
func (c *Config) Validate() error {
	if err := newStructValidator().Struct(c); err != nil {
		return errors.Wrap(err, errors.ErrCodeConfigValidation, describeValidation(err))
	}
	return c.ValidateSemantics()
}

// ValidateSemantics checks constraints that struct tags cannot express.
func (c *Config) ValidateSemantics() error {
	if c.Watch.Interval != "" && c.IntervalDuration() <= 0 {
		return errors.ConfigInvalid("watch.interval must be positive")
	}
	if c.Watch.KillGrace != "" && c.KillGraceDuration() < 0 {
		return errors.ConfigInvalid("watch.kill_grace cannot be negative")
	}
	if c.Watch.CommandTimeout != "" && c.CommandTimeoutDuration() < 0 {
		return errors.ConfigInvalid("watch.command_timeout cannot be negative")
	}
	return nil
}

// RequireRepository checks that a repository URL has been supplied, either
// in the file or by a flag applied afterwards.
func (c *Config) RequireRepository() error {
	url := strings.TrimSpace(c.Repository.URL)
	if url == "" {
		return errors.InvalidInput("repository.url", "no repository configured; pass a URL or set repository.url")
	}
	_, err := c.Target()
	return err
}

// Target resolves the repository section into the session's target. The
// clone root may use ~ and environment variables.
func (c *Config) Target() (git.RepositoryTarget, error) {
	root, err := pathutil.Expand(c.Repository.Root)
	if err != nil {
		return git.RepositoryTarget{}, errors.Wrap(err, errors.ErrCodeConfigInvalid, "repository.root is not usable").
			WithDetail("root", c.Repository.Root)
	}
	t, err := git.NewTarget(root, c.Repository.URL, c.Repository.Remote)
	if err != nil {
		return git.RepositoryTarget{}, errors.Wrap(err, errors.ErrCodeConfigInvalid, "repository section is not usable").
			WithDetail("url", c.Repository.URL)
	}
	return t, nil
}

func describeValidation(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return "configuration validation failed"
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed '%s' check (value %q)", fe.Namespace(), fe.Tag(), fmt.Sprint(fe.Value())))
	}
	return strings.Join(parts, "; ")
}
