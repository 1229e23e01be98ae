package cli

import (
	"github.com/grovetools/repowatch/config"
	"github.com/grovetools/repowatch/logging"
	"github.com/grovetools/repowatch/schema"
)

// ComposedSchema returns the schema of a complete repowatch.yml: the core
// sections plus the extension sections owned by other packages.
func ComposedSchema() ([]byte, error) {
	base, err := config.GenerateSchema()
	if err != nil {
		return nil, err
	}
	logSchema, err := logging.GenerateSchema()
	if err != nil {
		return nil, err
	}
	return schema.Compose(base, map[string][]byte{"logging": logSchema})
}
