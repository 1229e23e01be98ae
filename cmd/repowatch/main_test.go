package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bep/helpers/envhelpers"
	"github.com/rogpeppe/go-internal/testscript"
)

func TestScripts(t *testing.T) {
	params := commonTestScriptsParam
	params.Dir = "testscripts"
	testscript.Run(t, params)
}

func TestMain(m *testing.M) {
	testscript.Main(m, map[string]func(){
		"repowatch": main,
	})
}

var commonTestScriptsParam = testscript.Params{
	Setup: func(env *testscript.Env) error {
		var keyVals []string
		keyVals = append(keyVals, "REPOWATCH_HOME", filepath.Join(env.WorkDir, ".repowatch"))
		keyVals = append(keyVals, "HOME", filepath.Join(env.WorkDir, "home"))
		keyVals = append(keyVals, "NO_COLOR", "1")
		keyVals = append(keyVals, "GIT_CONFIG_NOSYSTEM", "1")
		keyVals = append(keyVals, "GIT_AUTHOR_NAME", "repowatch", "GIT_AUTHOR_EMAIL", "ci@example.com")
		keyVals = append(keyVals, "GIT_COMMITTER_NAME", "repowatch", "GIT_COMMITTER_EMAIL", "ci@example.com")
		envhelpers.SetEnvVars(&env.Vars, keyVals...)
		return os.MkdirAll(filepath.Join(env.WorkDir, "home"), 0o755)
	},
	Cmds: map[string]func(ts *testscript.TestScript, neg bool, args []string){
		// commit stages everything in a repository and commits it.
		"commit": func(ts *testscript.TestScript, neg bool, args []string) {
			if len(args) < 2 {
				ts.Fatalf("usage: commit DIR MESSAGE")
			}
			dir := ts.MkAbs(args[0])
			ts.Check(ts.Exec("git", "-C", dir, "add", "-A"))
			ts.Check(ts.Exec("git", "-C", dir, "commit", "-q", "-m", strings.Join(args[1:], " ")))
		},
	},
}
