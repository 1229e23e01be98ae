package main

import (
	"os"

	"github.com/grovetools/repowatch/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
