package main

import (
	"os"

	"artifact-collector/src/cli"
)

func main() {
	os.Exit(cli.Execute())
}
