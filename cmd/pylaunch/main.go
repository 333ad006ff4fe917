package main

import (
	"os"

	"github.com/pylaunch/pylaunch/cmd/pylaunch/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
