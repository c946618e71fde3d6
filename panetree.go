package main

import (
	"os"

	"panetree/modules/commands"
)

func main() {
	os.Exit(commands.Execute())
}
