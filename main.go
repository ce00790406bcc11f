package main

import (
	"github.com/netagent/netagent/cmd/commands"
)

func main() {
	commands.HandleError(commands.Execute(), "netagent")
}
