package main

import (
	"github.com/BioHazard786/rendezvous/internal/commands"
	"github.com/BioHazard786/rendezvous/internal/logging"
)

func main() {
	// Initialize logging
	logging.Init()
	commands.Execute()
}
