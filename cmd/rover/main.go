// Command rover is the entry point for the Rover code-quality engine.
package main

import (
	"os"

	"github.com/AbdelazizMoustafa10m/Raven/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
