// The main package for the wrestlebot executable.
package main

import (
	"github.com/owdb/wrestlebot/cmd"
)

func main() {
	cmd.Execute()
}
