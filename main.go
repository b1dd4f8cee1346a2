package main

import (
	"os"

	"github.com/dorkyrobot/cftp/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
