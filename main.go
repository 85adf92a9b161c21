package main

import (
	"os"

	"github.com/leefowlercu/lh2-monitor/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
