// main is the entry point of the hourglass CLI.
package main

import (
	"github.com/huangsam/hourglass/cmd"
	"github.com/huangsam/hourglass/internal/contract"
	"github.com/huangsam/hourglass/internal/iocache"
)

func main() {
	err := cmd.Execute()
	if stopErr := cmd.StopProfiling(); stopErr != nil {
		contract.LogWarn("Failed to stop profiling", stopErr)
	}
	// LogFatal exits, so the stores are closed first.
	iocache.CloseCaching()
	if err != nil {
		contract.LogFatal("hourglass failed", err)
	}
}
