// Command rtcqos derives media quality metrics from WebRTC getStats() captures.
package main

import (
	"os"
)

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
