// Command demand analyzes and forecasts daily electricity demand
package main

import (
	"os"
)

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
