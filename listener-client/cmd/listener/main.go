package main

import (
	"os"

	"github.com/weiawesome/wes-io-live/listener-client/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
