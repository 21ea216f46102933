package ctl

import (
	"fmt"
	"os"
)

// Main is the sessionctl entry point; it builds the command tree and runs it.
func Main() {
	cfg := DefaultConfig()
	root := buildRootCmdWith(cfg)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}
