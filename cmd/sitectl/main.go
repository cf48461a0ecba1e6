package main

import (
	"os"
)

func main() {
	root := newRootCmd(openApp)
	if err := root.Execute(); err != nil {
		printError(root.ErrOrStderr(), err)
		os.Exit(1)
	}
}
