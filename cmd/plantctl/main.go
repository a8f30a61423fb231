// Command plantctl is the operator CLI for plantkeeper: it migrates the
// store, pulls species from Perenual into it, and manages admin credentials.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd(os.Stdin, os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
