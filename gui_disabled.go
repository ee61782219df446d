//go:build !gui

package main

import (
	"fmt"
	"os"
)

func initGUI(*program) {
	fmt.Fprintln(os.Stderr, "picturetalk: built without GUI support (rebuild with -tags gui)")
	os.Exit(1)
}
