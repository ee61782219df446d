//go:build !linux

package main

import (
	"runtime"

	"golang.design/x/hotkey/mainthread"
)

func init() {
	runtime.LockOSThread()
}

func main() {
	p := setup()
	if p.gui && !p.doctor && p.testWAV == "" {
		initGUI(p) // fyne keeps the main thread
		return
	}
	// Core Audio wants the main thread free for its run loop.
	mainthread.Init(func() { run(p) })
}
