//go:build gui

package main

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"picturetalk/audio"
	"picturetalk/beep"
	"picturetalk/gui"
	"picturetalk/level"
	"picturetalk/log"
	"picturetalk/practice"
	"picturetalk/shutdown"
)

func initGUI(p *program) {
	defer log.Close()

	// Audio context initialized on main thread for macOS Core Audio compatibility
	actx, err := audio.NewContext()
	if err != nil {
		// Without audio the image and assessment views still work; Record
		// reports the microphone error.
		log.Errorf("audio context init error: %v", err)
		actx = audio.Unavailable(err)
	}
	defer actx.Close()
	dev := p.resolveDevice(actx)

	go beep.Init()

	// Lock this goroutine to OS thread for Fyne/GLFW
	runtime.LockOSThread()

	var ctrl *practice.Controller
	app := gui.NewApp(func(cmd practice.Command) { ctrl.Do(cmd) })
	ctrl = practice.New(app, p.options(level.NewMonitor(actx, dev)))

	ctx, stop := shutdown.Context(context.Background())
	defer stop()
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			app.Quit()
		case <-done:
		}
	}()

	err = gui.Run(app, func() {
		defer close(done)
		ctrl.Run(ctx)
	})
	stop()
	<-done
	if err != nil {
		log.Errorf("GUI error: %v", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
