package main

import (
	"os/exec"
	"runtime"
)

// openImage shows an image file or URL in the desktop's default viewer.
func openImage(locator string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", locator)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", locator)
	default:
		cmd = exec.Command("xdg-open", locator)
	}
	if err := cmd.Start(); err != nil {
		return err
	}
	go cmd.Wait()
	return nil
}
