//go:build linux

package main

func main() {
	p := setup()
	if p.gui && !p.doctor && p.testWAV == "" {
		initGUI(p)
		return
	}
	run(p)
}
