package main

import (
	"os"
	"os/signal"
)

// watchSignals calls first on the first interrupt and then on every later
// one. The returned func stops watching.
func watchSignals(first, then func()) func() {
	ch := make(chan os.Signal, 2)
	notifySignals(ch)
	done := make(chan struct{})

	go func() {
		seen := 0
		for {
			select {
			case <-done:
				return
			case <-ch:
				seen++
				if seen == 1 {
					first()
				} else {
					then()
				}
			}
		}
	}()

	return func() {
		signal.Stop(ch)
		close(done)
	}
}
