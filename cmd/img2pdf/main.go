package main

import "os"

// main runs the root command; a non-nil error exits with status 1.
func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
