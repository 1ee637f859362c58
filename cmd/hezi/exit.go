//go:build !windows

package main

import (
	"os"

	"github.com/jessevdk/go-flags"
)

// exit exits with status 1 if err is not a help request.
//
// go-flags has already printed err to stderr.
func exit(err error) {
	if err != nil && !flags.WroteHelp(err) {
		os.Exit(1)
	}
}
