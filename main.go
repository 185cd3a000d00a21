package main

import (
	"tuffix/cmd" // CLI commands and dispatch
)

// main is the program entry point. It delegates to cmd.Execute, which parses
// the command line, runs one command and exits with its status.
//
// tuffix provisions Debian and Ubuntu lab machines for a course sequence:
//   - `tuffix init` creates the state file under /var/lib/tuffix
//   - `tuffix add <keyword>` installs a named bundle of packages and setup
//     steps and records it; `tuffix remove` undoes that
//   - `tuffix list`, `installed`, `describe` and `status` only read
//
// Errors fall in two groups. Usage errors (bad arguments, missing root) print
// the message and the usage text; environment errors (broken state file,
// failed apt run) print just the message. Both exit with status 1. Anything
// else is a bug and panics.
func main() {
	cmd.Execute()
}
