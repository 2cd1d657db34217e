// Package pty spawns child processes attached to a pseudo-terminal and
// provides a session handle for scripted interaction: writing input lines,
// reading output, polling exit status, and terminating the child. It is
// intended for automation and test tooling that drives interactive
// command-line programs whose behavior depends on running under a real
// terminal (prompts, line editing, TTY detection).
package pty
