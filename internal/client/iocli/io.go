// Package iocli abstracts terminal input and output for the CLI commands.
package iocli

// IO is the terminal surface used by commands
type IO interface {
	Println(a ...any)
	Printf(format string, a ...any)
	ReadInput(prompt string) (string, error)
	Write(p []byte) (n int, err error)
}
