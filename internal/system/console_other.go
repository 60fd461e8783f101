//go:build !linux

package system

import "errors"

var DefaultTTYs []string

type Logger interface {
	Infof(string, string, ...interface{})
	Errorf(string, string, ...interface{})
}

// Console is inert off Linux; there is no framebuffer console to take over.
type Console struct {
	TTYs   []string
	Logger Logger
}

func NewConsole(logger Logger) *Console { return &Console{Logger: logger} }

var errUnsupported = errors.New("console: not supported on this platform")

func (c *Console) Enter() error   { return errUnsupported }
func (c *Console) Restore() error { return nil }
