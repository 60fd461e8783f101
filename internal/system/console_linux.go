// Package system adapts the local Linux console for framebuffer output.
package system

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// KD console modes from linux/kd.h
const (
	kdText     = 0x00
	kdGraphics = 0x01
	kdSetMode  = 0x4B3A // KDSETMODE ioctl
)

// DefaultTTYs are tried in order: the active VT, then tty0.
var DefaultTTYs = []string{"/dev/tty", "/dev/tty0"}

type Logger interface {
	Infof(string, string, ...interface{})
	Errorf(string, string, ...interface{})
}

// Console switches the active virtual terminal into graphics mode so the
// text console and its blinking cursor do not draw over the framebuffer.
type Console struct {
	TTYs   []string
	Logger Logger
}

func NewConsole(logger Logger) *Console {
	return &Console{TTYs: DefaultTTYs, Logger: logger}
}

// Enter sets KD_GRAPHICS and hides the cursor.
func (c *Console) Enter() error {
	err := c.setMode(kdGraphics)
	c.log(err, "KD_GRAPHICS")
	cursorErr := c.writeVT("\x1b[?25l")
	c.log(cursorErr, "hide cursor")
	return errors.Join(err, cursorErr)
}

// Restore shows the cursor and returns the console to text mode.
func (c *Console) Restore() error {
	cursorErr := c.writeVT("\x1b[?25h")
	c.log(cursorErr, "show cursor")
	err := c.setMode(kdText)
	c.log(err, "KD_TEXT")
	return errors.Join(cursorErr, err)
}

func (c *Console) log(err error, what string) {
	if c.Logger == nil {
		return
	}
	if err != nil {
		c.Logger.Errorf("tty", "%s failed: %v", what, err)
		return
	}
	c.Logger.Infof("tty", "%s done", what)
}

func (c *Console) ttys() []string {
	if len(c.TTYs) == 0 {
		return DefaultTTYs
	}
	return c.TTYs
}

func (c *Console) setMode(mode int) error {
	var lastErr error
	for _, p := range c.ttys() {
		fd, err := unix.Open(p, unix.O_RDONLY, 0)
		if err != nil {
			lastErr = fmt.Errorf("open %s: %w", p, err)
			continue
		}
		err = unix.IoctlSetInt(fd, kdSetMode, mode)
		unix.Close(fd)
		if err != nil {
			lastErr = fmt.Errorf("KDSETMODE %d on %s: %w", mode, p, err)
			continue
		}
		return nil
	}
	if lastErr == nil {
		lastErr = errors.New("no tty configured")
	}
	return lastErr
}

func (c *Console) writeVT(s string) error {
	var lastErr error
	for _, p := range c.ttys() {
		f, err := os.OpenFile(p, os.O_WRONLY, 0)
		if err != nil {
			lastErr = err
			continue
		}
		_, err = f.WriteString(s)
		f.Close()
		if err == nil {
			return nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = errors.New("no tty configured")
	}
	return fmt.Errorf("write VT failed: %w", lastErr)
}
