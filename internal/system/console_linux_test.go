package system

import (
	"path/filepath"
	"strings"
	"testing"
)

type recordLogger struct{ infos, errs []string }

func (l *recordLogger) Infof(c, f string, a ...interface{})  { l.infos = append(l.infos, f) }
func (l *recordLogger) Errorf(c, f string, a ...interface{}) { l.errs = append(l.errs, f) }

func TestConsoleMissingTTY(t *testing.T) {
	log := &recordLogger{}
	c := &Console{TTYs: []string{filepath.Join(t.TempDir(), "nope")}, Logger: log}
	err := c.Enter()
	if err == nil {
		t.Fatal("Enter on a missing tty succeeded")
	}
	if !strings.Contains(err.Error(), "nope") {
		t.Errorf("error %q does not name the tty", err)
	}
	if len(log.errs) != 2 {
		t.Errorf("logged %d errors, want 2", len(log.errs))
	}
}
