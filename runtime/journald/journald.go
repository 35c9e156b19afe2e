// Package journald routes logrus output to the systemd journal.
package journald

import (
	"errors"
	"io"

	"github.com/sirupsen/logrus"
	journalhook "github.com/wercker/journalhook"
)

// Enable installs the journald logrus hook. journalhook only attaches when a
// journal socket is reachable and otherwise leaves the logger untouched, so
// the output writer is checked to turn that silent miss into an error.
func Enable() error {
	journalhook.Enable()
	if logrus.StandardLogger().Out != io.Discard {
		return errors.New("failed to enable journald logging hook")
	}
	return nil
}
