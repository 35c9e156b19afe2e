package client

import (
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/azzam1122112-dot/school-display/io/file"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const (
	deviceIDFile    = "device_id"
	clockOffsetFile = "clock_offset"
)

// LoadOrCreateDeviceID returns the device identity persisted under the
// datadir, minting and storing a fresh uuid on first boot. The identity must
// survive restarts: the node binds the screen token to it, and a new id
// would read as a second device.
func LoadOrCreateDeviceID(datadir string) (string, error) {
	if err := file.MkdirAll(datadir); err != nil {
		return "", errors.Wrap(err, "could not create datadir")
	}
	path := filepath.Join(datadir, deviceIDFile)

	exists, err := file.Exists(path)
	if err != nil {
		return "", err
	}
	if exists {
		raw, err := file.ReadFileAsBytes(path)
		if err != nil {
			return "", errors.Wrap(err, "could not read device id")
		}
		if id := strings.TrimSpace(string(raw)); id != "" {
			return id, nil
		}
	}

	id := uuid.NewString()
	if err := file.WriteFile(path, []byte(id+"\n")); err != nil {
		return "", errors.Wrap(err, "could not persist device id")
	}
	return id, nil
}

// LoadClockOffset reads the last persisted server clock offset. The second
// return is false when no usable offset is stored.
func LoadClockOffset(datadir string) (time.Duration, bool) {
	raw, err := file.ReadFileAsBytes(filepath.Join(datadir, clockOffsetFile))
	if err != nil {
		return 0, false
	}
	ns, err := strconv.ParseInt(strings.TrimSpace(string(raw)), 10, 64)
	if err != nil {
		return 0, false
	}
	return time.Duration(ns), true
}

// SaveClockOffset persists the active offset so the next boot starts
// disciplined instead of trusting the kiosk RTC.
func SaveClockOffset(datadir string, offset time.Duration) error {
	path := filepath.Join(datadir, clockOffsetFile)
	return file.WriteFile(path, []byte(strconv.FormatInt(int64(offset), 10)+"\n"))
}
