package params

import "os"

// IoConfig defines the file permission parameters shared by everything that
// touches the datadir.
type IoConfig struct {
	ReadWritePermissions        os.FileMode
	ReadWriteExecutePermissions os.FileMode
}

var defaultIoConfig = &IoConfig{
	ReadWritePermissions:        0600,
	ReadWriteExecutePermissions: 0700,
}

// DisplayIoConfig returns the current io config.
func DisplayIoConfig() *IoConfig {
	return defaultIoConfig
}
