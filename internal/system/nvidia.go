package system

import (
	"fmt"

	"github.com/NVIDIA/go-nvml/pkg/nvml"

	"tuffix/internal/errs"
)

// NvidiaDriver describes the NVIDIA driver through NVML, e.g.
// "driver 550.54.14, 1 device". Hosts without the NVIDIA library get an
// EnvironmentError, which status shows as unknown.
func NvidiaDriver() (string, error) {
	if ret := nvml.Init(); ret != nvml.SUCCESS {
		return "", errs.Environment("NVML unavailable: %v", nvml.ErrorString(ret))
	}
	defer nvml.Shutdown()

	version, ret := nvml.SystemGetDriverVersion()
	if ret != nvml.SUCCESS {
		return "", errs.Environment("cannot read NVIDIA driver version: %v", nvml.ErrorString(ret))
	}
	count, ret := nvml.DeviceGetCount()
	if ret != nvml.SUCCESS {
		return "", errs.Environment("cannot count NVIDIA devices: %v", nvml.ErrorString(ret))
	}
	return fmt.Sprintf("driver %s, %s", version, plural(int64(count), "device")), nil
}
