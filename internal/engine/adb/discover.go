package adb

import (
	"context"
	"strings"

	"maamcp/internal/engine"
)

// FindDevices enumerates ADB devices currently in the "device" state.
func FindDevices(ctx context.Context, runner *Runner) ([]engine.AdbDevice, error) {
	out, err := runner.Run(ctx, "devices", "-l")
	if err != nil {
		return nil, err
	}
	return parseDeviceList(string(out), runner.Path()), nil
}

// parseDeviceList parses "adb devices -l" output. Offline and unauthorized
// entries are skipped.
func parseDeviceList(out, adbPath string) []engine.AdbDevice {
	var devices []engine.AdbDevice
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "List of devices") || strings.HasPrefix(line, "*") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 || fields[1] != "device" {
			continue
		}

		dev := engine.AdbDevice{
			Serial:  fields[0],
			Name:    fields[0],
			AdbPath: adbPath,
		}
		for _, f := range fields[2:] {
			if model, ok := strings.CutPrefix(f, "model:"); ok {
				dev.Model = model
				dev.Name = model + " (" + dev.Serial + ")"
			}
		}
		devices = append(devices, dev)
	}
	return devices
}
