package trace

import (
	"fmt"
	"runtime"

	"github.com/shirou/gopsutil/v4/host"
)

// osIdentity returns the quoted pretty name of the running OS for the trace
// header, e.g. "Ubuntu 22.04.4 LTS".
func osIdentity() string {
	info, err := host.Info()
	if err != nil || info.Platform == "" {
		return fmt.Sprintf("%q", runtime.GOOS+"-unknown-dist")
	}
	if info.PlatformVersion == "" {
		return fmt.Sprintf("%q", info.Platform)
	}
	return fmt.Sprintf("%q", info.Platform+" "+info.PlatformVersion)
}
