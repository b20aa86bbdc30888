//go:build !windows && !linux

package input

import (
	"fmt"
	"runtime"
)

func openPad(profile *Profile) (Pad, error) {
	return nil, fmt.Errorf("no virtual gamepad driver on %s", runtime.GOOS)
}
