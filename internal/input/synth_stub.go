//go:build !windows && !linux && !darwin

package input

import (
	"fmt"
	"runtime"
)

func nativeSynthesizer() (Synthesizer, error) {
	return nil, fmt.Errorf("no native keyboard/mouse injection on %s", runtime.GOOS)
}
