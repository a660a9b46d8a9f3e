package led

import "github.com/smazurov/gpioled/internal/gpio"

// Brightness is an LED intensity as understood by the LED class.
type Brightness int

// Common brightness values.
const (
	Off  Brightness = 0
	On   Brightness = 1
	Half Brightness = 127
	Full Brightness = 255
)

// Clamp limits b to [Off, maxBrightness].
func (b Brightness) Clamp(maxBrightness Brightness) Brightness {
	if b < Off {
		return Off
	}
	if b > maxBrightness {
		return maxBrightness
	}
	return b
}

// Level collapses b to a line level: any nonzero brightness is high.
func (b Brightness) Level() gpio.Level {
	if b == Off {
		return gpio.Low
	}
	return gpio.High
}
