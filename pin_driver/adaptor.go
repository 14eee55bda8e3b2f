package pin_driver

import (
	"fmt"

	"gobot.io/x/gobot"
	"gobot.io/x/gobot/platforms/firmata"
	"gobot.io/x/gobot/platforms/raspi"
)

// List of all supported adaptors
const (
	AdaptorRaspi   = "raspi"
	AdaptorFirmata = "firmata"
)

// NewAdaptor builds the hardware handle the pin driver writes through. The
// port is only used by firmata boards.
func NewAdaptor(kind, port string) (gobot.Connection, error) {
	switch kind {
	case AdaptorRaspi:
		return raspi.NewAdaptor(), nil
	case AdaptorFirmata:
		if port == "" {
			return nil, fmt.Errorf("firmata adaptor needs a serial port")
		}

		return firmata.NewAdaptor(port), nil
	default:
		return nil, fmt.Errorf("unknown adaptor type %q", kind)
	}
}
