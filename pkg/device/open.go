package device

import (
	"errors"

	"github.com/itohio/plantguard/pkg/config"
	"github.com/rs/zerolog/log"
)

// Open returns the device cfg describes, unconnected. With mock set the
// serial section is ignored.
func Open(cfg *config.Config, mock bool) (Device, error) {
	if mock {
		return NewMock(&cfg.Mock), nil
	}

	port := cfg.Serial.Port
	if cfg.Serial.AutoDetect {
		ports, err := Ports()
		if err != nil {
			log.Warn().Err(err).Msg("Port auto-detection failed")
		} else {
			port = ResolvePort(port, ports)
		}
	}
	if port == "" {
		return nil, errors.New("no serial port configured")
	}

	if port != cfg.Serial.Port {
		log.Info().Str("configured", cfg.Serial.Port).Str("port", port).Msg("Using auto-detected port")
	}
	return New(port, cfg.Serial.Baud, DefaultBufferSize), nil
}

// ResolvePort keeps the configured port when it is present. Otherwise it
// returns the first Arduino-looking port, or the configured name unchanged.
func ResolvePort(configured string, ports []Port) string {
	for _, p := range ports {
		if p.Name == configured {
			return configured
		}
	}
	for _, p := range ports {
		if p.Arduino {
			return p.Name
		}
	}
	return configured
}
