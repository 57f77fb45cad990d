package config

import (
	"github.com/caarlos0/env/v11"
	pkgerrors "github.com/pkg/errors"
)

// Paths are the daemon/client rendezvous paths, overridable from the
// environment.
type Paths struct {
	Socket string `env:"DCOCAL_SOCKET" envDefault:"/var/run/dcocal.sock"`
	Config string `env:"DCOCAL_CONFIG" envDefault:"/etc/dcocal.json"`
}

// PathsFromEnv resolves the paths, applying DCOCAL_* overrides.
func PathsFromEnv() (Paths, error) {
	var p Paths
	if err := env.Parse(&p); err != nil {
		return Paths{}, pkgerrors.Wrap(err, "failed to parse environment")
	}
	return p, nil
}
