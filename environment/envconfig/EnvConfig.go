// Package envconfig constructs built-in environments by name
package envconfig

import (
	"fmt"

	"github.com/samuelfneumann/goppo/environment"
	"github.com/samuelfneumann/goppo/environment/classiccontrol/mountaincar"
	"github.com/samuelfneumann/goppo/environment/classiccontrol/pendulum"
)

// New returns the built-in environment registered under name, with all
// of its random state seeded by seed. An unrecognized name is an
// error.
func New(name string, seed uint64) (environment.Environment, error) {
	switch name {
	case "Pendulum-v0", "Pendulum":
		return pendulum.NewDefault(seed), nil

	case "MountainCarContinuous-v0", "MountainCarContinuous":
		return mountaincar.NewDefault(seed), nil

	default:
		return nil, fmt.Errorf("new: no environment named %q", name)
	}
}
