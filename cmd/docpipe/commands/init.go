package commands

import (
	"fmt"

	"git.home.luguber.info/inful/docpipe/internal/config"
	derrors "git.home.luguber.info/inful/docpipe/internal/foundation/errors"
)

// InitCmd implements the 'init' command.
type InitCmd struct {
	Force bool `help:"Overwrite existing configuration file"`
}

func (i *InitCmd) Run(g *Global, root *CLI) error {
	if err := config.Init(root.Config, i.Force); err != nil {
		return derrors.WrapError(err, derrors.CategoryConfig, "write configuration").
			WithContext(derrors.ContextPath, root.Config).
			Build()
	}
	_, _ = fmt.Fprintf(g.out(), "Wrote configuration to %s\n", root.Config)
	return nil
}
