package commands

import (
	"fmt"
	"path/filepath"

	"git.home.luguber.info/inful/vaultsite/internal/config"
	ferrors "git.home.luguber.info/inful/vaultsite/internal/foundation/errors"
)

// InitCmd implements the 'init' command.
type InitCmd struct {
	Force  bool   `help:"Overwrite existing configuration file"`
	Output string `short:"o" name:"output" help:"Output directory for generated config file"`
}

func (i *InitCmd) Run(_ *Global, root *CLI) error {
	// If the user specified an output directory, place the config there as "vaultsite.yaml".
	if i.Output != "" {
		return RunInit(filepath.Join(i.Output, "vaultsite.yaml"), i.Force)
	}
	return RunInit(root.Config, i.Force)
}

func RunInit(configPath string, force bool) error {
	fmt.Println("Initializing vaultsite project")
	fmt.Printf("Writing configuration to %s\n", configPath)
	if err := config.Init(configPath, force); err != nil {
		fmt.Println("Initialization failed")
		return ferrors.WrapError(err, ferrors.CategoryConfig, "init failed").Build()
	}
	fmt.Println("initialized successfully")
	return nil
}
