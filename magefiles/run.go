//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
)

type Run mg.Namespace

// Runs the testbed with config.toml.
func (Run) Engine() error {
	fmt.Println("Run engine...")
	_, err := executeCmd("go", withArgs("run", ".", "-config", "config.toml"), withStream())
	return err
}

// Runs the testbed on the software driver, no GPU required.
func (Run) Software() error {
	mg.Deps(Build.Engine)
	_, err := executeCmd("bin/rekindle", withArgs("-config", "config.software.toml"), withStream())
	return err
}
