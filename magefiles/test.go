//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
)

type Test mg.Namespace

// Runs the unit tests of every package under pkg/.
func (Test) Unit() error {
	_, err := executeCmd("go", withArgs("test", "-race", "./pkg/..."), withStream())
	return err
}

// Runs the end to end tests of the command, which mesh solids with sdfx.
func (Test) E2E() error {
	mg.Deps(Test.Unit)
	_, err := executeCmd("go", withArgs("test", "-run", "E2E|CLI|Import", "."), withStream(), withEnv("CGO_ENABLED=1"))
	return err
}
