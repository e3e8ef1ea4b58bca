//go:build mage

package main

import (
	"os"

	"github.com/magefile/mage/mg"
)

type Build mg.Namespace

// Builds the assetctl binary into bin/.
func (Build) Assetctl() error {
	mg.Deps(Check.Tidy)
	if err := os.MkdirAll("bin", 0o755); err != nil {
		return err
	}
	_, err := executeCmd("go", withArgs("build", "-o", "bin/assetctl", "."), withStream())
	return err
}

// Registers every file below dir and writes its asset index.
func (Build) Index(dir string) error {
	mg.Deps(Build.Assetctl)
	files, err := listFiles(dir)
	if err != nil {
		return err
	}
	args := append([]string{"--root", dir, "register"}, files...)
	_, err = executeCmd("bin/assetctl", withArgs(args...), withStream())
	return err
}
