//go:build mage
// +build mage

package main

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/magefile/mage/mg"
)

// Default target to run when none is specified
// If not set, running mage will list available targets
var Default = Build

func Build() error {
	mg.Deps(BuildFlashFinder)
	mg.Deps(BuildT0Matcher)
	fmt.Println("Compilation finished")
	return nil
}

func BuildFlashFinder() error {
	fmt.Println("Building flashfinder executable...")
	return buildCmd("./bin/flashfinder", "./flashfinder")
}

func BuildT0Matcher() error {
	fmt.Println("Building t0matcher executable...")
	return buildCmd("./bin/t0matcher", "./t0matcher")
}

func buildCmd(output string, path string) error {
	ldflags := os.Getenv("CGO_LDFLAGS")
	cflags := os.Getenv("CGO_CFLAGS")
	cmd := exec.Command("go", "build", "-o", output, path)
	cmd.Env = append(os.Environ(),
		fmt.Sprintf("CGO_ENABLED=1"),
		fmt.Sprintf("CGO_LDFLAGS=%s", ldflags),
		fmt.Sprintf("CGO_CFLAGS=%s", cflags))
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}
