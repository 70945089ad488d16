//go:build mage

// Copyright 2021-2022
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binaryName = "fundrec"
	commonPkg  = "github.com/penny-vault/fundrec/common"
)

// GOEXE overrides the go executable
var goexe = "go"

func init() {
	if exe := os.Getenv("GOEXE"); exe != "" {
		goexe = exe
	}
}

func ldflags() string {
	return fmt.Sprintf("-X %s.commitHash=$COMMIT_HASH -X %s.buildDate=$BUILD_DATE", commonPkg, commonPkg)
}

// versionEnv stamps the binary with the current commit and build time
func versionEnv() map[string]string {
	hash, _ := sh.Output("git", "rev-parse", "--short", "HEAD")
	return map[string]string{
		"COMMIT_HASH": hash,
		"BUILD_DATE":  time.Now().Format("2006-01-02T15:04:05Z0700"),
	}
}

// Build the fundrec binary
func Build() error {
	fmt.Println("Building...")
	return sh.RunWith(versionEnv(), goexe, "build", "-o", binaryName, "-ldflags", ldflags(), "-v", ".")
}

func Install() error {
	return sh.RunWith(versionEnv(), goexe, "install", "-ldflags", ldflags(), ".")
}

// Clean up
func Clean() error {
	fmt.Println("Cleaning...")
	return os.RemoveAll(binaryName)
}

// Run formatting, vet and the race enabled tests
func Check() {
	mg.Deps(Fmt, Vet)
	mg.Deps(TestRace)
}

// Run tests
func Test() error {
	fmt.Println("Go Test")
	return sh.RunV(goexe, "test", "./...")
}

// Run tests with race detector
func TestRace() error {
	fmt.Println("Go Test Race")
	return sh.RunV(goexe, "test", "-race", "./...")
}

// Run gofmt over every package directory
func Fmt() error {
	fmt.Println("Go Format")

	dirs, err := sh.Output(goexe, "list", "-f", "{{.Dir}}", "./...")
	if err != nil {
		return err
	}

	unformatted, err := sh.Output("gofmt", append([]string{"-l"}, strings.Fields(dirs)...)...)
	if err != nil {
		return err
	}
	if unformatted != "" {
		fmt.Println("The following files are not gofmt'ed:")
		fmt.Println(unformatted)
		return errors.New("improperly formatted go files")
	}
	return nil
}

// Run go vet linter
func Vet() error {
	fmt.Println("Go Vet")
	if err := sh.Run(goexe, "vet", "./..."); err != nil {
		return fmt.Errorf("error running go vet: %w", err)
	}
	return nil
}
