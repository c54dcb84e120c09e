// Copyright 2025 The ViewerGeo Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/jcodagnone/viewergeo/cmd"
)

var Version = "development"

func main() {
	cmd.Execute(Version)
}
