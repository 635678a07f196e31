// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Mark Feghali

package main

import "awsipranges/internal/cli"

func main() {
	cli.Execute()
}
