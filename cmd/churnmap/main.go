// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"fmt"
	"os"

	cmerr "github.com/sigil-dev/churnmap/pkg/errors"
)

func main() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(exitCode(err))
	}
}

// exitCode is 1 for caller mistakes (unknown project, invalid input, a held
// lock) and 2 for everything else.
func exitCode(err error) int {
	if cmerr.IsUserFacing(err) {
		return 1
	}
	return 2
}
