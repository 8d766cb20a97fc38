// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"fmt"
	"sync/atomic"
)

var fixtureCounter atomic.Uint64

// UniqueID returns "prefix-N" with N increasing across the test binary,
// for fixture names that must not collide between parallel tests:
//
//	testutil.UniqueID("builder") // "builder-1", "builder-2", ...
func UniqueID(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, fixtureCounter.Add(1))
}
