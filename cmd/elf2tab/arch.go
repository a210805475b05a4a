// Copyright 2024 The elf2tab authors. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"debug/elf"
	"strings"

	"k8s.io/klog"
)

// input is one ELF,ARCH command line argument (spec §6).
type input struct {
	path string
	arch string // "" means derive from the ELF machine type
}

// parseInput splits "path" or "path,arch" into an input.
func parseInput(arg string) input {
	if idx := strings.LastIndex(arg, ","); idx >= 0 {
		return input{path: arg[:idx], arch: arg[idx+1:]}
	}
	return input{path: arg}
}

// archTag resolves the TBF architecture tag for an ELF, honoring an
// explicit override before falling back to the machine-type mapping of
// spec §4.1. Unrecognized machine types are a warning, not an error.
func archTag(explicit string, machine elf.Machine) string {
	if explicit != "" {
		return explicit
	}
	if tag, ok := machineTags[machine]; ok {
		return tag
	}
	klog.Warningf("unrecognized ELF machine type %s, using architecture tag %q", machine, "unknown")
	return "unknown"
}

// machineTags is the "explicit mapping" spec §4.1 allows in place of the
// ELF,ARCH suffix, covering the machine types Tock userspace actually
// targets.
var machineTags = map[elf.Machine]string{
	elf.EM_ARM:   "cortex-m4",
	elf.EM_RISCV: "riscv32imc",
}
