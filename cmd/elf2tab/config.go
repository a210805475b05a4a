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
	"flag"

	"k8s.io/klog"
)

// Config is the parsed command line, populated by flag registrations in
// init(), following the same shape as the teacher's own witnessctl
// Config: a package-level struct, flag.*Var calls in init(), and a main
// that inspects it after flag.Parse().
type Config struct {
	outputFile string

	appHeap             uint
	kernelHeap          uint
	stackSize           uint
	minimumRAMSize      uint
	minimumRAMSizeIsSet bool

	appVersion    uint
	appVersionSet bool

	minimumFooterSize uint

	protectedRegionSize optionalUint32Flag

	packageName string

	disable bool
	sticky  bool

	permissions permissionsFlag
	writeID     optionalUint32Flag
	readIDs     idListFlag
	accessIDs   idListFlag

	kernelMajor      uint
	kernelMinor      uint
	minKernelVersion string

	shortID optionalUint32Flag

	supportedBoards string

	sha256 bool
	sha384 bool
	sha512 bool

	rsa4096Private   string
	ecdsaP256Private string

	deterministic bool
}

var conf *Config

func init() {
	klog.InitFlags(nil)

	conf = &Config{}

	flag.StringVar(&conf.outputFile, "output-file", "TockApp.tab", "path to write the resulting TAB to")

	flag.UintVar(&conf.appHeap, "app-heap", 1024, "application heap size in bytes")
	flag.UintVar(&conf.kernelHeap, "kernel-heap", 1024, "kernel heap size reserved for the app, in bytes")
	flag.UintVar(&conf.stackSize, "stack-size", 0, "stack size in bytes, overriding the ELF-derived value")
	flag.UintVar(&conf.minimumRAMSize, "minimum-ram-size", 0, "minimum RAM allocation for the app, in bytes")

	flag.UintVar(&conf.appVersion, "app-version", 0, "application version number, forces a Program TLV")
	flag.UintVar(&conf.minimumFooterSize, "minimum-footer-size", 0, "reserve this many bytes for footer credentials added later")
	flag.Var(&conf.protectedRegionSize, "protected-region-size", "protected region size in bytes; must be at least the header length")

	flag.StringVar(&conf.packageName, "package-name", "", "package name to embed in the header")

	flag.BoolVar(&conf.disable, "disable", false, "mark the app as disabled at flash time")
	flag.BoolVar(&conf.sticky, "sticky", false, "mark the app as sticky (survives a kernel-triggered erase)")

	flag.Var(&conf.permissions, "permissions", "driver,command pair granting a syscall permission; may be repeated")
	flag.Var(&conf.writeID, "write-id", "persistent storage write identifier")
	flag.Var(&conf.readIDs, "read_ids", "space-separated list of persistent storage read identifiers")
	flag.Var(&conf.accessIDs, "access_ids", "space-separated list of persistent storage access identifiers")

	flag.UintVar(&conf.kernelMajor, "kernel-major", 0, "minimum required kernel major version")
	flag.UintVar(&conf.kernelMinor, "kernel-minor", 0, "minimum required kernel minor version")
	flag.StringVar(&conf.minKernelVersion, "minimum-tock-kernel-version", "", "minimum required kernel version, e.g. 2.1.0; takes precedence over --kernel-major/--kernel-minor")

	flag.Var(&conf.shortID, "short-id", "fixed 32-bit short application identifier")
	flag.StringVar(&conf.supportedBoards, "supported-boards", "", "comma-separated list of board names this app supports")

	flag.BoolVar(&conf.sha256, "sha256", false, "append a SHA-256 footer credential")
	flag.BoolVar(&conf.sha384, "sha384", false, "append a SHA-384 footer credential")
	flag.BoolVar(&conf.sha512, "sha512", false, "append a SHA-512 footer credential")
	flag.StringVar(&conf.rsa4096Private, "rsa4096-private", "", "path to a DER-encoded RSA-4096 private key; appends an RSA footer credential")
	flag.StringVar(&conf.ecdsaP256Private, "ecdsa-p256-private", "", "path to a DER-encoded ECDSA P-256 private key; appends an ECDSA footer credential")

	flag.BoolVar(&conf.deterministic, "deterministic", false, "produce a byte-identical TAB for identical inputs")
}

// markExplicit records which flags the user actually passed, so fields
// like appVersion and minimumRAMSize can distinguish "left at its zero
// default" from "explicitly set to zero".
func (c *Config) markExplicit() {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "app-version":
			c.appVersionSet = true
		case "minimum-ram-size":
			c.minimumRAMSizeIsSet = true
		}
	})
}
