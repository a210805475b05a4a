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

// Command elf2tab converts one or more architecture-specific ELF
// executables into a single Tock Application Bundle, per spec.md.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/coreos/go-semver/semver"
	"k8s.io/klog"

	"github.com/tock-embedded/elf2tab/internal/assemble"
	"github.com/tock-embedded/elf2tab/internal/elfview"
	"github.com/tock-embedded/elf2tab/internal/tab"
	"github.com/tock-embedded/elf2tab/internal/tbf"
)

func main() {
	flag.Parse()
	conf.markExplicit()

	args := flag.Args()
	if len(args) == 0 {
		klog.Exitf("no input ELF files given")
	}

	if err := run(conf, args); err != nil {
		klog.Exitf("%v", err)
	}
}

func run(c *Config, args []string) error {
	creds, err := credentialRequests(c)
	if err != nil {
		return err
	}

	acl := aclFrom(c)
	kernelVersion, err := kernelVersionFrom(c)
	if err != nil {
		return err
	}

	assembleOpts := assemble.Options{
		StackSize:       uint32(c.stackSize),
		AppHeapSize:     uint32(c.appHeap),
		KernelHeapSize:  uint32(c.kernelHeap),
		MinimumRAMSize:  uint32(c.minimumRAMSize),
		StackSizeIsSet:  c.stackSize != 0,
		MinRAMSizeIsSet: c.minimumRAMSizeIsSet,
	}

	opts := tab.Options{
		Assemble:               assembleOpts,
		ProtectedRegionSize:    c.protectedRegionSize.value,
		ProtectedRegionSizeSet: c.protectedRegionSize.set,
		PackageName:            c.packageName,
		AppVersion:             uint32(c.appVersion),
		AppVersionSet:          c.appVersionSet,
		ACL:                    acl,
		KernelVersion:          kernelVersion,
		ShortID:                c.shortID.value,
		HasShortID:             c.shortID.set,
		SupportedBoards:        c.supportedBoards,
		FooterPaddingSize:      uint32(c.minimumFooterSize),
		Disable:                c.disable,
		Sticky:                 c.sticky,
		Credentials:            creds,
	}
	for _, p := range c.permissions.pack() {
		opts.Permissions = append(opts.Permissions, tbf.Permission{DriverNum: p.Driver, Mask: p.Mask})
	}

	images := make(map[string]*tab.Image, len(args))
	for _, arg := range args {
		in := parseInput(arg)

		data, err := os.ReadFile(in.path)
		if err != nil {
			return &ioError{fmt.Errorf("reading %q: %w", in.path, err)}
		}

		v, err := elfview.Parse(data)
		if err != nil {
			return fatalf(err, "parsing %q", in.path)
		}

		tag := archTag(in.arch, v.Machine)
		klog.Infof("converting %q for architecture %q", in.path, tag)

		img, err := tab.BuildImage(v, opts)
		if err != nil {
			return fatalf(err, "converting %q", in.path)
		}
		images[tag] = img

		siblingPath := siblingTBFPath(in.path, tag)
		if !c.deterministic || filesystemHasStablePaths() {
			if err := os.WriteFile(siblingPath, img.Bytes, 0o644); err != nil {
				return &ioError{fmt.Errorf("writing %q: %w", siblingPath, err)}
			}
		}
	}

	out, err := os.Create(c.outputFile)
	if err != nil {
		return &ioError{fmt.Errorf("creating %q: %w", c.outputFile, err)}
	}
	defer out.Close()

	bundleOpts := tab.BundleOptions{
		Name:                     bundleName(c, args),
		MinimumTockKernelVersion: c.minKernelVersion,
		BuildTimestamp:           time.Now().Unix(),
		Deterministic:            c.deterministic,
		ShowProgress:             true,
	}
	if err := tab.Compose(out, images, bundleOpts); err != nil {
		return &ioError{fmt.Errorf("writing %q: %w", c.outputFile, err)}
	}

	klog.Infof("wrote %q with %d architecture(s)", c.outputFile, len(images))
	return nil
}

func aclFrom(c *Config) *tbf.PersistentACL {
	if !c.writeID.set && len(c.readIDs.values) == 0 && len(c.accessIDs.values) == 0 {
		return nil
	}
	return &tbf.PersistentACL{
		WriteID:   c.writeID.value,
		ReadIDs:   c.readIDs.values,
		AccessIDs: c.accessIDs.values,
	}
}

// kernelVersionFrom prefers --minimum-tock-kernel-version (a semver
// string) over the raw --kernel-major/--kernel-minor pair, per
// SPEC_FULL.md's domain-stack wiring of coreos/go-semver.
func kernelVersionFrom(c *Config) (*tbf.KernelVersion, error) {
	if c.minKernelVersion != "" {
		v, err := semver.NewVersion(c.minKernelVersion)
		if err != nil {
			return nil, fmt.Errorf("invalid --minimum-tock-kernel-version %q: %w", c.minKernelVersion, err)
		}
		return &tbf.KernelVersion{Major: uint16(v.Major), Minor: uint16(v.Minor)}, nil
	}
	if c.kernelMajor != 0 || c.kernelMinor != 0 {
		return &tbf.KernelVersion{Major: uint16(c.kernelMajor), Minor: uint16(c.kernelMinor)}, nil
	}
	return nil, nil
}

func siblingTBFPath(elfPath, tag string) string {
	if idx := strings.LastIndex(elfPath, "."); idx > strings.LastIndex(elfPath, "/") {
		elfPath = elfPath[:idx]
	}
	return elfPath + "." + tag + ".tbf"
}

// filesystemHasStablePaths reports whether writing per-ELF .tbf sibling
// files is safe in deterministic mode. It always reports true.
func filesystemHasStablePaths() bool { return true }

func bundleName(c *Config, args []string) string {
	if c.packageName != "" {
		return c.packageName
	}
	if len(args) == 0 {
		return ""
	}
	in := parseInput(args[0])
	base := in.path
	if idx := strings.LastIndex(base, "/"); idx >= 0 {
		base = base[idx+1:]
	}
	if idx := strings.LastIndex(base, "."); idx > 0 {
		base = base[:idx]
	}
	return base
}
