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

// Package tab is the Bundle Composer of spec §4.6: it drives the ELF
// Reader, Binary Assembler, Layout Planner, TBF Header Builder and
// Credential Builder for each input ELF, then assembles the resulting
// per-architecture images and metadata.toml into a TAB tar archive.
package tab

import (
	"fmt"

	"github.com/tock-embedded/elf2tab/internal/assemble"
	"github.com/tock-embedded/elf2tab/internal/credential"
	"github.com/tock-embedded/elf2tab/internal/elfview"
	"github.com/tock-embedded/elf2tab/internal/layout"
	"github.com/tock-embedded/elf2tab/internal/tbf"
)

// Error identifies a Bundle Composer failure that doesn't already carry
// a more specific error kind from a lower layer.
type Error struct {
	Reason string
}

func (e *Error) Error() string { return fmt.Sprintf("tab: %s", e.Reason) }

// Options configures the TBF header and footer content for one
// architecture's image. Everything here is spec §6 CLI input, already
// parsed and validated by cmd/elf2tab.
type Options struct {
	Assemble assemble.Options

	ProtectedRegionSize    uint32
	ProtectedRegionSizeSet bool

	PackageName string

	AppVersion    uint32
	AppVersionSet bool

	Permissions []tbf.Permission
	ACL         *tbf.PersistentACL

	KernelVersion *tbf.KernelVersion

	ShortID    uint32
	HasShortID bool

	SupportedBoards string

	FooterPaddingSize uint32

	Disable bool
	Sticky  bool

	Credentials []credential.Request
}

// Image is one architecture's fully assembled TBF, plus the Layout it
// was built from (useful for diagnostics and for the .tbf sibling files
// cmd/elf2tab writes alongside each input ELF).
type Image struct {
	Bytes  []byte
	Layout *assemble.Layout
}

// BuildImage runs the ELF→TBF pipeline for a single architecture.
func BuildImage(v *elfview.View, o Options) (*Image, error) {
	l, err := assemble.Assemble(v, o.Assemble)
	if err != nil {
		return nil, err
	}

	useProgram := o.AppVersionSet || o.KernelVersion != nil || o.HasShortID || len(o.Credentials) > 0

	params := tbf.Params{
		EntryVAddr:            l.EntryVAddr,
		FlashLoadVAddr:        l.FlashLoadVAddr,
		MinimumRAMSize:        l.RAMSize,
		BinaryLength:          uint32(len(l.Binary)),
		AppVersion:            o.AppVersion,
		UseProgram:            useProgram,
		WriteableFlashRegions: toTBFRegions(l.WriteableFlashRegions),
		IsFixedFlash:          l.IsFixedFlash,
		IsFixedRAM:            l.IsFixedRAM,
		FixedRAM:              l.RAMOriginVAddr,
		Permissions:           o.Permissions,
		ACL:                   o.ACL,
		KernelVersion:         o.KernelVersion,
		PackageName:           o.PackageName,
		ShortID:               o.ShortID,
		HasShortID:            o.HasShortID,
		SupportedBoards:       o.SupportedBoards,
		FooterPaddingSize:     o.FooterPaddingSize,
		Enabled:               !o.Disable,
		Sticky:                o.Sticky,
	}

	symbolSize, symbolSizeSet := v.Symbol("tbf_protected_region_size")

	plan, err := layout.Choose(params, o.ProtectedRegionSize, o.ProtectedRegionSizeSet, uint32(symbolSize), symbolSizeSet)
	if err != nil {
		return nil, err
	}

	var footerSize uint64
	for _, r := range o.Credentials {
		size, err := r.Size()
		if err != nil {
			return nil, err
		}
		footerSize += uint64(size)
	}

	totalSize := uint64(plan.ProtectedRegionSize) + uint64(len(l.Binary)) + footerSize
	if totalSize > 0xFFFFFFFF {
		return nil, &layout.Error{Reason: "total image size exceeds 32 bits"}
	}

	header, err := tbf.Build(params, plan.ProtectedRegionSize, uint32(totalSize))
	if err != nil {
		return nil, err
	}

	image := make([]byte, 0, totalSize)
	image = append(image, header.Bytes...)
	image = append(image, make([]byte, plan.ProtectedRegionSize-header.HeaderLength)...)
	image = append(image, l.Binary...)

	footer, err := credential.Build(image, o.Credentials)
	if err != nil {
		return nil, err
	}
	image = append(image, footer...)

	if uint64(len(image)) != totalSize {
		return nil, &Error{Reason: "internal error: assembled image length does not match computed total_size"}
	}

	return &Image{Bytes: image, Layout: l}, nil
}

func toTBFRegions(in []assemble.WriteableFlashRegion) []tbf.WriteableFlashRegion {
	out := make([]tbf.WriteableFlashRegion, len(in))
	for i, r := range in {
		out[i] = tbf.WriteableFlashRegion{Offset: r.Offset, Length: r.Length}
	}
	return out
}
