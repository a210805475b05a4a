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

// Package assemble selects ELF section content and linearizes it into the
// flat application binary described by spec §4.2.
package assemble

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tock-embedded/elf2tab/internal/elfview"
)

// dummyPICFlash and dummyPICRAM are the documented placeholder addresses
// Tock's linker scripts emit for a position-independent application.
const (
	dummyPICFlash uint32 = 0x80000000
	dummyPICRAM   uint32 = 0x00000000
)

// WriteableFlashRegion is a {offset, length} pair, offsets measured from
// the start of the assembled binary (spec §4.2 rule 3).
type WriteableFlashRegion struct {
	Offset uint32
	Length uint32
}

// Layout is the Go name for the spec §3 "App layout" record.
type Layout struct {
	Binary                []byte
	RAMSize               uint32
	EntryVAddr            uint32
	FlashLoadVAddr        uint32
	RAMOriginVAddr        uint32
	HasRAMOrigin          bool
	WriteableFlashRegions []WriteableFlashRegion
	IsFixedFlash          bool
	IsFixedRAM            bool
}

// Options carries the RAM-footprint inputs of spec §4.2 rule 4. Zero
// values mean "use the spec default", applied by Assemble.
type Options struct {
	StackSize       uint32
	AppHeapSize     uint32
	KernelHeapSize  uint32
	MinimumRAMSize  uint32
	StackSizeIsSet  bool
	MinRAMSizeIsSet bool
}

const (
	defaultAppHeapSize    = 1024
	defaultKernelHeapSize = 1024
	defaultStackSize      = 2048
)

// Error identifies the spec §7 InputSemantics failure kind: the ELF
// parses fine, but its contents don't describe an emittable application.
type Error struct {
	Reason string
}

func (e *Error) Error() string { return fmt.Sprintf("assemble: %s", e.Reason) }

// Assemble selects and concatenates section content per spec §4.2 and
// derives the resulting Layout.
func Assemble(v *elfview.View, opts Options) (*Layout, error) {
	appHeap := opts.AppHeapSize
	if appHeap == 0 {
		appHeap = defaultAppHeapSize
	}
	kernelHeap := opts.KernelHeapSize
	if kernelHeap == 0 {
		kernelHeap = defaultKernelHeapSize
	}

	payload, emitted, err := payloadSections(v)
	if err != nil {
		return nil, err
	}
	if len(payload) == 0 {
		return nil, &Error{Reason: "no emittable sections found in ELF"}
	}

	var binary []byte
	var wfrs []WriteableFlashRegion
	for _, s := range payload {
		if strings.Contains(s.Name, ".wfr") {
			wfrs = append(wfrs, WriteableFlashRegion{
				Offset: uint32(len(binary)),
				Length: s.Size,
			})
		}
		binary = append(binary, s.Bytes...)
	}

	for _, s := range relocationSections(v, emitted) {
		binary = append(binary, s.Bytes...)
	}

	var ramSizeELF uint64
	for _, s := range v.Sections {
		if s.Flags.Any(elfview.FlagAlloc) {
			ramSizeELF += uint64(s.Size)
		}
	}
	if ramSizeELF > 0xFFFFFFFF {
		return nil, &Error{Reason: "RAM footprint exceeds 32 bits"}
	}

	stackSize := opts.StackSize
	if !opts.StackSizeIsSet {
		// Fall back to the linker-provided ".stack" section size, per
		// spec §4.2 rule 4's "stack from ELF or user flag", defaulting to
		// 2048 bytes when the ELF defines no such section.
		stackSize = defaultStackSize
		for _, s := range v.Sections {
			if s.Name == ".stack" {
				stackSize = s.Size
				break
			}
		}
	}

	minimum := uint64(stackSize) + uint64(appHeap) + uint64(kernelHeap)
	ramSize := ramSizeELF
	if minimum > ramSize {
		ramSize = minimum
	}
	if opts.MinRAMSizeIsSet && uint64(opts.MinimumRAMSize) > ramSize {
		ramSize = uint64(opts.MinimumRAMSize)
	}
	if ramSize > 0xFFFFFFFF {
		return nil, &Error{Reason: "RAM footprint exceeds 32 bits"}
	}

	flashLoadVAddr := payload[0].VAddr

	l := &Layout{
		Binary:                binary,
		RAMSize:               uint32(ramSize),
		EntryVAddr:            v.Entry,
		FlashLoadVAddr:        flashLoadVAddr,
		WriteableFlashRegions: wfrs,
		IsFixedFlash:          flashLoadVAddr != dummyPICFlash,
	}

	if origin, ok := v.Symbol("_sram_origin"); ok {
		l.RAMOriginVAddr = uint32(origin)
		l.HasRAMOrigin = true
		l.IsFixedRAM = uint32(origin) != dummyPICRAM
	}

	return l, nil
}

// payloadSections implements spec §4.2 rule 1: every Progbits section
// with a nonzero size and at least one of {Write, Alloc, Exec}, sorted by
// file offset. Also returns the set of sections it emitted, so the
// relocation pass (rule 2) can skip them.
func payloadSections(v *elfview.View) ([]elfview.Section, map[*elfview.Section]bool, error) {
	var out []elfview.Section
	emitted := make(map[*elfview.Section]bool)

	idx := make([]int, 0, len(v.Sections))
	for i := range v.Sections {
		s := &v.Sections[i]
		if s.Type == elfview.Progbits && s.Size > 0 && s.Flags.Any(elfview.FlagWrite|elfview.FlagAlloc|elfview.FlagExec) {
			idx = append(idx, i)
		}
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return v.Sections[idx[a]].FileOff < v.Sections[idx[b]].FileOff
	})
	for _, i := range idx {
		out = append(out, v.Sections[i])
		emitted[&v.Sections[i]] = true
	}
	return out, emitted, nil
}

// relocationSections implements spec §4.2 rule 2: in section-table order,
// every not-yet-emitted section with {Write} or {Alloc} whose name
// contains ".rel".
func relocationSections(v *elfview.View, emitted map[*elfview.Section]bool) []elfview.Section {
	var out []elfview.Section
	for i := range v.Sections {
		s := &v.Sections[i]
		if emitted[s] {
			continue
		}
		if !s.Flags.Any(elfview.FlagWrite|elfview.FlagAlloc) {
			continue
		}
		if !strings.Contains(s.Name, ".rel") {
			continue
		}
		out = append(out, *s)
	}
	return out
}
