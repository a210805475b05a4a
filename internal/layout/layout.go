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

// Package layout chooses the protected-region size and header length of
// spec §4.3.
package layout

import (
	"fmt"

	"github.com/tock-embedded/elf2tab/internal/tbf"
)

// Error identifies the spec §7 failure kinds a layout decision can raise:
// InputSemantics (an explicit --protected-region-size is too small) or
// LayoutImpossible (fixed-flash padding would overflow, or the ELF's
// tbf_protected_region_size symbol disagrees with the alignment
// requirement, per spec §9's Open Question resolution).
type Error struct {
	Reason string
}

func (e *Error) Error() string { return fmt.Sprintf("layout: %s", e.Reason) }

// Plan is the outcome of the layout decision: how big the protected
// region is, and the header_length it must be at least as large as.
type Plan struct {
	HeaderLength        uint32
	ProtectedRegionSize uint32
}

// Choose runs the spec §4.3 procedure. explicitSize is the
// --protected-region-size flag value; explicitSizeSet indicates whether
// the flag was given at all. symbolSize is
// the ELF's tbf_protected_region_size symbol value, if present
// (spec §9's Open Question); symbolSizeSet indicates whether it was
// present at all.
func Choose(p tbf.Params, explicitSize uint32, explicitSizeSet bool, symbolSize uint32, symbolSizeSet bool) (*Plan, error) {
	headerLength, err := tbf.HeaderLength(p)
	if err != nil {
		return nil, err
	}

	switch {
	case explicitSizeSet:
		if explicitSize < headerLength {
			return nil, &Error{Reason: fmt.Sprintf("--protected-region-size %d is smaller than the required header length %d", explicitSize, headerLength)}
		}
		return &Plan{HeaderLength: headerLength, ProtectedRegionSize: explicitSize}, nil

	case symbolSizeSet:
		// Per spec §9, a tbf_protected_region_size symbol is only honored
		// when no explicit flag overrides it, and any conflict with the
		// fixed-flash alignment requirement is an error, not a guess.
		if symbolSize < headerLength {
			return nil, &Error{Reason: fmt.Sprintf("tbf_protected_region_size symbol value %d is smaller than the required header length %d", symbolSize, headerLength)}
		}
		if p.IsFixedFlash {
			want, err := fixedFlashAlignment(p.FlashLoadVAddr, headerLength)
			if err != nil {
				return nil, err
			}
			if want != symbolSize {
				return nil, &Error{Reason: fmt.Sprintf("tbf_protected_region_size symbol value %d conflicts with the fixed-flash alignment requirement of %d", symbolSize, want)}
			}
		}
		return &Plan{HeaderLength: headerLength, ProtectedRegionSize: symbolSize}, nil

	case p.IsFixedFlash:
		size, err := fixedFlashAlignment(p.FlashLoadVAddr, headerLength)
		if err != nil {
			return nil, err
		}
		return &Plan{HeaderLength: headerLength, ProtectedRegionSize: size}, nil

	default:
		// PIC, or fixed-RAM only: no padding beyond the header itself.
		return &Plan{HeaderLength: headerLength, ProtectedRegionSize: headerLength}, nil
	}
}

// fixedFlashAlignment implements spec §4.3 step 3: choose
// protected_region_size so that the binary lands exactly at
// flash_load_vaddr.
func fixedFlashAlignment(flashLoadVAddr, headerLength uint32) (uint32, error) {
	const alignment = 256
	target := flashLoadVAddr % alignment

	if target == 0 {
		return roundUp(headerLength, 4), nil
	}
	if target >= headerLength {
		return target, nil
	}

	// target + 256*k >= headerLength, smallest k >= 1.
	need := uint64(headerLength) - uint64(target)
	k := (need + alignment - 1) / alignment
	if k == 0 {
		k = 1
	}
	size := uint64(target) + k*alignment
	if size > 0xFFFFFFFF {
		return 0, &Error{Reason: "fixed-flash protected region padding overflows 32 bits"}
	}
	return uint32(size), nil
}

func roundUp(n, to uint32) uint32 {
	if n%to == 0 {
		return n
	}
	return n + (to - n%to)
}
