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

// Package tbf builds the Tock Binary Format base header and its TLV
// record list, per spec §4.4.
package tbf

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/crypto/cryptobyte"
)

// TLV type numbers. These are Tock's own header TLV numbering, which this
// format inherits; type 4 (PicOption1) is obsolete and never emitted,
// matching Tock's header evolution.
const (
	TLVMain                  = 1
	TLVWriteableFlashRegions = 2
	TLVPackageName           = 3
	TLVFixedAddresses        = 5
	TLVPermissions           = 6
	TLVPersistentACL         = 7
	TLVKernelVersion         = 8
	TLVProgram               = 9
	TLVShortId               = 10
	TLVSupportedBoards       = 12
	TLVFooterPadding         = 13
)

const (
	baseHeaderSize = 16
	tlvHeaderSize  = 4

	// FlagEnabled and FlagSticky are the two defined bits of the base
	// header's flags word.
	FlagEnabled = 1 << 0
	FlagSticky  = 1 << 1

	// noFixedAddress is the sentinel written for an unset fixed address.
	noFixedAddress = 0xFFFFFFFF
)

// WriteableFlashRegion mirrors assemble.WriteableFlashRegion to avoid a
// dependency cycle between the two packages.
type WriteableFlashRegion struct {
	Offset uint32
	Length uint32
}

// Permission is one (driver, allowed-commands-bitmask) entry.
type Permission struct {
	DriverNum uint32
	Mask      uint64
}

// PersistentACL is the spec §4.4 item 5 TLV payload.
type PersistentACL struct {
	WriteID   uint32
	ReadIDs   []uint32
	AccessIDs []uint32
}

// KernelVersion is the spec §4.4 item 6 TLV payload.
type KernelVersion struct {
	Major uint16
	Minor uint16
}

// Params carries every piece of content that determines the TLV list.
// Nothing in Params depends on protected_region_size (spec §4.3's "Note
// on the fixpoint"), so the same Params produce the same header_length
// regardless of how the caller later chooses the protected region size.
type Params struct {
	EntryVAddr     uint32
	FlashLoadVAddr uint32
	MinimumRAMSize uint32
	BinaryLength   uint32 // length of the assembled binary, for Program's binary_end_offset
	AppVersion     uint32
	UseProgram     bool // Program supersedes Main; spec §4.4 item 1

	WriteableFlashRegions []WriteableFlashRegion

	IsFixedFlash bool
	IsFixedRAM   bool
	FixedRAM     uint32

	Permissions []Permission

	ACL *PersistentACL

	KernelVersion *KernelVersion

	PackageName string

	ShortID    uint32
	HasShortID bool

	SupportedBoards string

	FooterPaddingSize uint32 // spec §4.4 item 10; 0 means omit the TLV

	Enabled bool
	Sticky  bool
}

// Error identifies a header-construction failure. All are surfaced as the
// spec §7 InputSemantics kind by the caller.
type Error struct {
	Reason string
}

func (e *Error) Error() string { return fmt.Sprintf("tbf: %s", e.Reason) }

// tlv holds one already-encoded TLV's type and value, pre-padding.
type tlv struct {
	typ   uint16
	value []byte
}

// build constructs the ordered TLV list for Params. protectedTrailerSize
// is only used to fill the Main/Program TLV's own field; per spec §4.3 it
// never changes the *length* of that TLV, so callers may pass a
// placeholder (e.g. 0) when only the header_length is wanted.
func buildTLVs(p Params, protectedTrailerSize uint32) ([]tlv, error) {
	var out []tlv

	main, err := mainOrProgramTLV(p, protectedTrailerSize)
	if err != nil {
		return nil, err
	}
	out = append(out, main)

	if len(p.WriteableFlashRegions) > 0 {
		b := cryptobyte.NewBuilder(nil)
		for _, r := range p.WriteableFlashRegions {
			b.AddUint32(r.Offset)
			b.AddUint32(r.Length)
		}
		v, err := b.Bytes()
		if err != nil {
			return nil, &Error{Reason: fmt.Sprintf("writeable flash regions: %v", err)}
		}
		out = append(out, tlv{TLVWriteableFlashRegions, v})
	}

	if p.IsFixedFlash || p.IsFixedRAM {
		ram := uint32(noFixedAddress)
		if p.IsFixedRAM {
			ram = p.FixedRAM
		}
		flash := uint32(noFixedAddress)
		if p.IsFixedFlash {
			flash = p.FlashLoadVAddr
		}
		b := cryptobyte.NewBuilder(nil)
		b.AddUint32(ram)
		b.AddUint32(flash)
		v, _ := b.Bytes()
		out = append(out, tlv{TLVFixedAddresses, v})
	}

	if len(p.Permissions) > 0 {
		if len(p.Permissions) > 0xFFFF {
			return nil, &Error{Reason: "too many permission entries"}
		}
		b := cryptobyte.NewBuilder(nil)
		b.AddUint16(uint16(len(p.Permissions)))
		for _, perm := range p.Permissions {
			b.AddUint32(perm.DriverNum)
			b.AddUint64(perm.Mask)
		}
		v, err := b.Bytes()
		if err != nil {
			return nil, &Error{Reason: fmt.Sprintf("permissions: %v", err)}
		}
		out = append(out, tlv{TLVPermissions, v})
	}

	if p.ACL != nil {
		b := cryptobyte.NewBuilder(nil)
		b.AddUint32(p.ACL.WriteID)
		b.AddUint32(uint32(len(p.ACL.ReadIDs)))
		for _, id := range p.ACL.ReadIDs {
			b.AddUint32(id)
		}
		b.AddUint32(uint32(len(p.ACL.AccessIDs)))
		for _, id := range p.ACL.AccessIDs {
			b.AddUint32(id)
		}
		v, err := b.Bytes()
		if err != nil {
			return nil, &Error{Reason: fmt.Sprintf("persistent ACL: %v", err)}
		}
		out = append(out, tlv{TLVPersistentACL, v})
	}

	if p.KernelVersion != nil {
		b := cryptobyte.NewBuilder(nil)
		b.AddUint16(p.KernelVersion.Major)
		b.AddUint16(p.KernelVersion.Minor)
		v, _ := b.Bytes()
		out = append(out, tlv{TLVKernelVersion, v})
	}

	// PackageName is omitted entirely when empty, per spec §4.4 item 7
	// and scenario 1 of spec §8's worked header_size/total_size figures.
	if p.PackageName != "" {
		out = append(out, tlv{TLVPackageName, []byte(p.PackageName)})
	}

	if p.HasShortID {
		b := cryptobyte.NewBuilder(nil)
		b.AddUint32(p.ShortID)
		v, _ := b.Bytes()
		out = append(out, tlv{TLVShortId, v})
	}

	if p.SupportedBoards != "" {
		out = append(out, tlv{TLVSupportedBoards, []byte(p.SupportedBoards)})
	}

	if p.FooterPaddingSize > 0 {
		out = append(out, tlv{TLVFooterPadding, make([]byte, p.FooterPaddingSize)})
	}

	return out, nil
}

func mainOrProgramTLV(p Params, protectedTrailerSize uint32) (tlv, error) {
	initFnOffset := p.EntryVAddr - p.FlashLoadVAddr

	b := cryptobyte.NewBuilder(nil)
	b.AddUint32(initFnOffset)
	b.AddUint32(protectedTrailerSize)
	b.AddUint32(p.MinimumRAMSize)

	typ := uint16(TLVMain)
	if p.UseProgram {
		typ = TLVProgram
		b.AddUint32(p.BinaryLength)
		b.AddUint32(p.AppVersion)
	}

	v, err := b.Bytes()
	if err != nil {
		return tlv{}, &Error{Reason: fmt.Sprintf("main/program: %v", err)}
	}
	return tlv{typ, v}, nil
}

// paddedLen rounds n up to the next multiple of 4.
func paddedLen(n int) int { return (n + 3) &^ 3 }

// HeaderLength computes the trial header_length of spec §4.3 step 1: the
// base header plus every TLV, each rounded up to 4 bytes, using a zero
// placeholder for the protected trailer size (which never changes a
// TLV's length).
func HeaderLength(p Params) (uint32, error) {
	tlvs, err := buildTLVs(p, 0)
	if err != nil {
		return 0, err
	}
	total := baseHeaderSize
	for _, t := range tlvs {
		total += tlvHeaderSize + paddedLen(len(t.value))
	}
	return uint32(total), nil
}

// Header is a fully built, checksum-valid TBF header image, ready to be
// followed by protected-region padding out to protectedRegionSize bytes,
// then the binary.
type Header struct {
	Bytes        []byte // exactly headerLength bytes; caller pads to protectedRegionSize
	HeaderLength uint32
}

// Build constructs the final header, given the protected region size the
// layout planner chose and the image's total size (protected region +
// binary + footer), and back-patches header_size/total_size/checksum.
func Build(p Params, protectedRegionSize, totalSize uint32) (*Header, error) {
	if protectedRegionSize < 4 {
		return nil, &Error{Reason: "protected region size too small"}
	}

	tlvs, err := buildTLVs(p, 0)
	if err != nil {
		return nil, err
	}

	var body []byte
	for _, t := range tlvs {
		var hdr [4]byte
		binary.LittleEndian.PutUint16(hdr[0:2], t.typ)
		binary.LittleEndian.PutUint16(hdr[2:4], uint16(len(t.value)))
		body = append(body, hdr[:]...)
		body = append(body, t.value...)
		if pad := paddedLen(len(t.value)) - len(t.value); pad > 0 {
			body = append(body, make([]byte, pad)...)
		}
	}

	headerLength := uint32(baseHeaderSize + len(body))
	if protectedRegionSize < headerLength {
		return nil, &Error{Reason: "protected region size smaller than header length"}
	}
	protectedTrailerSize := protectedRegionSize - headerLength

	// Re-encode the Main/Program TLV now that protected_trailer_size is
	// known; its length is unchanged (spec §4.3's fixpoint-avoidance
	// note), only its value bytes are patched in place.
	main, err := mainOrProgramTLV(p, protectedTrailerSize)
	if err != nil {
		return nil, err
	}
	copy(body[tlvHeaderSize:tlvHeaderSize+len(main.value)], main.value)

	out := make([]byte, headerLength)
	binary.LittleEndian.PutUint16(out[0:2], 2) // version
	binary.LittleEndian.PutUint16(out[2:4], uint16(headerLength))
	binary.LittleEndian.PutUint32(out[4:8], totalSize)
	var flags uint32
	if p.Enabled {
		flags |= FlagEnabled
	}
	if p.Sticky {
		flags |= FlagSticky
	}
	binary.LittleEndian.PutUint32(out[8:12], flags)
	// checksum field (out[12:16]) stays zero until the XOR pass below.
	copy(out[baseHeaderSize:], body)

	checksum := xorChecksum(out)
	binary.LittleEndian.PutUint32(out[12:16], checksum)

	return &Header{Bytes: out, HeaderLength: headerLength}, nil
}

// xorChecksum computes the spec §4.4 checksum: the XOR of every 32-bit
// little-endian word of the header (with the checksum field read as
// zero), such that storing the result there makes the whole header's
// checksum XOR to zero.
func xorChecksum(header []byte) uint32 {
	var sum uint32
	for i := 0; i+4 <= len(header); i += 4 {
		if i == 12 {
			continue // checksum field itself reads as zero
		}
		sum ^= binary.LittleEndian.Uint32(header[i : i+4])
	}
	return sum
}
