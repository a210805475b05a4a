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

package elfview

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
)

// secSpec describes one section to synthesize into a minimal ELF32
// image for tests. This is deliberately not a general-purpose ELF
// writer: it only produces images shaped the way Tock's own toolchain
// produces them, which is all the section-selection tests need.
type secSpec struct {
	name  string
	typ   uint32
	flags uint32
	addr  uint32
	data  []byte
	size  uint32 // used instead of len(data) for SHT_NOBITS sections
}

type symSpec struct {
	name  string
	value uint32
}

// buildELF32 assembles a minimal little-endian ELF32 executable
// containing the given sections (plus an implicit NULL section and a
// .shstrtab), and, if any symbols are given, a .symtab/.strtab pair.
func buildELF32(machine elf.Machine, entry uint32, secs []secSpec, syms []symSpec) []byte {
	const (
		ehsize  = 52
		shsize  = 40
		symsize = 16
	)

	var shstrtab bytes.Buffer
	shstrtab.WriteByte(0)
	nameOffset := func(name string) uint32 {
		off := uint32(shstrtab.Len())
		shstrtab.WriteString(name)
		shstrtab.WriteByte(0)
		return off
	}

	var strtab bytes.Buffer
	strtab.WriteByte(0)
	symNameOffset := func(name string) uint32 {
		off := uint32(strtab.Len())
		strtab.WriteString(name)
		strtab.WriteByte(0)
		return off
	}

	type shdr struct {
		name, typ, flags, addr, offset, size, link, info, align, entsize uint32
	}

	var shdrs []shdr
	shdrs = append(shdrs, shdr{}) // SHT_NULL

	var body bytes.Buffer
	dataOffsetOf := func(n int) uint32 { return uint32(ehsize) + uint32(n) }

	for _, s := range secs {
		off := dataOffsetOf(body.Len())
		size := s.size
		if s.typ != uint32(elf.SHT_NOBITS) {
			size = uint32(len(s.data))
			body.Write(s.data)
		}
		shdrs = append(shdrs, shdr{
			name:   nameOffset(s.name),
			typ:    s.typ,
			flags:  s.flags,
			addr:   s.addr,
			offset: off,
			size:   size,
			align:  1,
		})
	}

	var symtabOff, symtabSize, strtabOff, strtabSize uint32
	if len(syms) > 0 {
		symtabOff = dataOffsetOf(body.Len())
		// Symbol 0 is always the null symbol.
		writeSym := func(nameOff, value uint32) {
			var b [symsize]byte
			binary.LittleEndian.PutUint32(b[0:4], nameOff)
			binary.LittleEndian.PutUint32(b[4:8], value)
			body.Write(b[:])
		}
		writeSym(0, 0)
		for _, s := range syms {
			writeSym(symNameOffset(s.name), s.value)
		}
		symtabSize = uint32(symsize * (len(syms) + 1))

		strtabOff = dataOffsetOf(body.Len())
		body.Write(strtab.Bytes())
		strtabSize = uint32(strtab.Len())

		strtabShIdx := uint32(len(shdrs) + 1) // .strtab follows .symtab and .shstrtab is appended after both
		shdrs = append(shdrs, shdr{
			name:    nameOffset(".symtab"),
			typ:     uint32(elf.SHT_SYMTAB),
			offset:  symtabOff,
			size:    symtabSize,
			link:    strtabShIdx,
			info:    1,
			align:   4,
			entsize: symsize,
		})
		shdrs = append(shdrs, shdr{
			name:   nameOffset(".strtab"),
			typ:    uint32(elf.SHT_STRTAB),
			offset: strtabOff,
			size:   strtabSize,
			align:  1,
		})
	}

	shstrtabOff := dataOffsetOf(body.Len())
	shstrtabNameOff := nameOffset(".shstrtab")
	body.Write(shstrtab.Bytes())
	shstrtabIdx := uint32(len(shdrs))
	shdrs = append(shdrs, shdr{
		name:   shstrtabNameOff,
		typ:    uint32(elf.SHT_STRTAB),
		offset: shstrtabOff,
		size:   uint32(shstrtab.Len()),
		align:  1,
	})

	shoff := dataOffsetOf(body.Len())

	var out bytes.Buffer
	// e_ident
	out.Write([]byte{0x7f, 'E', 'L', 'F', 1 /*ELFCLASS32*/, 1 /*ELFDATA2LSB*/, 1, 0})
	out.Write(make([]byte, 8)) // padding

	le := binary.LittleEndian
	write16 := func(v uint16) { var b [2]byte; le.PutUint16(b[:], v); out.Write(b[:]) }
	write32 := func(v uint32) { var b [4]byte; le.PutUint32(b[:], v); out.Write(b[:]) }

	write16(uint16(elf.ET_EXEC))
	write16(uint16(machine))
	write32(uint32(elf.EV_CURRENT))
	write32(entry)
	write32(0)      // e_phoff
	write32(shoff)  // e_shoff
	write32(0)      // e_flags
	write16(ehsize)
	write16(0) // e_phentsize
	write16(0) // e_phnum
	write16(shsize)
	write16(uint16(len(shdrs)))
	write16(uint16(shstrtabIdx))

	out.Write(body.Bytes())

	for _, s := range shdrs {
		write32(s.name)
		write32(s.typ)
		write32(s.flags)
		write32(s.addr)
		write32(s.offset)
		write32(s.size)
		write32(s.link)
		write32(s.info)
		write32(s.align)
		write32(s.entsize)
	}

	return out.Bytes()
}
