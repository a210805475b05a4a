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

// Package elfview parses a 32-bit little-endian ELF executable into the
// neutral section/symbol view that the rest of elf2tab operates on.
package elfview

import (
	"debug/elf"
	"fmt"
)

// Type classifies a section the way the binary assembler needs to see it.
type Type int

const (
	Progbits Type = iota
	Nobits
	Rel
	Other
)

// Flag is a bit in a section's flag set.
type Flag uint32

const (
	FlagWrite Flag = 1 << iota
	FlagAlloc
	FlagExec
)

// Has reports whether all of want is set in f.
func (f Flag) Has(want Flag) bool { return f&want == want }

// Any reports whether any bit of want is set in f.
func (f Flag) Any(want Flag) bool { return f&want != 0 }

// Section is one entry of the neutral section view described in spec §3.
type Section struct {
	Name    string
	Type    Type
	Flags   Flag
	VAddr   uint32
	FileOff uint32
	Size    uint32
	Bytes   []byte
}

// View is the parsed ELF: an ordered section list plus a symbol table.
type View struct {
	Machine    elf.Machine
	Entry      uint32
	Sections   []Section
	symbols    map[string]uint64
}

// Symbol looks up a symbol's value by name.
func (v *View) Symbol(name string) (value uint64, ok bool) {
	value, ok = v.symbols[name]
	return value, ok
}

// Error identifies the spec §7 InputParse failure kind: the ELF bytes
// don't describe a file this tool can read.
type Error struct {
	Reason string
}

func (e *Error) Error() string { return fmt.Sprintf("elf: %s", e.Reason) }

// Parse reads raw ELF bytes into a View. Only 32-bit little-endian ELF is
// supported, per spec §4.1; anything else is an *Error.
func Parse(data []byte) (*View, error) {
	f, err := elf.NewFile(byteReaderAt(data))
	if err != nil {
		return nil, &Error{Reason: err.Error()}
	}
	defer f.Close()

	if f.Class != elf.ELFCLASS32 {
		return nil, &Error{Reason: fmt.Sprintf("unsupported ELF class %s, only ELFCLASS32 is supported", f.Class)}
	}
	if f.Data != elf.ELFDATA2LSB {
		return nil, &Error{Reason: fmt.Sprintf("unsupported ELF data encoding %s, only little-endian is supported", f.Data)}
	}

	v := &View{
		Machine: f.Machine,
		Entry:   uint32(f.Entry),
		symbols: make(map[string]uint64),
	}

	for _, s := range f.Sections {
		sec := Section{
			Name:    s.Name,
			VAddr:   uint32(s.Addr),
			FileOff: uint32(s.Offset),
			Size:    uint32(s.Size),
		}
		sec.Flags = flagsOf(s.Flags)
		sec.Type = typeOf(s, sec.Flags)

		if s.Type != elf.SHT_NOBITS && s.Size > 0 {
			b, err := s.Data()
			if err != nil {
				return nil, &Error{Reason: fmt.Sprintf("section %q: truncated: %v", s.Name, err)}
			}
			sec.Bytes = b
		}

		v.Sections = append(v.Sections, sec)
	}

	// v.Sections preserves ELF section header ordering; callers that need
	// file-offset ordering (the binary assembler's payload pass) impose
	// their own stable sort over this slice rather than have Parse discard
	// the table order that the relocation pass depends on.

	syms, err := f.Symbols()
	if err != nil && err != elf.ErrNoSymbols {
		return nil, &Error{Reason: fmt.Sprintf("symbol table: %v", err)}
	}
	for _, s := range syms {
		if s.Name != "" {
			v.symbols[s.Name] = s.Value
		}
	}

	return v, nil
}

func flagsOf(f elf.SectionFlag) Flag {
	var out Flag
	if f&elf.SHF_WRITE != 0 {
		out |= FlagWrite
	}
	if f&elf.SHF_ALLOC != 0 {
		out |= FlagAlloc
	}
	if f&elf.SHF_EXECINSTR != 0 {
		out |= FlagExec
	}
	return out
}

func typeOf(s *elf.Section, flags Flag) Type {
	switch {
	case s.Type == elf.SHT_NOBITS:
		return Nobits
	case s.Type == elf.SHT_PROGBITS:
		return Progbits
	case s.Type == elf.SHT_REL || s.Type == elf.SHT_RELA:
		return Rel
	default:
		return Other
	}
}

// byteReaderAt adapts a byte slice to io.ReaderAt without copying.
type byteReaderAt []byte

func (b byteReaderAt) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off > int64(len(b)) {
		return 0, fmt.Errorf("elfview: offset %d out of range", off)
	}
	n := copy(p, b[off:])
	if n < len(p) {
		return n, fmt.Errorf("elfview: short read at offset %d", off)
	}
	return n, nil
}
