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
	"testing"
)

func TestParseMinimalPIC(t *testing.T) {
	data := buildELF32(elf.EM_ARM, 0x80000000, []secSpec{
		{
			name:  ".text",
			typ:   uint32(elf.SHT_PROGBITS),
			flags: uint32(elf.SHF_ALLOC | elf.SHF_EXECINSTR),
			addr:  0x80000000,
			data:  bytes.Repeat([]byte{0xAB}, 16),
		},
	}, nil)

	v, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if v.Entry != 0x80000000 {
		t.Errorf("Entry = %#x, want 0x80000000", v.Entry)
	}
	if v.Machine != elf.EM_ARM {
		t.Errorf("Machine = %v, want EM_ARM", v.Machine)
	}

	var text *Section
	for i := range v.Sections {
		if v.Sections[i].Name == ".text" {
			text = &v.Sections[i]
		}
	}
	if text == nil {
		t.Fatalf(".text section not found among %d sections", len(v.Sections))
	}
	if text.Type != Progbits {
		t.Errorf(".text Type = %v, want Progbits", text.Type)
	}
	if !text.Flags.Has(FlagAlloc | FlagExec) {
		t.Errorf(".text Flags = %v, want Alloc|Exec set", text.Flags)
	}
	if len(text.Bytes) != 16 {
		t.Errorf(".text len(Bytes) = %d, want 16", len(text.Bytes))
	}
}

func TestParseSymbols(t *testing.T) {
	data := buildELF32(elf.EM_ARM, 0x00000000, []secSpec{
		{name: ".text", typ: uint32(elf.SHT_PROGBITS), flags: uint32(elf.SHF_ALLOC), addr: 0, data: []byte{0, 0, 0, 0}},
	}, []symSpec{
		{name: "_sram_origin", value: 0x20000000},
	})

	v, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	val, ok := v.Symbol("_sram_origin")
	if !ok {
		t.Fatalf("symbol _sram_origin not found")
	}
	if val != 0x20000000 {
		t.Errorf("_sram_origin = %#x, want 0x20000000", val)
	}
	if _, ok := v.Symbol("does_not_exist"); ok {
		t.Errorf("unexpected symbol found")
	}
}

func TestParseRejectsBadMagic(t *testing.T) {
	if _, err := Parse([]byte("not an elf file at all")); err == nil {
		t.Fatalf("Parse of garbage bytes succeeded, want error")
	}
}

func TestFlagHasAndAny(t *testing.T) {
	f := FlagAlloc | FlagWrite
	if !f.Has(FlagAlloc) {
		t.Errorf("Has(FlagAlloc) = false, want true")
	}
	if f.Has(FlagExec) {
		t.Errorf("Has(FlagExec) = true, want false")
	}
	if !f.Any(FlagExec | FlagWrite) {
		t.Errorf("Any(FlagExec|FlagWrite) = false, want true")
	}
	if f.Any(FlagExec) {
		t.Errorf("Any(FlagExec) = true, want false")
	}
}
