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
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestPermissionsFlagPacksByDriver(t *testing.T) {
	var f permissionsFlag
	for _, s := range []string{"1,2", "1,4", "2,0"} {
		if err := f.Set(s); err != nil {
			t.Fatalf("Set(%q): %v", s, err)
		}
	}

	got := f.pack()
	want := []packedPermission{
		{Driver: 1, Mask: 1<<2 | 1<<4},
		{Driver: 2, Mask: 1 << 0},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("pack() mismatch (-want +got):\n%s", diff)
	}
}

func TestPermissionsFlagRejectsMalformed(t *testing.T) {
	var f permissionsFlag
	for _, s := range []string{"1", "1,2,3", "a,2", "1,64"} {
		if err := f.Set(s); err == nil {
			t.Errorf("Set(%q) succeeded, want error", s)
		}
	}
}

func TestOptionalUint32FlagDistinguishesUnset(t *testing.T) {
	var f optionalUint32Flag
	if f.set {
		t.Fatalf("zero value optionalUint32Flag has set=true")
	}
	if err := f.Set("0"); err != nil {
		t.Fatalf("Set(0): %v", err)
	}
	if !f.set || f.value != 0 {
		t.Errorf("after Set(0): set=%v value=%v, want true/0", f.set, f.value)
	}
}

func TestIdListFlagParsesWhitespaceSeparatedValues(t *testing.T) {
	var f idListFlag
	if err := f.Set("1 2   3"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := f.Set("4"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	want := []uint32{1, 2, 3, 4}
	if diff := cmp.Diff(want, f.values); diff != "" {
		t.Errorf("values mismatch (-want +got):\n%s", diff)
	}
}

func TestParseUint32AcceptsHexAndDecimal(t *testing.T) {
	tests := []struct {
		in   string
		want uint32
	}{
		{"42", 42},
		{"0x2A", 42},
		{"0X2A", 42},
		{"0", 0},
		{"010", 10}, // decimal, not octal: spec §6 has no octal grammar
	}
	for _, tt := range tests {
		got, err := parseUint32(tt.in)
		if err != nil {
			t.Errorf("parseUint32(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("parseUint32(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestParseUint32RejectsGarbage(t *testing.T) {
	if _, err := parseUint32("not-a-number"); err == nil {
		t.Errorf("parseUint32 accepted garbage input, want error")
	}
}
