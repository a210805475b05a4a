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
	"fmt"
	"strconv"
	"strings"
)

// permPair is one --permissions D,C flag occurrence, before the driver
// entries with matching numbers are OR-ed together into a single mask
// (spec §4.4 item 4).
type permPair struct {
	Driver uint32
	Cmd    uint32
}

// permissionsFlag collects repeated --permissions flags in the order
// given, per the "collect into ordered lists before TLV emission"
// guidance of spec §9.
type permissionsFlag []permPair

func (p *permissionsFlag) String() string {
	if p == nil {
		return ""
	}
	parts := make([]string, len(*p))
	for i, pp := range *p {
		parts[i] = fmt.Sprintf("%d,%d", pp.Driver, pp.Cmd)
	}
	return strings.Join(parts, " ")
}

func (p *permissionsFlag) Set(s string) error {
	fields := strings.Split(s, ",")
	if len(fields) != 2 {
		return fmt.Errorf("--permissions value %q must be of the form driver,command", s)
	}
	driver, err := parseUint32(fields[0])
	if err != nil {
		return fmt.Errorf("--permissions driver %q: %v", fields[0], err)
	}
	cmd, err := parseUint32(fields[1])
	if err != nil {
		return fmt.Errorf("--permissions command %q: %v", fields[1], err)
	}
	if cmd > 63 {
		return fmt.Errorf("--permissions command %d exceeds the maximum of 63", cmd)
	}
	*p = append(*p, permPair{Driver: driver, Cmd: cmd})
	return nil
}

// pack merges the ordered permPair list into one mask per distinct
// driver number, preserving the order each driver was first seen.
func (p permissionsFlag) pack() []packedPermission {
	var order []uint32
	masks := make(map[uint32]uint64)
	for _, pp := range p {
		if _, ok := masks[pp.Driver]; !ok {
			order = append(order, pp.Driver)
		}
		masks[pp.Driver] |= 1 << pp.Cmd
	}
	out := make([]packedPermission, len(order))
	for i, driver := range order {
		out[i] = packedPermission{Driver: driver, Mask: masks[driver]}
	}
	return out
}

type packedPermission struct {
	Driver uint32
	Mask   uint64
}

// optionalUint32Flag is a flag.Value tracking whether it was ever set,
// distinguishing "0" from "not provided" for fields like --short-id and
// --write-id where zero is a legitimate value.
type optionalUint32Flag struct {
	value uint32
	set   bool
}

func (f *optionalUint32Flag) String() string {
	if f == nil || !f.set {
		return ""
	}
	return strconv.FormatUint(uint64(f.value), 10)
}

func (f *optionalUint32Flag) Set(s string) error {
	v, err := parseUint32(s)
	if err != nil {
		return err
	}
	f.value = v
	f.set = true
	return nil
}

// idListFlag parses a whitespace-separated list of u32 values, for
// --read_ids and --access_ids (spec §6: "space-separated lists").
type idListFlag struct {
	values []uint32
}

func (f *idListFlag) String() string {
	if f == nil {
		return ""
	}
	parts := make([]string, len(f.values))
	for i, v := range f.values {
		parts[i] = strconv.FormatUint(uint64(v), 10)
	}
	return strings.Join(parts, " ")
}

func (f *idListFlag) Set(s string) error {
	for _, field := range strings.Fields(s) {
		v, err := parseUint32(field)
		if err != nil {
			return fmt.Errorf("id list value %q: %v", field, err)
		}
		f.values = append(f.values, v)
	}
	return nil
}

// parseUint32 accepts decimal or 0x-prefixed hex, per spec §6. Base 0
// isn't used here because it treats a bare leading-zero string like
// "010" as octal, which isn't part of that grammar.
func parseUint32(s string) (uint32, error) {
	base := 10
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		base = 16
		s = s[2:]
	}
	v, err := strconv.ParseUint(s, base, 32)
	if err != nil {
		return 0, err
	}
	return uint32(v), nil
}
