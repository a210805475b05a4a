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

import "testing"

func TestAclFromNilWhenNothingSet(t *testing.T) {
	if got := aclFrom(&Config{}); got != nil {
		t.Errorf("aclFrom(empty Config) = %+v, want nil", got)
	}
}

func TestAclFromPopulated(t *testing.T) {
	c := &Config{}
	c.writeID.Set("7")
	c.readIDs.Set("1 2")
	c.accessIDs.Set("3")

	got := aclFrom(c)
	if got == nil {
		t.Fatalf("aclFrom returned nil, want a populated ACL")
	}
	if got.WriteID != 7 {
		t.Errorf("WriteID = %d, want 7", got.WriteID)
	}
	if len(got.ReadIDs) != 2 || len(got.AccessIDs) != 1 {
		t.Errorf("ReadIDs=%v AccessIDs=%v, want lengths 2 and 1", got.ReadIDs, got.AccessIDs)
	}
}

func TestKernelVersionFromPrefersSemverString(t *testing.T) {
	c := &Config{minKernelVersion: "2.1.3", kernelMajor: 9, kernelMinor: 9}
	v, err := kernelVersionFrom(c)
	if err != nil {
		t.Fatalf("kernelVersionFrom: %v", err)
	}
	if v.Major != 2 || v.Minor != 1 {
		t.Errorf("KernelVersion = {%d, %d}, want {2, 1}", v.Major, v.Minor)
	}
}

func TestKernelVersionFromFallsBackToMajorMinor(t *testing.T) {
	c := &Config{kernelMajor: 2, kernelMinor: 1}
	v, err := kernelVersionFrom(c)
	if err != nil {
		t.Fatalf("kernelVersionFrom: %v", err)
	}
	if v.Major != 2 || v.Minor != 1 {
		t.Errorf("KernelVersion = {%d, %d}, want {2, 1}", v.Major, v.Minor)
	}
}

func TestKernelVersionFromNilWhenUnset(t *testing.T) {
	v, err := kernelVersionFrom(&Config{})
	if err != nil {
		t.Fatalf("kernelVersionFrom: %v", err)
	}
	if v != nil {
		t.Errorf("kernelVersionFrom(empty Config) = %+v, want nil", v)
	}
}

func TestKernelVersionFromRejectsInvalidSemver(t *testing.T) {
	if _, err := kernelVersionFrom(&Config{minKernelVersion: "not-a-version"}); err == nil {
		t.Errorf("kernelVersionFrom accepted invalid semver, want error")
	}
}

func TestSiblingTBFPath(t *testing.T) {
	tests := []struct {
		elfPath string
		tag     string
		want    string
	}{
		{"app.elf", "cortex-m4", "app.cortex-m4.tbf"},
		{"/tmp/build/app.elf", "riscv32imc", "/tmp/build/app.riscv32imc.tbf"},
		{"/tmp/a.b/app", "cortex-m4", "/tmp/a.b/app.cortex-m4.tbf"},
	}
	for _, tt := range tests {
		if got := siblingTBFPath(tt.elfPath, tt.tag); got != tt.want {
			t.Errorf("siblingTBFPath(%q, %q) = %q, want %q", tt.elfPath, tt.tag, got, tt.want)
		}
	}
}

func TestBundleNamePrefersPackageName(t *testing.T) {
	c := &Config{packageName: "blink"}
	if got := bundleName(c, []string{"other.elf"}); got != "blink" {
		t.Errorf("bundleName = %q, want %q", got, "blink")
	}
}

func TestBundleNameDerivesFromFirstInput(t *testing.T) {
	c := &Config{}
	if got := bundleName(c, []string{"/tmp/build/blink.elf,cortex-m4"}); got != "blink" {
		t.Errorf("bundleName = %q, want %q", got, "blink")
	}
}
