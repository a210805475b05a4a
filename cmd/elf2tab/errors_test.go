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
	"errors"
	"testing"

	"github.com/tock-embedded/elf2tab/internal/assemble"
	"github.com/tock-embedded/elf2tab/internal/elfview"
	"github.com/tock-embedded/elf2tab/internal/layout"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want kind
	}{
		{"elf", &elfview.Error{Reason: "bad magic"}, kindInputParse},
		{"assemble", &assemble.Error{Reason: "no sections"}, kindInputSemantics},
		{"layout", &layout.Error{Reason: "too small"}, kindLayoutImpossible},
		{"crypto", &cryptoError{errors.New("bad key")}, kindCryptoFailure},
		{"io", &ioError{errors.New("no such file")}, kindIoFailure},
		{"unknown", errors.New("something else"), kindInputSemantics},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classify(tt.err); got != tt.want {
				t.Errorf("classify(%v) = %q, want %q", tt.err, got, tt.want)
			}
		})
	}
}

func TestFatalfWrapsAndPrefixes(t *testing.T) {
	base := &elfview.Error{Reason: "bad magic"}
	err := fatalf(base, "parsing %q", "app.elf")
	if !errors.Is(err, base) {
		t.Errorf("fatalf result does not wrap the original error")
	}
	if got := err.Error(); got == "" {
		t.Errorf("fatalf produced empty message")
	}
}
