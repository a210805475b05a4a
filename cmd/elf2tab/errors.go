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
	"fmt"

	"github.com/tock-embedded/elf2tab/internal/assemble"
	"github.com/tock-embedded/elf2tab/internal/credential"
	"github.com/tock-embedded/elf2tab/internal/elfview"
	"github.com/tock-embedded/elf2tab/internal/layout"
)

// kind is one of the five fatal error categories of spec §7. cmd/elf2tab
// is the only place that inspects it, to choose a klog.Exitf message
// prefix; library packages just return plain errors.
type kind string

const (
	kindInputParse       kind = "input parse error"
	kindInputSemantics   kind = "input semantics error"
	kindLayoutImpossible kind = "layout impossible"
	kindCryptoFailure    kind = "crypto failure"
	kindIoFailure        kind = "I/O failure"
)

// cryptoError and ioError wrap failures that originate at the CLI
// boundary (key loading, file I/O) rather than in one of the pipeline
// packages, so classify can still bucket them correctly.
type cryptoError struct{ err error }

func (e *cryptoError) Error() string { return e.err.Error() }
func (e *cryptoError) Unwrap() error { return e.err }

type ioError struct{ err error }

func (e *ioError) Error() string { return e.err.Error() }
func (e *ioError) Unwrap() error { return e.err }

// classify maps an error from the lower layers to its spec §7 kind, for
// diagnostic prefixing. Errors that don't originate from a recognized
// package default to InputSemantics, the most general "the input as
// given can't be built" bucket.
func classify(err error) kind {
	var elfErr *elfview.Error
	if errors.As(err, &elfErr) {
		return kindInputParse
	}
	var asmErr *assemble.Error
	if errors.As(err, &asmErr) {
		return kindInputSemantics
	}
	var layoutErr *layout.Error
	if errors.As(err, &layoutErr) {
		return kindLayoutImpossible
	}
	var credErr *credential.Error
	if errors.As(err, &credErr) {
		return kindCryptoFailure
	}
	var cErr *cryptoError
	if errors.As(err, &cErr) {
		return kindCryptoFailure
	}
	var ioErr *ioError
	if errors.As(err, &ioErr) {
		return kindIoFailure
	}
	return kindInputSemantics
}

func fatalf(err error, format string, args ...any) error {
	return fmt.Errorf("%s: %s: %w", classify(err), fmt.Sprintf(format, args...), err)
}
