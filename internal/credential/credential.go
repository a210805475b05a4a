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

// Package credential builds the TBF footer TLVs of spec §4.5: hashes and
// digital signatures covering the header and binary bytes that precede
// the footer.
package credential

import (
	"crypto/sha256"
	"crypto/sha512"
	"encoding/binary"
	"fmt"
)

// TLV type numbers for the footer, continuing the header's numbering
// space (spec §4.4/§4.5 share one TLV framing).
const (
	TLVSHA256   = 14
	TLVSHA384   = 15
	TLVSHA512   = 16
	TLVRSA4096  = 17
	TLVECDSAP256 = 18
)

// Error identifies the spec §7 CryptoFailure kind.
type Error struct {
	Reason string
}

func (e *Error) Error() string { return fmt.Sprintf("credential: %s", e.Reason) }

// Signer is the spec §6 cryptographic oracle interface for a signature
// scheme: a signer produces a fixed-length signature plus the fixed-length
// public key material that a verifier needs, in the big-endian value
// layout spec §4.5 requires.
type Signer interface {
	// Sign returns the TLV type and value bytes (signature ∥ public key)
	// for the covered bytes.
	Sign(covered []byte) (tlvType uint16, value []byte, err error)
}

// Request describes one footer TLV to build. Exactly one of Hash or
// Signer is set.
type Request struct {
	Hash   HashAlg
	Signer Signer
}

// HashAlg names a digest algorithm requested via --sha256/--sha384/--sha512.
type HashAlg int

const (
	SHA256 HashAlg = iota
	SHA384
	SHA512
)

// Size returns the fixed on-disk length (TLV header + value, unpadded)
// of the credential this Request produces, so callers can compute
// total_size before any bytes are hashed or signed (spec §9's "Credential
// coverage subtlety").
func (r Request) Size() (uint32, error) {
	switch {
	case r.Signer != nil:
		switch r.Signer.(type) {
		case *RSA4096Signer:
			return 4 + 512 + 512, nil
		case *ECDSAP256Signer:
			return 4 + 64 + 64, nil
		default:
			return 0, &Error{Reason: "unknown signer implementation"}
		}
	default:
		switch r.Hash {
		case SHA256:
			return 4 + sha256.Size, nil
		case SHA384:
			return 4 + sha512.Size384, nil
		case SHA512:
			return 4 + sha512.Size, nil
		default:
			return 0, &Error{Reason: "unknown hash algorithm"}
		}
	}
}

// Build computes the footer bytes for the given requests, in the order
// given (spec §4.5: "hash-first, then signature order" is the caller's
// responsibility to arrange when constructing the Request list).
// covered is the header ∥ binary bytes the footer must not include.
func Build(covered []byte, reqs []Request) ([]byte, error) {
	var out []byte
	for _, r := range reqs {
		var typ uint16
		var value []byte
		var err error

		if r.Signer != nil {
			typ, value, err = r.Signer.Sign(covered)
		} else {
			typ, value, err = hashTLV(r.Hash, covered)
		}
		if err != nil {
			return nil, err
		}

		var hdr [4]byte
		binary.LittleEndian.PutUint16(hdr[0:2], typ)
		binary.LittleEndian.PutUint16(hdr[2:4], uint16(len(value)))
		out = append(out, hdr[:]...)
		out = append(out, value...)
		if pad := paddedLen(len(value)) - len(value); pad > 0 {
			out = append(out, make([]byte, pad)...)
		}
	}
	return out, nil
}

func hashTLV(alg HashAlg, covered []byte) (uint16, []byte, error) {
	switch alg {
	case SHA256:
		sum := sha256.Sum256(covered)
		return TLVSHA256, sum[:], nil
	case SHA384:
		sum := sha512.Sum384(covered)
		return TLVSHA384, sum[:], nil
	case SHA512:
		sum := sha512.Sum512(covered)
		return TLVSHA512, sum[:], nil
	default:
		return 0, nil, &Error{Reason: "unknown hash algorithm"}
	}
}

func paddedLen(n int) int { return (n + 3) &^ 3 }
