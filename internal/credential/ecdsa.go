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

package credential

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
)

// ECDSAP256Signer implements Signer for spec §4.5's ECDSA-P256
// credential: an (r, s) signature over the SHA-256 digest of the covered
// bytes, followed by the uncompressed public key point.
type ECDSAP256Signer struct {
	Key *ecdsa.PrivateKey
}

// NewECDSAP256Signer validates that key is on the P-256 curve.
func NewECDSAP256Signer(key *ecdsa.PrivateKey) (*ECDSAP256Signer, error) {
	if key.Curve != elliptic.P256() {
		return nil, &Error{Reason: "ECDSA key is not on curve P-256"}
	}
	return &ECDSAP256Signer{Key: key}, nil
}

func (s *ECDSAP256Signer) Sign(covered []byte) (uint16, []byte, error) {
	digest := sha256.Sum256(covered)

	r, sVal, err := ecdsa.Sign(rand.Reader, s.Key, digest[:])
	if err != nil {
		return 0, nil, &Error{Reason: fmt.Sprintf("ECDSA signing failed: %v", err)}
	}

	value := make([]byte, 128)
	r.FillBytes(value[0:32])
	sVal.FillBytes(value[32:64])
	s.Key.PublicKey.X.FillBytes(value[64:96])
	s.Key.PublicKey.Y.FillBytes(value[96:128])

	return TLVECDSAP256, value, nil
}
