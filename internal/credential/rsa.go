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
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha512"
	"fmt"
)

// RSA4096Signer implements Signer for spec §4.5's RSA-4096 credential:
// a PKCS#1 v1.5 signature over the SHA-512 digest of the covered bytes,
// followed by the 512-byte public modulus in big-endian form.
type RSA4096Signer struct {
	Key *rsa.PrivateKey
}

// NewRSA4096Signer validates that key is a 4096-bit RSA key.
func NewRSA4096Signer(key *rsa.PrivateKey) (*RSA4096Signer, error) {
	if bits := key.N.BitLen(); bits != 4096 {
		return nil, &Error{Reason: fmt.Sprintf("RSA key is %d bits, want 4096", bits)}
	}
	return &RSA4096Signer{Key: key}, nil
}

func (s *RSA4096Signer) Sign(covered []byte) (uint16, []byte, error) {
	digest := sha512.Sum512(covered)

	sig, err := rsa.SignPKCS1v15(rand.Reader, s.Key, crypto.SHA512, digest[:])
	if err != nil {
		return 0, nil, &Error{Reason: fmt.Sprintf("RSA signing failed: %v", err)}
	}
	if len(sig) != 512 {
		return 0, nil, &Error{Reason: fmt.Sprintf("RSA signature is %d bytes, want 512", len(sig))}
	}

	modulus := make([]byte, 512)
	s.Key.PublicKey.N.FillBytes(modulus)

	value := make([]byte, 0, 1024)
	value = append(value, sig...)
	value = append(value, modulus...)
	return TLVRSA4096, value, nil
}
