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
	"crypto/ecdsa"
	"crypto/rsa"
	"crypto/x509"
	"fmt"
	"os"

	"github.com/tock-embedded/elf2tab/internal/credential"
)

// credentialRequests builds the ordered footer TLV request list of spec
// §4.5: hashes first (SHA-256, SHA-384, SHA-512, whichever are enabled),
// then signatures (RSA-4096, then ECDSA-P256).
func credentialRequests(c *Config) ([]credential.Request, error) {
	var reqs []credential.Request

	if c.sha256 {
		reqs = append(reqs, credential.Request{Hash: credential.SHA256})
	}
	if c.sha384 {
		reqs = append(reqs, credential.Request{Hash: credential.SHA384})
	}
	if c.sha512 {
		reqs = append(reqs, credential.Request{Hash: credential.SHA512})
	}

	if c.rsa4096Private != "" {
		key, err := loadRSAKey(c.rsa4096Private)
		if err != nil {
			return nil, err
		}
		signer, err := credential.NewRSA4096Signer(key)
		if err != nil {
			return nil, &cryptoError{err}
		}
		reqs = append(reqs, credential.Request{Signer: signer})
	}

	if c.ecdsaP256Private != "" {
		key, err := loadECDSAKey(c.ecdsaP256Private)
		if err != nil {
			return nil, err
		}
		signer, err := credential.NewECDSAP256Signer(key)
		if err != nil {
			return nil, &cryptoError{err}
		}
		reqs = append(reqs, credential.Request{Signer: signer})
	}

	return reqs, nil
}

// loadRSAKey reads a DER-encoded RSA private key, accepting either
// PKCS#1 or PKCS#8 encoding.
func loadRSAKey(path string) (*rsa.PrivateKey, error) {
	der, err := os.ReadFile(path)
	if err != nil {
		return nil, &ioError{fmt.Errorf("reading RSA private key %q: %w", path, err)}
	}

	if key, err := x509.ParsePKCS1PrivateKey(der); err == nil {
		return key, nil
	}
	generic, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, &cryptoError{fmt.Errorf("parsing RSA private key %q: %w", path, err)}
	}
	key, ok := generic.(*rsa.PrivateKey)
	if !ok {
		return nil, &cryptoError{fmt.Errorf("%q does not contain an RSA private key", path)}
	}
	return key, nil
}

// loadECDSAKey reads a DER-encoded ECDSA private key, accepting either
// SEC1 or PKCS#8 encoding.
func loadECDSAKey(path string) (*ecdsa.PrivateKey, error) {
	der, err := os.ReadFile(path)
	if err != nil {
		return nil, &ioError{fmt.Errorf("reading ECDSA private key %q: %w", path, err)}
	}

	if key, err := x509.ParseECPrivateKey(der); err == nil {
		return key, nil
	}
	generic, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, &cryptoError{fmt.Errorf("parsing ECDSA private key %q: %w", path, err)}
	}
	key, ok := generic.(*ecdsa.PrivateKey)
	if !ok {
		return nil, &cryptoError{fmt.Errorf("%q does not contain an ECDSA private key", path)}
	}
	return key, nil
}
