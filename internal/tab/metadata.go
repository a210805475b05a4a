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

package tab

import (
	"bytes"
	"fmt"

	"github.com/BurntSushi/toml"
)

// Metadata is the spec §4.6 metadata.toml document.
type Metadata struct {
	Name                     string `toml:"name"`
	MinimumTockKernelVersion string `toml:"minimum-tock-kernel-version,omitempty"`
	BuildTimestamp           int64  `toml:"build-timestamp,omitempty"`
}

// Marshal renders m as TOML bytes.
func (m Metadata) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(m); err != nil {
		return nil, fmt.Errorf("metadata.toml: %w", err)
	}
	return buf.Bytes(), nil
}
