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
	"archive/tar"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/cheggaaa/pb/v3"
	"k8s.io/klog"
)

// deterministicTime is the archive member timestamp used in
// --deterministic mode, per spec §5.
var deterministicTime = time.Unix(0, 0)

// BundleOptions configures the TAB archive itself, as opposed to any
// one architecture's TBF content.
type BundleOptions struct {
	Name                     string
	MinimumTockKernelVersion string
	BuildTimestamp           int64
	Deterministic            bool

	// ShowProgress drives a cheggaaa/pb progress bar across the input
	// architecture list; automatically suppressed by pb itself when
	// stdout is not a terminal.
	ShowProgress bool
}

// Compose builds the TAB archive: metadata.toml plus one <arch>.tbf per
// entry in images, written to w in lexicographic architecture order
// (spec §4.6). Timestamps/owners/modes are pinned in deterministic mode.
func Compose(w io.Writer, images map[string]*Image, opts BundleOptions) error {
	tags := make([]string, 0, len(images))
	for tag := range images {
		tags = append(tags, tag)
	}
	sort.Strings(tags)

	meta := Metadata{
		Name:                     opts.Name,
		MinimumTockKernelVersion: opts.MinimumTockKernelVersion,
	}
	if !opts.Deterministic {
		meta.BuildTimestamp = opts.BuildTimestamp
	}
	metaBytes, err := meta.Marshal()
	if err != nil {
		return err
	}

	tw := tar.NewWriter(w)

	var bar *pb.ProgressBar
	if opts.ShowProgress && len(tags) > 1 {
		bar = pb.StartNew(len(tags) + 1)
		defer bar.Finish()
	}

	if err := writeMember(tw, "metadata.toml", metaBytes, opts.Deterministic); err != nil {
		return &Error{Reason: fmt.Sprintf("writing metadata.toml: %v", err)}
	}
	if bar != nil {
		bar.Increment()
	}

	for _, tag := range tags {
		name := tag + ".tbf"
		klog.Infof("packing %s (%d bytes)", name, len(images[tag].Bytes))
		if err := writeMember(tw, name, images[tag].Bytes, opts.Deterministic); err != nil {
			return &Error{Reason: fmt.Sprintf("writing %s: %v", name, err)}
		}
		if bar != nil {
			bar.Increment()
		}
	}

	if err := tw.Close(); err != nil {
		return &Error{Reason: fmt.Sprintf("closing archive: %v", err)}
	}
	return nil
}

func writeMember(tw *tar.Writer, name string, data []byte, deterministic bool) error {
	hdr := &tar.Header{
		Name: name,
		Size: int64(len(data)),
		Mode: 0o644,
	}
	if deterministic {
		hdr.ModTime = deterministicTime
		hdr.Uid, hdr.Gid = 0, 0
		hdr.Uname, hdr.Gname = "", ""
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	_, err := tw.Write(data)
	return err
}
