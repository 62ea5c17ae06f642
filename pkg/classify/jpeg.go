// Copyright 2025 walteh LLC
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

package classify

import (
	"bytes"
	"strings"

	"github.com/rwcarlsen/goexif/exif"
)

// classifyJPEG looks for a non-empty EXIF UserComment, which is where
// generators embed the parameter blob in JPEG output. Images without
// EXIF data simply don't match; decode errors are not fatal.
func classifyJPEG(data []byte) (Verdict, error) {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return Verdict{}, nil
	}

	tag, err := x.Get(exif.UserComment)
	if err != nil {
		return Verdict{}, nil
	}

	comment := decodeUserComment(tag.Val)
	if comment == "" {
		return Verdict{}, nil
	}

	fields := map[string]string{"prompt": comment}
	if strings.Contains(comment, "Steps:") || strings.Contains(comment, "Negative prompt:") {
		for k, v := range parseParameters(comment) {
			fields[k] = v
		}
	}
	return Verdict{HasMetadata: true, Fields: fields}, nil
}

// decodeUserComment strips the 8-byte character-code prefix EXIF puts in
// front of UserComment payloads and drops NUL padding
func decodeUserComment(raw []byte) string {
	if len(raw) > 8 {
		prefix := string(raw[:8])
		if strings.HasPrefix(prefix, "ASCII") || strings.HasPrefix(prefix, "UNICODE") || strings.HasPrefix(prefix, "JIS") {
			raw = raw[8:]
		}
	}
	s := strings.Trim(string(raw), "\x00")
	// UTF-16 payloads from UNICODE comments show up as interleaved NULs
	s = strings.ReplaceAll(s, "\x00", "")
	return strings.TrimSpace(s)
}
