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
	"compress/zlib"
	"encoding/binary"
	"io"
	"strings"

	"gitlab.com/tozd/go/errors"
)

const pngHeaderLen = 8 // magic + CR/LF/SUB/LF trailer

// classifyPNG walks the chunk stream looking for tEXt/iTXt/zTXt chunks
// keyed with one of the generation-metadata keys. The image data itself
// is never decoded.
func classifyPNG(data []byte) (Verdict, error) {
	if len(data) < pngHeaderLen {
		return Verdict{}, errors.New("png: truncated header")
	}

	verdict := Verdict{Fields: map[string]string{}}
	r := data[pngHeaderLen:]

	for len(r) >= 8 {
		length := binary.BigEndian.Uint32(r[:4])
		ctype := string(r[4:8])
		// length + type + payload + crc
		if uint64(len(r)) < uint64(length)+12 {
			break // truncated chunk, stop scanning
		}
		payload := r[8 : 8+length]

		switch ctype {
		case "tEXt":
			key, value, ok := splitTextChunk(payload)
			recordField(&verdict, key, value, ok)
		case "iTXt":
			key, value, ok := parseITXt(payload)
			recordField(&verdict, key, value, ok)
		case "zTXt":
			key, value, ok := parseZTXt(payload)
			recordField(&verdict, key, value, ok)
		case "IEND":
			r = nil
			continue
		}

		r = r[uint64(length)+12:]
	}

	if !verdict.HasMetadata {
		verdict.Fields = nil
	}
	return verdict, nil
}

// recordField merges a decoded text chunk into the verdict when its key
// is one of the recognized generation-metadata keys
func recordField(v *Verdict, key, value string, ok bool) {
	if !ok || !metadataKeys[strings.ToLower(key)] || value == "" {
		return
	}
	v.HasMetadata = true
	v.Fields[strings.ToLower(key)] = value
	if strings.EqualFold(key, "parameters") {
		for k, val := range parseParameters(value) {
			v.Fields[k] = val
		}
	}
}

// splitTextChunk decodes a tEXt payload: key, NUL, latin-1 text
func splitTextChunk(payload []byte) (string, string, bool) {
	i := bytes.IndexByte(payload, 0)
	if i < 0 {
		return "", "", false
	}
	return string(payload[:i]), string(payload[i+1:]), true
}

// parseITXt decodes an iTXt payload:
// key, NUL, compression flag, compression method, NUL-terminated
// language tag, NUL-terminated translated key, UTF-8 text
func parseITXt(payload []byte) (string, string, bool) {
	i := bytes.IndexByte(payload, 0)
	if i < 0 || len(payload) < i+3 {
		return "", "", false
	}
	key := string(payload[:i])
	compressed := payload[i+1] == 1
	rest := payload[i+3:]

	// skip language tag and translated keyword
	for n := 0; n < 2; n++ {
		j := bytes.IndexByte(rest, 0)
		if j < 0 {
			return "", "", false
		}
		rest = rest[j+1:]
	}

	if !compressed {
		return key, string(rest), true
	}
	text, err := inflate(rest)
	if err != nil {
		return "", "", false
	}
	return key, text, true
}

// parseZTXt decodes a zTXt payload: key, NUL, compression method,
// zlib-compressed latin-1 text
func parseZTXt(payload []byte) (string, string, bool) {
	i := bytes.IndexByte(payload, 0)
	if i < 0 || len(payload) < i+2 {
		return "", "", false
	}
	text, err := inflate(payload[i+2:])
	if err != nil {
		return "", "", false
	}
	return string(payload[:i]), text, true
}

func inflate(data []byte) (string, error) {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return "", errors.Errorf("zlib: %w", err)
	}
	defer zr.Close()

	out, err := io.ReadAll(zr)
	if err != nil {
		return "", errors.Errorf("inflating text chunk: %w", err)
	}
	return string(out), nil
}
