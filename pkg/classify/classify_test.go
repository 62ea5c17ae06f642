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
	"context"
	"encoding/binary"
	"hash/crc32"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 🧪 pngChunk serializes one chunk with a valid CRC
func pngChunk(ctype string, payload []byte) []byte {
	var buf bytes.Buffer
	binary.Write(&buf, binary.BigEndian, uint32(len(payload)))
	buf.WriteString(ctype)
	buf.Write(payload)

	crc := crc32.NewIEEE()
	crc.Write([]byte(ctype))
	crc.Write(payload)
	binary.Write(&buf, binary.BigEndian, crc.Sum32())
	return buf.Bytes()
}

// 🧪 makePNG builds a minimal PNG stream carrying the given text chunks
func makePNG(textChunks map[string]string) []byte {
	var buf bytes.Buffer
	buf.Write([]byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A})

	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:4], 1) // width
	binary.BigEndian.PutUint32(ihdr[4:8], 1) // height
	ihdr[8] = 8                              // bit depth
	buf.Write(pngChunk("IHDR", ihdr))

	for key, value := range textChunks {
		payload := append(append([]byte(key), 0), []byte(value)...)
		buf.Write(pngChunk("tEXt", payload))
	}

	buf.Write(pngChunk("IEND", nil))
	return buf.Bytes()
}

const a1111Params = "a castle on a hill\nNegative prompt: blurry, lowres\nSteps: 20, Sampler: Euler a, CFG scale: 7, Seed: 12345, Size: 512x512, Model hash: abc123de, Model: dreamshaper_8"

// 🧪 TestClassifyPNG tests PNG text-chunk classification
func TestClassifyPNG(t *testing.T) {
	tests := []struct {
		name        string
		chunks      map[string]string
		wantMatch   bool
		wantField   string
		wantContent string
	}{
		{
			name:        "a1111_parameters",
			chunks:      map[string]string{"parameters": a1111Params},
			wantMatch:   true,
			wantField:   "parameters",
			wantContent: a1111Params,
		},
		{
			name:        "comfyui_prompt",
			chunks:      map[string]string{"prompt": `{"3": {"class_type": "KSampler"}}`},
			wantMatch:   true,
			wantField:   "prompt",
			wantContent: `{"3": {"class_type": "KSampler"}}`,
		},
		{
			name:        "comfyui_workflow",
			chunks:      map[string]string{"workflow": `{"nodes": []}`},
			wantMatch:   true,
			wantField:   "workflow",
			wantContent: `{"nodes": []}`,
		},
		{
			name:      "unrelated_text_chunk",
			chunks:    map[string]string{"Software": "gimp-2.10"},
			wantMatch: false,
		},
		{
			name:      "no_text_chunks",
			chunks:    nil,
			wantMatch: false,
		},
		{
			name:      "empty_parameters_value",
			chunks:    map[string]string{"parameters": ""},
			wantMatch: false,
		},
	}

	c := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verdict, err := c.ClassifyBytes(context.Background(), makePNG(tt.chunks))
			require.NoError(t, err)
			assert.Equal(t, tt.wantMatch, verdict.HasMetadata)
			if tt.wantMatch {
				assert.Equal(t, tt.wantContent, verdict.Fields[tt.wantField])
			}
		})
	}
}

// 🧪 TestClassifyPNGCompressedChunks tests zTXt and iTXt decoding
func TestClassifyPNGCompressedChunks(t *testing.T) {
	var compressed bytes.Buffer
	zw := zlib.NewWriter(&compressed)
	zw.Write([]byte(a1111Params))
	zw.Close()

	var buf bytes.Buffer
	buf.Write([]byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A})

	// zTXt: key, NUL, compression method, deflate stream
	ztxt := append(append([]byte("parameters"), 0, 0), compressed.Bytes()...)
	buf.Write(pngChunk("zTXt", ztxt))

	// iTXt, uncompressed: key NUL flag method NUL-lang NUL-translated text
	itxt := append([]byte("workflow"), 0, 0, 0)
	itxt = append(itxt, 0) // empty language tag
	itxt = append(itxt, 0) // empty translated keyword
	itxt = append(itxt, []byte(`{"nodes": []}`)...)
	buf.Write(pngChunk("iTXt", itxt))

	buf.Write(pngChunk("IEND", nil))

	verdict, err := New().ClassifyBytes(context.Background(), buf.Bytes())
	require.NoError(t, err)
	assert.True(t, verdict.HasMetadata)
	assert.Equal(t, a1111Params, verdict.Fields["parameters"])
	assert.Equal(t, `{"nodes": []}`, verdict.Fields["workflow"])
}

// 🧪 TestParseParameters tests A1111 parameter-blob field extraction
func TestParseParameters(t *testing.T) {
	fields := parseParameters(a1111Params)

	assert.Equal(t, "a castle on a hill", fields["prompt"])
	assert.Equal(t, "blurry, lowres", fields["negative_prompt"])
	assert.Equal(t, "20", fields["steps"])
	assert.Equal(t, "Euler a", fields["sampler"])
	assert.Equal(t, "7", fields["cfg_scale"])
	assert.Equal(t, "12345", fields["seed"])
	assert.Equal(t, "abc123de", fields["model_hash"])
	assert.Equal(t, "dreamshaper_8", fields["model"])
}

// 🧪 TestSniff tests magic-byte format detection
func TestSniff(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want fileType
	}{
		{"png", []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}, typePNG},
		{"jpeg", []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10}, typeJPEG},
		{"webp", append([]byte("RIFF"), 0, 0, 0, 0, 'W', 'E', 'B', 'P'), typeWebP},
		{"riff_not_webp", append([]byte("RIFF"), 0, 0, 0, 0, 'W', 'A', 'V', 'E'), typeOther},
		{"text", []byte("hello world"), typeOther},
		{"empty", nil, typeOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sniff(tt.data))
		})
	}
}

// 🧪 TestDecodeUserComment tests EXIF UserComment charset handling
func TestDecodeUserComment(t *testing.T) {
	ascii := append([]byte("ASCII\x00\x00\x00"), []byte("a prompt, Steps: 20")...)
	assert.Equal(t, "a prompt, Steps: 20", decodeUserComment(ascii))

	padded := append([]byte("ASCII\x00\x00\x00"), []byte("trailing\x00\x00")...)
	assert.Equal(t, "trailing", decodeUserComment(padded))

	assert.Equal(t, "bare comment", decodeUserComment([]byte("bare comment")))
	assert.Equal(t, "", decodeUserComment(nil))
}

// 🧪 TestClassifyFile tests the path-based entry point
func TestClassifyFile(t *testing.T) {
	dir := t.TempDir()

	matched := filepath.Join(dir, "gen.png")
	require.NoError(t, os.WriteFile(matched, makePNG(map[string]string{"parameters": a1111Params}), 0644))

	clean := filepath.Join(dir, "clean.png")
	require.NoError(t, os.WriteFile(clean, makePNG(nil), 0644))

	c := New()

	verdict, err := c.Classify(context.Background(), matched)
	require.NoError(t, err)
	assert.True(t, verdict.HasMetadata)

	verdict, err = c.Classify(context.Background(), clean)
	require.NoError(t, err)
	assert.False(t, verdict.HasMetadata)

	_, err = c.Classify(context.Background(), filepath.Join(dir, "missing.png"))
	assert.Error(t, err)
}

// 🧪 TestClassifyNonImage tests that unknown formats never match or error
func TestClassifyNonImage(t *testing.T) {
	verdict, err := New().ClassifyBytes(context.Background(), []byte("PK\x03\x04 definitely a zip"))
	require.NoError(t, err)
	assert.False(t, verdict.HasMetadata)
}
