/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"fmt"
	"path/filepath"
	"strings"

	"drawtile/internal/document"
)

// PresetName represents a named export preset.
type PresetName string

const (
	PresetWeb   PresetName = "web"
	PresetPrint PresetName = "print"
)

// BatchOptions controls exporting one drawing to several formats at once.
// Files are written as <OutDir>/<Name>.<ext>.
type BatchOptions struct {
	Preset      PresetName
	Formats     []string // empty means preset defaults
	DPIOverride int      // when > 0 overrides the preset's PNG resolution
	OutDir      string
	Name        string // defaults to the document id
	Options     Options
}

// BatchExport writes doc in every format of the preset and returns the paths
// written, in format order.
func BatchExport(doc *document.Content, opt BatchOptions) ([]string, error) {
	if doc == nil {
		return nil, fmt.Errorf("document is nil")
	}
	if opt.OutDir == "" {
		return nil, fmt.Errorf("batch export: out dir is required")
	}
	formats := opt.Formats
	if len(formats) == 0 {
		formats = presetDefaultFormats(opt.Preset)
	}
	name := opt.Name
	if name == "" {
		name = doc.ID()
	}

	o := opt.Options
	if o.DPI == 0 {
		o.DPI = presetDPI(opt.Preset)
	}
	if opt.DPIOverride > 0 {
		o.DPI = opt.DPIOverride
	}

	var written []string
	for _, raw := range formats {
		f, err := ParseFormat(strings.TrimSpace(raw))
		if err != nil {
			return written, err
		}
		out := filepath.Join(opt.OutDir, name+"."+string(f))
		if err := ToFile(doc, f, out, o); err != nil {
			return written, fmt.Errorf("%s: %w", f, err)
		}
		written = append(written, out)
	}
	return written, nil
}

func presetDefaultFormats(p PresetName) []string {
	switch p {
	case PresetWeb:
		return []string{"json", "svg", "png"}
	case PresetPrint:
		return []string{"pdf", "png"}
	default:
		return []string{"json"}
	}
}

func presetDPI(p PresetName) int {
	if p == PresetPrint {
		return 300
	}
	return 72
}
