/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

import (
	"fmt"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// FontLibrary stores loaded OpenType fonts by family name.
type FontLibrary struct {
	fonts map[string]*opentype.Font
}

// NewFontLibrary returns a library preloaded with Go Regular under "sans".
func NewFontLibrary() *FontLibrary {
	fl := &FontLibrary{fonts: make(map[string]*opentype.Font)}
	if f, err := opentype.Parse(goregular.TTF); err == nil {
		fl.fonts["sans"] = f
	}
	return fl
}

// LoadTTF loads a font file into the library under the given family.
func (fl *FontLibrary) LoadTTF(family, path string) error {
	if fl.fonts == nil {
		fl.fonts = make(map[string]*opentype.Font)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read font %s: %w", path, err)
	}
	f, err := opentype.Parse(data)
	if err != nil {
		return fmt.Errorf("parse font %s: %w", path, err)
	}
	fl.fonts[family] = f
	return nil
}

// Measurer resolves a family at the given size (72 dpi). Unknown families and
// face errors fall back to the basic bitmap face.
func (fl *FontLibrary) Measurer(family string, sizePt float64) Measurer {
	if sizePt <= 0 {
		sizePt = 12
	}
	if fl != nil && fl.fonts != nil {
		if f, ok := fl.fonts[family]; ok {
			face, err := opentype.NewFace(f, &opentype.FaceOptions{Size: sizePt, DPI: 72, Hinting: font.HintingFull})
			if err == nil {
				return NewFaceMeasurer(face)
			}
		}
	}
	return BasicMeasurer()
}
