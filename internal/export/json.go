/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"encoding/json"
	"fmt"

	"drawtile/internal/document"
	"drawtile/internal/drawing"
)

// JSON returns the persisted snapshot of doc with image URLs passed through
// opts.RewriteURL. The document itself is not modified.
func JSON(doc *document.Content, opts Options) ([]byte, error) {
	s := doc.Snapshot()
	if opts.RewriteURL != nil {
		for i := range s.Objects {
			rewriteImages(&s.Objects[i], opts.RewriteURL)
		}
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal drawing: %w", err)
	}
	return append(data, '\n'), nil
}

func rewriteImages(s *drawing.Snapshot, rw URLRewriter) {
	if s.Type == drawing.TypeImage {
		s.URL = rw(s.URL, s.Filename)
	}
	for i := range s.Objects {
		rewriteImages(&s.Objects[i], rw)
	}
}
