/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package vector

// Toolbar settings shared by the drawing tools and the objects they create.

// VectorType selects how a vector object's endpoints are decorated.
type VectorType string

const (
	VectorLine        VectorType = "line"
	VectorSingleArrow VectorType = "singleArrow"
	VectorDoubleArrow VectorType = "doubleArrow"
)

// ArrowShape is the decoration drawn at one endpoint of a vector.
type ArrowShape string

const (
	ArrowNone     ArrowShape = ""
	ArrowTriangle ArrowShape = "triangle"
)

// Endpoints returns the head and tail shapes implied by a vector type.
func (v VectorType) Endpoints() (head, tail ArrowShape) {
	switch v {
	case VectorSingleArrow:
		return ArrowTriangle, ArrowNone
	case VectorDoubleArrow:
		return ArrowTriangle, ArrowTriangle
	default:
		return ArrowNone, ArrowNone
	}
}

// VectorTypeFor is the inverse of Endpoints.
func VectorTypeFor(head, tail ArrowShape) VectorType {
	switch {
	case head != ArrowNone && tail != ArrowNone:
		return VectorDoubleArrow
	case head != ArrowNone || tail != ArrowNone:
		return VectorSingleArrow
	default:
		return VectorLine
	}
}

// ToolbarSettings are the defaults applied to newly drawn objects.
type ToolbarSettings struct {
	Stroke          string     `json:"stroke"`
	Fill            string     `json:"fill"`
	StrokeDashArray string     `json:"strokeDashArray"`
	StrokeWidth     float64    `json:"strokeWidth"`
	VectorType      VectorType `json:"vectorType,omitempty"`
}

var DefaultToolbarSettings = ToolbarSettings{
	Stroke:          "#000000",
	Fill:            "none",
	StrokeDashArray: "",
	StrokeWidth:     2,
	VectorType:      VectorLine,
}
