// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

package script

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Quote renders s as a Python string literal. Go's quoted form only uses
// escapes that Python understands (\n, \t, \\, \", \xNN, \uNNNN, \UNNNNNNNN).
func Quote(s string) string {
	return strconv.Quote(s)
}

// Float renders f without trailing zeros. NaN and infinities render as 0;
// callers validate with Finite first.
func Float(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "0"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Finite reports whether all values are usable numbers.
func Finite(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Vec3 is a location, rotation or scale triple.
type Vec3 [3]float64

// Py renders v as a Python tuple.
func (v Vec3) Py() string {
	return fmt.Sprintf("(%s, %s, %s)", Float(v[0]), Float(v[1]), Float(v[2]))
}

// Color is an RGBA color with components in [0, 1].
type Color [4]float64

func (c Color) Py() string {
	return fmt.Sprintf("(%s, %s, %s, %s)", Float(c[0]), Float(c[1]), Float(c[2]), Float(c[3]))
}

// RGB renders the first three components, as used by light colors.
func (c Color) RGB() string {
	return fmt.Sprintf("(%s, %s, %s)", Float(c[0]), Float(c[1]), Float(c[2]))
}

// Code accumulates lines of Python with indentation handling.
type Code struct {
	b      strings.Builder
	indent int
}

// Line writes s as one indented line.
func (c *Code) Line(s string) {
	if s == "" {
		c.b.WriteByte('\n')
		return
	}
	c.b.WriteString(strings.Repeat("    ", c.indent))
	c.b.WriteString(s)
	c.b.WriteByte('\n')
}

// Linef writes one indented line formatted with fmt.Sprintf.
func (c *Code) Linef(format string, args ...any) {
	c.Line(fmt.Sprintf(format, args...))
}

func (c *Code) Blank() { c.b.WriteByte('\n') }

func (c *Code) Indent() { c.indent++ }

func (c *Code) Dedent() {
	if c.indent > 0 {
		c.indent--
	}
}

// Imports writes the import header. bpy is always imported.
func (c *Code) Imports(modules ...string) {
	c.Line("import bpy")
	for _, m := range modules {
		c.Linef("import %s", m)
	}
	c.Blank()
}

func (c *Code) String() string { return c.b.String() }
