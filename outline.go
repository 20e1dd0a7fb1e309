/*
 * Copyright (C) 2026 Simone Pezzano
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU Affero General Public License as
 * published by the Free Software Foundation, either version 3 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU Affero General Public License for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program.  If not, see <https://www.gnu.org/licenses/>.
 */

package locmerge

import (
	"fmt"
	"strconv"
	"strings"
)

// RenderOutline renders a tree as a Markdown bullet outline: one bullet per key, sorted, children indented by two
// spaces. Array elements carry their index. Meant for humans reviewing a merge, not for machines.
func RenderOutline(tree Tree) string {
	sb := strings.Builder{}
	renderOutline(&sb, tree, 0)
	return sb.String()
}

func renderOutline(sb *strings.Builder, node any, depth int) {
	indent := strings.Repeat("  ", depth)
	switch t := node.(type) {
	case map[string]any:
		for _, k := range sortedKeys(t) {
			sb.WriteString(indent + "- **" + k + "**")
			writeOutlineValue(sb, t[k], depth)
		}
	case []any:
		for i, v := range t {
			sb.WriteString(indent + "- [" + strconv.Itoa(i) + "]")
			writeOutlineValue(sb, v, depth)
		}
	}
}

func writeOutlineValue(sb *strings.Builder, v any, depth int) {
	switch t := v.(type) {
	case map[string]any:
		if len(t) == 0 {
			sb.WriteString(" (empty)\n")
			return
		}
		sb.WriteString("\n")
		renderOutline(sb, t, depth+1)
	case []any:
		if len(t) == 0 {
			sb.WriteString(" (empty)\n")
			return
		}
		sb.WriteString("\n")
		renderOutline(sb, t, depth+1)
	case string:
		sb.WriteString(": " + strconv.Quote(t) + "\n")
	case nil:
		sb.WriteString(": `null`\n")
	default:
		sb.WriteString(fmt.Sprintf(": `%v`\n", t))
	}
}
