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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderOutline(t *testing.T) {
	assert.Equal(t, "- **admin**\n"+
		"  - **title**: \"Admin\"\n"+
		"  - **users** (empty)\n"+
		"- **count**: `3`\n"+
		"- **days**\n"+
		"  - [0]: \"Mon\"\n"+
		"  - [1]\n"+
		"    - **it**: \"Mar\"\n"+
		"- **hello**: \"Say \\\"hi\\\"\"\n"+
		"- **none**: `null`\n",
		RenderOutline(Tree{
			"hello": `Say "hi"`,
			"admin": map[string]any{"title": "Admin", "users": map[string]any{}},
			"days":  []any{"Mon", map[string]any{"it": "Mar"}},
			"count": float64(3),
			"none":  nil,
		}))
	assert.Equal(t, "", RenderOutline(Tree{}))
}
