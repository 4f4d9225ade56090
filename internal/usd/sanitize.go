// Package usd holds the parametric-model surgery: locating the model inside an
// extracted scan archive, stripping a named prim subtree out of its text scene
// files, and repackaging the result as a spec-conformant usdz container.
package usd

import "strings"

// StripPrim removes every def/over block whose declaration line names target
// (quoted) along with its entire nested subtree, returning the rest of the
// document byte-for-byte unchanged.
//
// This is line-oriented brace counting, not a grammar parse: a '{' or '}'
// inside a quoted string value would desynchronize the depth counter. Not
// observed in RoomPlan exports.
func StripPrim(doc string, target string) string {
	quoted := `"` + target + `"`

	var out strings.Builder
	out.Grow(len(doc))

	inside := false
	opened := false
	depth := 0

	for _, line := range strings.SplitAfter(doc, "\n") {
		if line == "" {
			continue
		}

		if !inside {
			trimmed := strings.TrimSpace(line)
			isDecl := strings.HasPrefix(trimmed, "def ") || strings.HasPrefix(trimmed, "over ")
			if isDecl && strings.Contains(line, quoted) {
				inside = true
				opened = strings.Contains(line, "{")
				depth = strings.Count(line, "{") - strings.Count(line, "}")
				if opened && depth <= 0 {
					// Block opened and closed on the declaration line.
					inside = false
				}
				continue
			}
			out.WriteString(line)
			continue
		}

		if !opened && strings.Contains(line, "{") {
			opened = true
		}
		depth += strings.Count(line, "{") - strings.Count(line, "}")
		if opened && depth <= 0 {
			inside = false
		}
	}

	return out.String()
}

// SceneExtensions are the text scene-description suffixes StripPrim applies to.
var SceneExtensions = []string{".usda", ".usd"}

// IsSceneFile reports whether name has a text scene-description extension.
func IsSceneFile(name string) bool {
	for _, ext := range SceneExtensions {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}
