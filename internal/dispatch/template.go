package dispatch

import "strings"

// Render substitutes the {name} placeholder with the recipient's display
// name. Text without the placeholder passes through unchanged.
func Render(template, name string) string {
	return strings.ReplaceAll(template, "{name}", name)
}
