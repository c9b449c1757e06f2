package models

// ValidScope reports whether s is a usable document box scope: a non-empty
// string of ASCII letters, digits and any of ":-_.".
func ValidScope(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == ':' || r == '-' || r == '_' || r == '.':
		default:
			return false
		}
	}
	return true
}
