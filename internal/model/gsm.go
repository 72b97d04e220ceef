package model

import "regexp"

var gsmPattern = regexp.MustCompile(`^994(?:10|51|50)\d{7}$`)

// ValidGsmNumber reports whether s is a 994 number on the 10, 50 or 51 prefix.
func ValidGsmNumber(s string) bool {
	return gsmPattern.MatchString(s)
}
