package strutil

// IsWS reports whether c is an ASCII whitespace byte.
func IsWS(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	}

	return false
}

// LStripWS strips leading whitespace.
func LStripWS(s string) string {
	for i := 0; i < len(s); i++ {
		if !IsWS(s[i]) {
			return s[i:]
		}
	}

	return ""
}

// RStripWS strips trailing whitespace.
func RStripWS(s string) string {
	for i := len(s); i > 0; i-- {
		if !IsWS(s[i-1]) {
			return s[:i]
		}
	}

	return ""
}

// TrimWS strips whitespace from both ends.
func TrimWS(s string) string {
	return LStripWS(RStripWS(s))
}
