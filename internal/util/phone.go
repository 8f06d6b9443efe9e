package util

import (
	"regexp"
	"strings"
)

var nonPhone = regexp.MustCompile(`[^\d\+]+`)

// NormalizePhone tries to normalize user input into E.164-like format.
// Local Jordanian mobile numbers (07XXXXXXXX) get the 962 country code.
func NormalizePhone(raw string) string {
	s := strings.TrimSpace(raw)
	s = nonPhone.ReplaceAllString(s, "")

	if strings.HasPrefix(s, "00") {
		s = "+" + s[2:]
	} else if strings.HasPrefix(s, "07") && len(s) == 10 {
		s = "+962" + s[1:]
	} else if strings.HasPrefix(s, "7") && len(s) == 9 {
		s = "+962" + s
	} else if strings.HasPrefix(s, "962") {
		s = "+" + s
	}

	return s
}
