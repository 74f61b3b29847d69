package allocation

import "leadops_backend/platform/phone"

// Phone fingerprinting for the deduplication pass. The fingerprint is the
// four significant digits that follow the country code, approximated by
// prefix length: 1-digit codes (NANP, Russia/Kazakhstan), a fixed set of
// 2-digit European codes, and the 3-digit 359/371-378 block. Everything
// else falls back to the first four digits.

var twoDigitCountryCodes = map[string]struct{}{
	"44": {}, "49": {}, "33": {}, "34": {}, "39": {},
	"41": {}, "43": {}, "45": {}, "46": {}, "47": {}, "48": {},
}

var threeDigitCountryCodes = map[string]struct{}{
	"359": {}, "371": {}, "372": {}, "373": {}, "374": {},
	"375": {}, "376": {}, "377": {}, "378": {},
}

// fingerprint extracts the four-digit repetition key from a phone number.
// Numbers with fewer than five digits have no fingerprint.
func fingerprint(number string) (string, bool) {
	digits := phone.Digits(number)
	if len(digits) < 5 {
		return "", false
	}
	if len(digits) >= 11 && (digits[0] == '1' || digits[0] == '7') {
		return digits[1:5], true
	}
	if len(digits) >= 12 {
		if _, ok := twoDigitCountryCodes[digits[:2]]; ok {
			return digits[2:6], true
		}
	}
	if len(digits) >= 13 {
		if _, ok := threeDigitCountryCodes[digits[:3]]; ok {
			return digits[3:7], true
		}
	}
	return digits[:4], true
}

type patternVerdict int

const (
	verdictAccept patternVerdict = iota
	verdictRejectTail
)

// classifyPattern judges a fingerprint: numbers whose third and fourth
// significant digits repeat are rejected outright, everything else is
// accepted and competes under the per-pattern distribution caps.
func classifyPattern(fp string) patternVerdict {
	if fp[2] == fp[3] {
		return verdictRejectTail
	}
	return verdictAccept
}
