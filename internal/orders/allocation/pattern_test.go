package allocation

import "testing"

func TestFingerprintSkipsSingleDigitCountryCode(t *testing.T) {
	fp, ok := fingerprint("+12345678901")
	if !ok {
		t.Fatal("expected a fingerprint for a NANP number")
	}
	if fp != "2345" {
		t.Fatalf("expected fingerprint 2345, got %s", fp)
	}

	fp, ok = fingerprint("+79261234567")
	if !ok || fp != "9261" {
		t.Fatalf("expected fingerprint 9261 for a Russian number, got %s (ok=%v)", fp, ok)
	}
}

func TestFingerprintSkipsTwoDigitCountryCode(t *testing.T) {
	fp, ok := fingerprint("+447911123456")
	if !ok {
		t.Fatal("expected a fingerprint for a UK number")
	}
	if fp != "7911" {
		t.Fatalf("expected fingerprint 7911, got %s", fp)
	}
}

func TestFingerprintSkipsThreeDigitCountryCode(t *testing.T) {
	fp, ok := fingerprint("+3598912345678")
	if !ok {
		t.Fatal("expected a fingerprint for a Bulgarian number")
	}
	if fp != "8912" {
		t.Fatalf("expected fingerprint 8912, got %s", fp)
	}
}

func TestFingerprintFallsBackToLeadingDigits(t *testing.T) {
	// Too short for any prefix rule to engage.
	fp, ok := fingerprint("987654321")
	if !ok {
		t.Fatal("expected a fingerprint")
	}
	if fp != "9876" {
		t.Fatalf("expected fingerprint 9876, got %s", fp)
	}
}

func TestFingerprintRequiresFiveDigits(t *testing.T) {
	if _, ok := fingerprint("1234"); ok {
		t.Fatal("expected no fingerprint for a four-digit number")
	}
	if _, ok := fingerprint(""); ok {
		t.Fatal("expected no fingerprint for an empty number")
	}
}

func TestClassifyPatternRejectsRepeatedTailDigits(t *testing.T) {
	if classifyPattern("2344") != verdictRejectTail {
		t.Fatal("expected tail repetition to be rejected")
	}
	if classifyPattern("7788") != verdictRejectTail {
		t.Fatal("expected tail repetition to be rejected")
	}
}

func TestClassifyPatternAcceptsEverythingElse(t *testing.T) {
	for _, fp := range []string{"2345", "1123", "1213", "9876", "1112"} {
		if classifyPattern(fp) != verdictAccept {
			t.Fatalf("expected fingerprint %s to be accepted", fp)
		}
	}
	// Repetition in the first two digits alone does not reject.
	if classifyPattern("1123") != verdictAccept {
		t.Fatal("expected leading repetition to be accepted")
	}
}
