package model

import "testing"

func TestValidGsmNumber(t *testing.T) {
	valid := []string{"994501234567", "994101234567", "994511234567"}
	invalid := []string{"", "994551234567", "99450123456", "9945012345678", "+994501234567", "994501234a67"}
	for _, s := range valid {
		if !ValidGsmNumber(s) {
			t.Errorf("%q should be valid", s)
		}
	}
	for _, s := range invalid {
		if ValidGsmNumber(s) {
			t.Errorf("%q should be invalid", s)
		}
	}
}
