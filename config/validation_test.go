package config

import "testing"

// MARK: TestValidateMTUBoundaries (boundary property #9)
func TestValidateMTUBoundaries(t *testing.T) {
	cases := []struct {
		mtu int
		ok  bool
	}{
		{1279, false},
		{1280, true},
		{1500, true},
		{1501, false},
	}
	for _, tc := range cases {
		err := validateMTU(tc.mtu)
		if (err == nil) != tc.ok {
			t.Errorf("validateMTU(%d) error = %v, want ok=%v", tc.mtu, err, tc.ok)
		}
	}
}

// MARK: TestValidateKeepaliveBoundaries (boundary property #11)
func TestValidateKeepaliveBoundaries(t *testing.T) {
	cases := []struct {
		secs int
		ok   bool
	}{
		{0, true},
		{1, false},
		{9, false},
		{10, true},
		{300, true},
		{301, false},
	}
	for _, tc := range cases {
		err := validateKeepalive(tc.secs)
		if (err == nil) != tc.ok {
			t.Errorf("validateKeepalive(%d) error = %v, want ok=%v", tc.secs, err, tc.ok)
		}
	}
}
