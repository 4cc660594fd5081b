package code

import "testing"

// FuzzDeserialize exercises Deserialize's "never crash on attacker/disk
// corruption-controlled bytes" contract (spec §7's compile-error-on-abort
// taxonomy extends to a malformed on-disk chunk): any input must either
// round-trip through Deserialize cleanly or come back as
// ErrMalformedChunk/ErrUnsupportedVersion, never a panic.
func FuzzDeserialize(f *testing.F) {
	f.Add(Serialize(sampleChunk()))
	f.Add([]byte{})
	f.Add([]byte{Version})
	f.Add([]byte{Version + 1})

	f.Fuzz(func(t *testing.T, buf []byte) {
		defer func() {
			if r := recover(); r != nil {
				t.Fatalf("Deserialize panicked on %d-byte input: %v", len(buf), r)
			}
		}()
		_, _ = Deserialize(buf, nil)
	})
}
