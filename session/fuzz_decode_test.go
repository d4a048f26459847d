package session

import "testing"

// FuzzSnapshotDecode feeds arbitrary bytes to the snapshot decoder.
// Goal: no panics, and every accepted snapshot re-encodes.
func FuzzSnapshotDecode(f *testing.F) {
	if encoded, err := Encode(testSnapshot()); err == nil {
		f.Add(encoded)
		f.Add(encoded[:len(encoded)/2])
	}
	f.Add([]byte{})
	f.Add([]byte(`{}`))
	f.Add([]byte(`{"version":1}`))
	f.Add([]byte(`{"version":2,"access_token":"a"}`))
	f.Add([]byte(`{"version":"2"}`))

	f.Fuzz(func(t *testing.T, data []byte) {
		snap, err := Decode(data)
		if err != nil {
			return
		}
		if _, err := Encode(snap); err != nil {
			t.Fatalf("decoded snapshot failed to re-encode: %v", err)
		}
	})
}
