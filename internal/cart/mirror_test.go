package cart

import "testing"

func TestEncodeMirror_IsKeySorted(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		entries Entries
		want    string
	}{
		{name: "nil cart", entries: nil, want: "{}"},
		{name: "single entry", entries: Entries{"3": 1}, want: `{"3":1}`},
		{name: "sorted keys", entries: Entries{"3": 1, "12": 2, "1": 4}, want: `{"1":4,"12":2,"3":1}`},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := EncodeMirror(tc.entries)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("EncodeMirror() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestDecodeMirror(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mirror  string
		want    Entries
		wantErr bool
	}{
		{name: "empty string", mirror: "", want: Entries{}},
		{name: "whitespace", mirror: "  ", want: Entries{}},
		{name: "numbers", mirror: `{"3":1,"12":2}`, want: Entries{"3": 1, "12": 2}},
		{name: "numeric strings", mirror: `{"3":"4"}`, want: Entries{"3": 4}},
		{name: "not an object", mirror: `[1,2]`, wantErr: true},
		{name: "non numeric quantity", mirror: `{"3":"many"}`, wantErr: true},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := DecodeMirror(tc.mirror)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != len(tc.want) {
				t.Fatalf("DecodeMirror() = %v, want %v", got, tc.want)
			}
			for id, qty := range tc.want {
				if got[id] != qty {
					t.Fatalf("DecodeMirror()[%s] = %d, want %d", id, got[id], qty)
				}
			}
		})
	}
}

func TestMirrorRoundTripIsDeterministic(t *testing.T) {
	t.Parallel()

	first, err := EncodeMirror(Entries{"9": 1, "10": 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	decoded, err := DecodeMirror(first)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := EncodeMirror(decoded)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first != second {
		t.Fatalf("round trip changed mirror: %q != %q", first, second)
	}
}
