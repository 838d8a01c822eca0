package transcript

import "testing"

func TestAccumulator(t *testing.T) {
	tests := []struct {
		name   string
		inputs []string
		want   string
	}{
		{
			name:   "single text is trimmed",
			inputs: []string{"  hello world \n"},
			want:   "hello world",
		},
		{
			name:   "texts joined with one space",
			inputs: []string{"hello", " world ", "again"},
			want:   "hello world again",
		},
		{
			name:   "identical texts are not deduplicated",
			inputs: []string{"yes", "yes"},
			want:   "yes yes",
		},
		{
			name:   "blank results are skipped",
			inputs: []string{"first", "   ", "", "second"},
			want:   "first second",
		},
		{
			name: "nothing appended",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var acc Accumulator
			for _, in := range tt.inputs {
				acc.Append(in)
			}
			if acc.String() != tt.want {
				t.Errorf("String() = %q, want %q", acc.String(), tt.want)
			}
		})
	}
}

func TestAccumulatorReset(t *testing.T) {
	var acc Accumulator
	acc.Append("old answer")
	acc.Reset()
	if acc.Len() != 0 {
		t.Fatalf("Len() = %d after reset", acc.Len())
	}
	acc.Append("new")
	if acc.String() != "new" {
		t.Errorf("String() = %q, want %q", acc.String(), "new")
	}
}
