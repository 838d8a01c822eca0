package language

import "testing"

func TestFromCode(t *testing.T) {
	tests := []struct {
		code     string
		wantCode string
		wantName string
	}{
		{"en", "en", "English"},
		{"es", "es", "Spanish"},
		{"invalid", "", "Auto-detect"},
		{"", "", "Auto-detect"},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			got := FromCode(tt.code)
			if got.Code != tt.wantCode || got.Name != tt.wantName {
				t.Errorf("FromCode(%q) = %+v, want %s/%s", tt.code, got, tt.wantCode, tt.wantName)
			}
		})
	}
}

func TestIsValidCode(t *testing.T) {
	tests := []struct {
		code string
		want bool
	}{
		{"en", true},
		{"zh", true},
		{"", true},
		{"xx", false},
		{"EN", false},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			if got := IsValidCode(tt.code); got != tt.want {
				t.Errorf("IsValidCode(%q) = %v, want %v", tt.code, got, tt.want)
			}
		})
	}
}

func TestListAndCodesAgree(t *testing.T) {
	list := List()
	codes := Codes()
	if len(list) != len(codes) || len(list) == 0 {
		t.Fatalf("List() has %d entries, Codes() has %d", len(list), len(codes))
	}
	seen := make(map[string]bool)
	for i, lang := range list {
		if lang.Code != codes[i] {
			t.Errorf("entry %d: %s vs %s", i, lang.Code, codes[i])
		}
		if seen[lang.Code] {
			t.Errorf("duplicate code %s", lang.Code)
		}
		seen[lang.Code] = true
	}
}

func TestLabel(t *testing.T) {
	tests := []struct {
		lang Language
		want string
	}{
		{FromCode("en"), "English"},
		{FromCode("es"), "Spanish (Español)"},
		{Auto, "Auto-detect"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.lang.Label(); got != tt.want {
				t.Errorf("Label() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestToProviderFormat(t *testing.T) {
	tests := []struct {
		code     string
		provider string
		want     string
	}{
		{"en", "whisper-cpp", "en"},
		{"", "whisper-cpp", "auto"},
		{"en", "openai", "en"},
		{"", "openai", ""},
		{"", "groq", ""},
		{"en", "deepgram", "en-US"},
		{"pt", "deepgram", "pt-BR"},
		{"zh", "deepgram", "zh-CN"},
		{"fr", "deepgram", "fr"},
		{"", "deepgram", ""},
		{"en", "elevenlabs", "en"},
		{"de", "http", "de"},
	}

	for _, tt := range tests {
		t.Run(tt.code+"_"+tt.provider, func(t *testing.T) {
			if got := ToProviderFormat(tt.code, tt.provider); got != tt.want {
				t.Errorf("ToProviderFormat(%q, %q) = %q, want %q", tt.code, tt.provider, got, tt.want)
			}
		})
	}
}
