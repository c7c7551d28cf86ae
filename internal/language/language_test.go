package language

import "testing"

func TestToISO2(t *testing.T) {
	cases := map[string]string{
		"en":      "en",
		"ENG":     "en",
		"english": "en",
		"fre":     "fr",
		"xx":      "xx",
		"nonsense": "",
		"":        "",
	}
	for in, want := range cases {
		if got := ToISO2(in); got != want {
			t.Errorf("ToISO2(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDisplayName(t *testing.T) {
	if got := DisplayName("deu"); got != "German" {
		t.Fatalf("DisplayName(deu) = %q", got)
	}
	if got := DisplayName(""); got != "Unknown" {
		t.Fatalf("DisplayName(empty) = %q", got)
	}
	if got := DisplayName("qq"); got != "QQ" {
		t.Fatalf("DisplayName(qq) = %q", got)
	}
}

func TestInSet(t *testing.T) {
	if !InSet("eng", []string{"en"}) {
		t.Fatal("expected eng to match en")
	}
	if InSet("de", []string{"en", "es"}) {
		t.Fatal("did not expect de to match")
	}
}
