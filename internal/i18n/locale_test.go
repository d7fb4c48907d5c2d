package i18n

import "testing"

func TestResolve(t *testing.T) {
	cases := map[string]Locale{
		"ar":    AR,
		"ar-EG": AR,
		"fr":    FR,
		"fr-CA": FR,
		"en":    EN,
		"en-US": EN,
		"de":    EN,
		"":      EN,
		"far":   EN,
	}
	for code, want := range cases {
		if got := Resolve(code); got != want {
			t.Errorf("Resolve(%q) = %s, want %s", code, got, want)
		}
	}
}

func TestText_AllKeysTranslated(t *testing.T) {
	for k := Key(0); k < numKeys; k++ {
		for l := Locale(0); l < numLocales; l++ {
			if Text(k, l) == "" {
				t.Errorf("missing text for key %d locale %s", k, l)
			}
		}
	}
}

func TestText_RequiredStrings(t *testing.T) {
	if got := Text(BuyButton, EN); got != "🛒 Buy on Amazon" {
		t.Errorf("unexpected buy label: %q", got)
	}
	if got := Text(Processing, FR); got != "⏳ Analyse..." {
		t.Errorf("unexpected processing text: %q", got)
	}
}

func TestText_OutOfRange(t *testing.T) {
	if Text(numKeys, EN) != "" {
		t.Error("expected empty text for unknown key")
	}
	if Text(Welcome, Locale(42)) != Text(Welcome, EN) {
		t.Error("expected English fallback for unknown locale")
	}
}

func TestLocaleString(t *testing.T) {
	if EN.String() != "en" || AR.String() != "ar" || FR.String() != "fr" {
		t.Error("unexpected locale names")
	}
}
