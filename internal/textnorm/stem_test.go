package textnorm

import "testing"

func TestStemSuffixRules(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"aulas", "aula"},
		{"equipamentos", "equipamento"},
		{"otimas", "otima"},
		{"avaliacoes", "avaliacao"},
		{"paes", "pao"},
		{"rapidamente", "rapida"},
		{"professores", "professore"},
		{"treino", "treino"},
	}
	for _, c := range cases {
		if got := Stem(c.in); got != c.want {
			t.Fatalf("Stem(%q) = %q, expected %q", c.in, got, c.want)
		}
	}
}

func TestStemGuardKeepsShortWords(t *testing.T) {
	// Dropping the final "s" would leave a stem below the minimum
	// length, so the word must pass through unchanged.
	for _, w := range []string{"mes", "gas", "pes"} {
		if got := Stem(w); got != w {
			t.Fatalf("Stem(%q) = %q, expected unchanged", w, got)
		}
	}
}

func TestStemNoChaining(t *testing.T) {
	// "oes" fires first and the result is not re-stemmed.
	if got := Stem("licoes"); got != "licao" {
		t.Fatalf("Stem(licoes) = %q, expected licao", got)
	}
}
