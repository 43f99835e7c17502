package domain

import "testing"

func TestParseSentimentKnownLabels(t *testing.T) {
	cases := []struct {
		raw  string
		want Sentiment
	}{
		{"positive", SentimentPositive},
		{"negative", SentimentNegative},
		{"neutral", SentimentNeutral},
		{"POSITIVE", SentimentPositive},
		{`"POSITIVE"`, SentimentPositive},
		{`  "Negative" `, SentimentNegative},
		{"'neutral'", SentimentNeutral},
	}
	for _, c := range cases {
		got, ok := ParseSentiment(c.raw)
		if !ok {
			t.Fatalf("ParseSentiment(%q) reported unknown label", c.raw)
		}
		if got != c.want {
			t.Fatalf("ParseSentiment(%q) = %s, expected %s", c.raw, got, c.want)
		}
	}
}

func TestParseSentimentFallsBackToNeutral(t *testing.T) {
	for _, raw := range []string{"", "mixed", "unresolved", "positivo", "4"} {
		got, ok := ParseSentiment(raw)
		if ok {
			t.Fatalf("ParseSentiment(%q) accepted unknown label", raw)
		}
		if got != SentimentNeutral {
			t.Fatalf("ParseSentiment(%q) = %s, expected neutral fallback", raw, got)
		}
	}
}
