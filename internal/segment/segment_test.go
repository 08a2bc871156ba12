package segment

import (
	"reflect"
	"strings"
	"testing"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "simple sentences",
			text: "Hello world. How are you? Fine!",
			want: []string{"Hello world.", "How are you?", "Fine!"},
		},
		{
			name: "terminator runs swallowed",
			text: "Really?! Yes... absolutely.",
			want: []string{"Really?!", "Yes...", "absolutely."},
		},
		{
			name: "abbreviation does not split",
			text: "Dr. Smith arrived. He sat down.",
			want: []string{"Dr. Smith arrived.", "He sat down."},
		},
		{
			name: "decimal point does not split",
			text: "The rate is 3.14 percent. Amazing.",
			want: []string{"The rate is 3.14 percent.", "Amazing."},
		},
		{
			name: "closing quote stays with sentence",
			text: `She said "stop." Then left.`,
			want: []string{`She said "stop."`, "Then left."},
		},
		{
			name: "trailing text without terminator",
			text: "First sentence. And a trailing fragment",
			want: []string{"First sentence.", "And a trailing fragment"},
		},
		{
			name: "empty input",
			text: "   ",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Split(tt.text)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestBatch(t *testing.T) {
	tests := []struct {
		name      string
		sentences []string
		minChars  int
		want      []string
	}{
		{
			name:      "short sentences coalesce",
			sentences: []string{"One.", "Two.", "Three."},
			minChars:  12,
			want:      []string{"One. Two. Three."},
		},
		{
			name:      "boundary after threshold crossed",
			sentences: []string{"A fairly long first sentence here.", "Short."},
			minChars:  20,
			want:      []string{"A fairly long first sentence here.", "Short."},
		},
		{
			name:      "final short batch still emitted",
			sentences: []string{"This one crosses the threshold easily.", "Tail."},
			minChars:  10,
			want:      []string{"This one crosses the threshold easily.", "Tail."},
		},
		{
			name:      "blank sentences dropped",
			sentences: []string{"", "  ", "Real."},
			minChars:  3,
			want:      []string{"Real."},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Batch(tt.sentences, tt.minChars)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestBatchOrderPreserved(t *testing.T) {
	sentences := []string{
		"Alpha is first.",
		"Bravo is second.",
		"Charlie is third.",
		"Delta is fourth.",
	}
	batches := Batch(sentences, 25)

	joined := strings.Join(batches, " ")
	lastIdx := -1
	for _, s := range sentences {
		idx := strings.Index(joined, s)
		if idx < 0 {
			t.Fatalf("Expected sentence %q in batches, got %q", s, batches)
		}
		if idx < lastIdx {
			t.Errorf("Expected sentence order preserved, %q appeared out of order", s)
		}
		lastIdx = idx
	}
}

func TestBatchText(t *testing.T) {
	t.Run("whole text when no sentences found", func(t *testing.T) {
		got := BatchText("no terminator at all", 60)
		want := []string{"no terminator at all"}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("Expected %q, got %q", want, got)
		}
	})

	t.Run("empty text yields nothing", func(t *testing.T) {
		if got := BatchText("  \n ", 60); got != nil {
			t.Errorf("Expected no batches, got %q", got)
		}
	})

	t.Run("default threshold applied for zero", func(t *testing.T) {
		got := BatchText("One. Two.", 0)
		if len(got) != 1 {
			t.Errorf("Expected 1 batch, got %d: %q", len(got), got)
		}
	})
}
