package devenv

import (
	"bytes"
	"strings"
	"testing"
)

func TestLinePrompterConfirm(t *testing.T) {
	cases := map[string]bool{
		"y\n":      true,
		"yes\n":    true,
		"YeS\r\n":  true,
		"y":        true,
		"n\n":      false,
		"\n":       false,
		"":         false,
		"yep\n":    false,
		"no yes\n": false,
	}

	for input, want := range cases {
		var out bytes.Buffer
		prompter := NewPrompter(strings.NewReader(input), &out)

		got, err := prompter.Confirm("Continue anyway? [y/N] ")
		if err != nil {
			t.Fatalf("prompter.Confirm(%q). %v", input, err)
		}
		if got != want {
			t.Errorf("Confirm(%q) = %v, want %v", input, got, want)
		}
		if out.String() != "Continue anyway? [y/N] " {
			t.Errorf("unexpected prompt %q", out.String())
		}
	}
}

func TestLinePrompterReadsOneLine(t *testing.T) {
	prompter := NewPrompter(strings.NewReader("n\ny\n"), nil)

	first, _ := prompter.Confirm("? ")
	second, _ := prompter.Confirm("? ")
	if first || !second {
		t.Errorf("answers should be read line by line. got %v %v", first, second)
	}
}
