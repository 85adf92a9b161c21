package styles

import (
	"strings"
	"testing"
)

func TestStylesKeepText(t *testing.T) {
	for name, s := range map[string]string{
		"Title":       Title.Render("hv off"),
		"Label":       Label.Render("hv off"),
		"ErrorText":   ErrorText.Render("hv off"),
		"WarningText": WarningText.Render("hv off"),
		"SuccessText": SuccessText.Render("hv off"),
		"MutedText":   MutedText.Render("hv off"),
		"HelpText":    HelpText.Render("hv off"),
		"Countdown":   Countdown.Render("hv off"),
		"Banner":      Banner.Render("hv off"),
	} {
		if !strings.Contains(s, "hv off") {
			t.Errorf("%s.Render dropped the text: %q", name, s)
		}
	}
}

func TestIndicatorsAreDistinct(t *testing.T) {
	seen := map[string]bool{}
	for _, ind := range []string{StepOK, StepFailed, StepSkipped, StepRunning} {
		if seen[ind] {
			t.Errorf("indicator %q used twice", ind)
		}
		seen[ind] = true
	}
}
