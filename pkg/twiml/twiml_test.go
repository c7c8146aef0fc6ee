package twiml

import (
	"strings"
	"testing"
)

func render(t *testing.T, r *Response) string {
	t.Helper()
	out, err := r.Render()
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	return string(out)
}

func TestSpeakAndRecord(t *testing.T) {
	b := NewBuilder(DefaultVoice(), "")
	got := render(t, b.SpeakAndRecord("Can I please have your full name?", 0))

	want := `<?xml version="1.0" encoding="UTF-8"?>` + "\n" +
		`<Response><Say voice="Polly.Joanna-Neural" language="en-US">Can I please have your full name?</Say>` +
		`<Record maxLength="10" action="/handle-response?q=0" method="POST" playBeep="false"></Record></Response>`
	if got != want {
		t.Errorf("got\n%s\nwant\n%s", got, want)
	}
}

func TestSpeakHasNoRecord(t *testing.T) {
	b := NewBuilder(DefaultVoice(), "")
	r := b.Speak("The call is complete. Thank you for your time.")
	if r.Records() {
		t.Error("Speak should not record")
	}
	if strings.Contains(render(t, r), "<Record") {
		t.Error("rendered Speak contains Record")
	}
}

func TestNonDefaultPresentation(t *testing.T) {
	v := DefaultVoice()
	v.Rate = "slow"
	v.Volume = "loud"
	got := render(t, NewBuilder(v, "").Speak("hi"))

	if !strings.Contains(got, `rate="slow"`) || !strings.Contains(got, `volume="loud"`) {
		t.Errorf("non-default attributes missing: %s", got)
	}
	if strings.Contains(got, "pitch=") {
		t.Errorf("default pitch should be omitted: %s", got)
	}
}

func TestTextIsEscaped(t *testing.T) {
	got := render(t, NewBuilder(DefaultVoice(), "").Speak("Tom & Jerry <3"))
	if !strings.Contains(got, "Tom &amp; Jerry &lt;3") {
		t.Errorf("text not escaped: %s", got)
	}
}

func TestActionURL(t *testing.T) {
	b := NewBuilder(DefaultVoice(), "/calls/answer")
	if got := b.ActionURL(7); got != "/calls/answer?q=7" {
		t.Errorf("ActionURL = %q", got)
	}
}
