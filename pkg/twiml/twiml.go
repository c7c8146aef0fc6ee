// Package twiml renders the voice-response documents returned to the
// telephony provider's webhooks.
package twiml

import (
	"encoding/xml"
	"fmt"
	"strconv"
)

// Presentation defaults. Attributes equal to these are left out of the
// rendered document.
const (
	DefaultVoiceName = "Polly.Joanna-Neural"
	DefaultLanguage  = "en-US"
	DefaultRate      = "medium"
	DefaultPitch     = "default"
	DefaultVolume    = "default"

	// MaxRecordSeconds bounds every recorded answer.
	MaxRecordSeconds = 10

	// DefaultActionPath receives recorded answers.
	DefaultActionPath = "/handle-response"

	// ContentType is the media type of a rendered document.
	ContentType = "text/xml"
)

// Voice holds speech presentation settings.
type Voice struct {
	Name     string `yaml:"name"`
	Language string `yaml:"language"`
	Rate     string `yaml:"rate"`
	Pitch    string `yaml:"pitch"`
	Volume   string `yaml:"volume"`
}

// DefaultVoice returns the standard presentation.
func DefaultVoice() Voice {
	return Voice{
		Name:     DefaultVoiceName,
		Language: DefaultLanguage,
		Rate:     DefaultRate,
		Pitch:    DefaultPitch,
		Volume:   DefaultVolume,
	}
}

// Say speaks text.
type Say struct {
	XMLName  xml.Name `xml:"Say"`
	Voice    string   `xml:"voice,attr,omitempty"`
	Language string   `xml:"language,attr,omitempty"`
	Rate     string   `xml:"rate,attr,omitempty"`
	Pitch    string   `xml:"pitch,attr,omitempty"`
	Volume   string   `xml:"volume,attr,omitempty"`
	Text     string   `xml:",chardata"`
}

// Record captures the caller's next answer and posts it to Action.
type Record struct {
	XMLName   xml.Name `xml:"Record"`
	MaxLength int      `xml:"maxLength,attr"`
	Action    string   `xml:"action,attr"`
	Method    string   `xml:"method,attr"`
	PlayBeep  bool     `xml:"playBeep,attr"`
}

// Response is a complete voice-response document.
type Response struct {
	XMLName xml.Name `xml:"Response"`
	Say     *Say     `xml:"Say,omitempty"`
	Record  *Record  `xml:"Record,omitempty"`
}

// Render serializes the document with an XML declaration.
func (r *Response) Render() ([]byte, error) {
	body, err := xml.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal twiml: %w", err)
	}
	return append([]byte(xml.Header), body...), nil
}

// Records reports whether the document asks for another answer.
func (r *Response) Records() bool {
	return r.Record != nil
}

// Builder creates documents with a fixed presentation.
type Builder struct {
	voice  Voice
	action string
}

// NewBuilder creates a Builder. An empty action path uses DefaultActionPath.
func NewBuilder(voice Voice, actionPath string) *Builder {
	if actionPath == "" {
		actionPath = DefaultActionPath
	}
	return &Builder{voice: voice, action: actionPath}
}

// Speak returns a document that says text and records nothing.
func (b *Builder) Speak(text string) *Response {
	return &Response{Say: b.say(text)}
}

// SpeakAndRecord says text, then records the answer for turn.
func (b *Builder) SpeakAndRecord(text string, turn int) *Response {
	return &Response{
		Say: b.say(text),
		Record: &Record{
			MaxLength: MaxRecordSeconds,
			Action:    b.ActionURL(turn),
			Method:    "POST",
			PlayBeep:  false,
		},
	}
}

// ActionURL is the callback for answers to turn.
func (b *Builder) ActionURL(turn int) string {
	return b.action + "?q=" + strconv.Itoa(turn)
}

func (b *Builder) say(text string) *Say {
	s := &Say{
		Voice:    b.voice.Name,
		Language: b.voice.Language,
		Text:     text,
	}
	if b.voice.Rate != DefaultRate {
		s.Rate = b.voice.Rate
	}
	if b.voice.Pitch != DefaultPitch {
		s.Pitch = b.voice.Pitch
	}
	if b.voice.Volume != DefaultVolume {
		s.Volume = b.voice.Volume
	}
	return s
}
