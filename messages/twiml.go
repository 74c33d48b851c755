package messages

import (
	"encoding/xml"
	"strings"

	"github.com/room4-2/serviceswarm/dialogue"
)

// ContentTypeXML is the content type Twilio expects for TwiML
const ContentTypeXML = "text/xml"

// Response is the TwiML document root
type Response struct {
	XMLName xml.Name      `xml:"Response"`
	Verbs   []interface{}
}

// Say speaks text to the caller
type Say struct {
	XMLName  xml.Name `xml:"Say"`
	Voice    string   `xml:"voice,attr,omitempty"`
	Language string   `xml:"language,attr,omitempty"`
	Text     string   `xml:",chardata"`
}

// Gather listens for speech and posts the result to Action
type Gather struct {
	XMLName       xml.Name `xml:"Gather"`
	Input         string   `xml:"input,attr"`
	Action        string   `xml:"action,attr"`
	Method        string   `xml:"method,attr"`
	SpeechTimeout string   `xml:"speechTimeout,attr,omitempty"`
	Say           *Say
}

// Record records the caller and posts the recording to Action
type Record struct {
	XMLName     xml.Name `xml:"Record"`
	Action      string   `xml:"action,attr"`
	Method      string   `xml:"method,attr"`
	MaxLength   int      `xml:"maxLength,attr,omitempty"`
	FinishOnKey string   `xml:"finishOnKey,attr,omitempty"`
	PlayBeep    bool     `xml:"playBeep,attr"`
}

// Redirect continues the call at URL when the previous verb ends without input
type Redirect struct {
	XMLName xml.Name `xml:"Redirect"`
	Method  string   `xml:"method,attr,omitempty"`
	URL     string   `xml:",chardata"`
}

// Hangup ends the call
type Hangup struct {
	XMLName xml.Name `xml:"Hangup"`
}

// Renderer turns dialogue directives into TwiML
type Renderer struct {
	Voice         string
	Language      string
	BaseURL       string // prefix for action URLs; relative when empty
	MaxRecordSecs int
}

// NewRenderer creates a Renderer
func NewRenderer(voice, baseURL string) *Renderer {
	return &Renderer{
		Voice:         voice,
		Language:      "en-US",
		BaseURL:       strings.TrimRight(baseURL, "/"),
		MaxRecordSecs: 60,
	}
}

// Build maps d onto TwiML verbs
func (r *Renderer) Build(d dialogue.Directive) *Response {
	resp := &Response{}
	if d.Say != "" {
		resp.Verbs = append(resp.Verbs, r.say(d.Say))
	}

	switch d.Action {
	case dialogue.ActionGather:
		g := &Gather{
			Input:         "speech",
			Action:        r.url(d.Next),
			Method:        "POST",
			SpeechTimeout: "auto",
		}
		if d.Prompt != "" {
			g.Say = r.say(d.Prompt)
		}
		// Silence falls through to an empty turn, which reprompts
		resp.Verbs = append(resp.Verbs, g, &Redirect{Method: "POST", URL: r.url(d.Next)})

	case dialogue.ActionRecord:
		if d.Prompt != "" {
			resp.Verbs = append(resp.Verbs, r.say(d.Prompt))
		}
		resp.Verbs = append(resp.Verbs, &Record{
			Action:      r.url(d.Next),
			Method:      "POST",
			MaxLength:   r.MaxRecordSecs,
			FinishOnKey: "#",
			PlayBeep:    true,
		}, &Redirect{Method: "POST", URL: r.url(d.Next)})

	default:
		if d.Prompt != "" {
			resp.Verbs = append(resp.Verbs, r.say(d.Prompt))
		}
		resp.Verbs = append(resp.Verbs, &Hangup{})
	}
	return resp
}

// Render encodes d as a TwiML document
func (r *Renderer) Render(d dialogue.Directive) ([]byte, error) {
	body, err := xml.Marshal(r.Build(d))
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), body...), nil
}

func (r *Renderer) say(text string) *Say {
	return &Say{Voice: r.Voice, Language: r.Language, Text: text}
}

func (r *Renderer) url(path string) string {
	if path == "" || r.BaseURL == "" || strings.Contains(path, "://") {
		return path
	}
	return r.BaseURL + path
}
