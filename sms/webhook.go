package sms

import (
	"strings"

	"go.uber.org/zap"
)

// PayloadShape identifies which known webhook payload layout an inbound
// message arrived in. The shape is decided once at decode time and reused for
// the response-envelope decision, rather than re-derived from the fields.
type PayloadShape string

const (
	// ShapeTwilio is the classic form-encoded {From, Body, To} layout
	ShapeTwilio PayloadShape = "twilio"
	// ShapeTelerivet is the {from_number|from, content|message|body, phone_id|to_number|to} layout
	ShapeTelerivet PayloadShape = "telerivet"
	// ShapeGeneric is the best-effort field scrape used when no known layout matches
	ShapeGeneric PayloadShape = "generic"
)

// InboundMessage is a decoded inbound SMS, independent of gateway
type InboundMessage struct {
	Shape PayloadShape
	From  string
	To    string
	Body  string
}

// DecodeInbound selects the payload shape from which fields are present, in
// priority order: Twilio, Telerivet, then a generic scrape. The generic path
// is logged but never rejected; the body grammar check happens later.
func DecodeInbound(fields map[string]string) InboundMessage {
	if from, ok := fields["From"]; ok {
		if body, ok := fields["Body"]; ok {
			return InboundMessage{Shape: ShapeTwilio, From: from, To: fields["To"], Body: body}
		}
	}

	from := firstPresent(fields, "from_number", "from")
	body := firstPresent(fields, "content", "message", "body")
	if from != "" && body != "" {
		return InboundMessage{
			Shape: ShapeTelerivet,
			From:  from,
			To:    firstPresent(fields, "phone_id", "to_number", "to"),
			Body:  body,
		}
	}

	msg := scrapeFields(fields)
	zap.S().Warnw("unknown sms webhook payload shape, scraped fields",
		"from", msg.From,
		"fieldCount", len(fields),
	)
	return msg
}

func firstPresent(fields map[string]string, names ...string) string {
	for _, n := range names {
		if v, ok := fields[n]; ok && v != "" {
			return v
		}
	}
	return ""
}

// scrapeFields guesses sender and body from whatever field names the gateway
// used. Best effort only.
func scrapeFields(fields map[string]string) InboundMessage {
	msg := InboundMessage{Shape: ShapeGeneric}
	for name, value := range fields {
		lower := strings.ToLower(name)
		switch {
		case msg.From == "" && (strings.Contains(lower, "from") || strings.Contains(lower, "sender")):
			msg.From = value
		case msg.To == "" && (strings.Contains(lower, "to") || strings.Contains(lower, "recipient")):
			msg.To = value
		case msg.Body == "" && (strings.Contains(lower, "body") || strings.Contains(lower, "message") ||
			strings.Contains(lower, "content") || strings.Contains(lower, "text")):
			msg.Body = value
		}
	}
	return msg
}
