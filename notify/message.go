package notify

import (
	"fmt"
	"html"
	"strings"

	"github.com/harshach55/AssistQR/models"
)

// SMSBudget is the single-segment length ceiling for outbound alert texts
const SMSBudget = 160

const smsSignature = "-AssistQR"

// MapsLink returns a google maps link for a report's coordinates, or "" when
// no coordinates were supplied
func MapsLink(report models.AccidentReport) string {
	if !report.HasCoordinates() {
		return ""
	}
	return fmt.Sprintf("https://maps.google.com/?q=%.5f,%.5f", *report.Latitude, *report.Longitude)
}

// BuildSMSBody assembles the alert text for one report. The header, vehicle
// identity, timestamp and maps link are never modified; the helper note and
// manual-location text are truncated as needed, note first, to stay within
// SMSBudget.
func BuildSMSBody(vehicle models.Vehicle, report models.AccidentReport) string {
	sep := "\n"

	parts := []string{
		"ACCIDENT ALERT",
		fmt.Sprintf("%s %s %s", vehicle.Color, vehicle.Model, vehicle.Plate),
		report.CreatedAt.Time().UTC().Format("02Jan 15:04"),
	}
	if link := MapsLink(report); link != "" {
		parts = append(parts, link)
	}

	used := len(strings.Join(parts, sep)) + len(sep) + len(smsSignature)
	remaining := SMSBudget - used

	// location gets space preference over the note
	parts, remaining = appendTruncated(parts, report.ManualLocation, sep, remaining)
	parts, _ = appendTruncated(parts, report.HelperNote, sep, remaining)

	parts = append(parts, smsSignature)
	return strings.Join(parts, sep)
}

func appendTruncated(parts []string, text, sep string, remaining int) ([]string, int) {
	if text == "" || remaining <= len(sep) {
		return parts, remaining
	}
	avail := remaining - len(sep)
	if len(text) > avail {
		text = text[:avail]
	}
	return append(parts, text), remaining - len(sep) - len(text)
}

// BuildEmailBodies returns the plain-text and HTML renditions of the alert
// email for one report
func BuildEmailBodies(vehicle models.Vehicle, report models.AccidentReport, contactName string) (string, string) {
	identity := fmt.Sprintf("%s %s (plate %s)", vehicle.Color, vehicle.Model, vehicle.Plate)
	timestamp := report.CreatedAt.Time().UTC().Format("02 Jan 2006 15:04 MST")
	mapsLink := MapsLink(report)

	var plain strings.Builder
	fmt.Fprintf(&plain, "Hi %s,\n\n", contactName)
	fmt.Fprintf(&plain, "An accident involving %s was just reported at %s.\n\n", identity, timestamp)
	if mapsLink != "" {
		fmt.Fprintf(&plain, "Location: %s\n", mapsLink)
	}
	if report.ManualLocation != "" {
		fmt.Fprintf(&plain, "Reported location: %s\n", report.ManualLocation)
	}
	if report.HelperNote != "" {
		fmt.Fprintf(&plain, "Note from the reporter: %s\n", report.HelperNote)
	}
	for _, img := range report.Images {
		fmt.Fprintf(&plain, "Photo: %s\n", img)
	}
	fmt.Fprintf(&plain, "\nYou are receiving this because you are listed as an emergency contact for this vehicle.\n")

	var htmlBody strings.Builder
	htmlBody.WriteString("<div style=\"font-family:sans-serif\">")
	htmlBody.WriteString("<h2 style=\"color:#c0392b\">Accident Alert</h2>")
	fmt.Fprintf(&htmlBody, "<p>Hi %s,</p>", html.EscapeString(contactName))
	fmt.Fprintf(&htmlBody, "<p>An accident involving <strong>%s</strong> was just reported at %s.</p>",
		html.EscapeString(identity), timestamp)
	if mapsLink != "" {
		fmt.Fprintf(&htmlBody, "<p><a href=%q style=\"background:#c0392b;color:#fff;padding:10px 16px;text-decoration:none;border-radius:4px\">Open location in Maps</a></p>", mapsLink)
	}
	if report.ManualLocation != "" {
		fmt.Fprintf(&htmlBody, "<p><strong>Reported location:</strong> %s</p>", html.EscapeString(report.ManualLocation))
	}
	if report.HelperNote != "" {
		fmt.Fprintf(&htmlBody, "<p><strong>Note from the reporter:</strong> %s</p>", html.EscapeString(report.HelperNote))
	}
	for _, img := range report.Images {
		fmt.Fprintf(&htmlBody, "<p><a href=%q>View photo</a></p>", img)
	}
	htmlBody.WriteString("<p style=\"color:#777;font-size:12px\">You are receiving this because you are listed as an emergency contact for this vehicle.</p>")
	htmlBody.WriteString("</div>")

	return plain.String(), htmlBody.String()
}

// EmailSubject is the subject line used for every alert email
func EmailSubject(vehicle models.Vehicle) string {
	return fmt.Sprintf("Accident reported for vehicle %s", vehicle.Plate)
}
