package notify

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/wolfman30/appointment-assistant/internal/appointments"
)

// Links are the self-service URLs embedded in patient emails.
type Links struct {
	CancelURL     string
	RescheduleURL string
}

const (
	subjectConfirmation = "Appointment Confirmation"
	subjectCancellation = "Appointment Cancellation Confirmation"
)

func reminderSubject(window appointments.ReminderWindow) string {
	if window == appointments.ReminderDayBefore {
		return "Appointment Reminder - 24 Hours Before"
	}
	return "Appointment Reminder - 1 Hour Before"
}

type emailFields struct {
	name     string
	doctor   string
	date     string
	time     string
	location string
}

func fieldsFor(a appointments.Appointment, loc *time.Location) emailFields {
	if loc == nil {
		loc = time.UTC
	}
	start := a.Start.In(loc)
	doctor := a.DoctorName
	if doctor == "" {
		doctor = "Your Doctor"
	}
	location := a.Location
	if location == "" {
		location = "Main Office"
	}
	return emailFields{
		name:     a.PatientName,
		doctor:   doctor,
		date:     start.Format("January 02, 2006"),
		time:     start.Format("03:04 PM"),
		location: location,
	}
}

func bookingConfirmationEmail(a appointments.Appointment, loc *time.Location) EmailMessage {
	f := fieldsFor(a, loc)
	body := fmt.Sprintf(`Dear %s,

Your appointment has been confirmed.

Doctor: %s
Date: %s
Time: %s
Location: %s

Please arrive 10 minutes early. We look forward to seeing you.`, f.name, f.doctor, f.date, f.time, f.location)

	return EmailMessage{
		To:      a.PatientEmail,
		ToName:  a.PatientName,
		Subject: subjectConfirmation,
		Body:    body,
		HTML:    htmlEmail("Your appointment is confirmed", f, ""),
	}
}

func cancellationEmail(a appointments.Appointment, loc *time.Location, links Links) EmailMessage {
	f := fieldsFor(a, loc)
	body := fmt.Sprintf(`Dear %s,

Your appointment with %s on %s at %s has been cancelled.`, f.name, f.doctor, f.date, f.time)
	var action string
	if links.RescheduleURL != "" {
		body += "\n\nBook a new time: " + links.RescheduleURL
		action = actionLink(links.RescheduleURL, "Book a new appointment")
	}

	return EmailMessage{
		To:      a.PatientEmail,
		ToName:  a.PatientName,
		Subject: subjectCancellation,
		Body:    body,
		HTML:    htmlEmail("Your appointment was cancelled", f, action),
	}
}

func reminderEmail(a appointments.Appointment, window appointments.ReminderWindow, loc *time.Location, links Links) EmailMessage {
	f := fieldsFor(a, loc)
	lead := "in 1 hour"
	if window == appointments.ReminderDayBefore {
		lead = "tomorrow"
	}
	body := fmt.Sprintf(`Dear %s,

This is a reminder that your appointment with %s is %s.

Date: %s
Time: %s
Location: %s`, f.name, f.doctor, lead, f.date, f.time, f.location)
	var action string
	if links.CancelURL != "" {
		body += "\n\nCan't make it? Cancel here: " + links.CancelURL
		action = actionLink(links.CancelURL, "Cancel appointment")
	}

	return EmailMessage{
		To:      a.PatientEmail,
		ToName:  a.PatientName,
		Subject: reminderSubject(window),
		Body:    body,
		HTML:    htmlEmail("Your appointment is "+lead, f, action),
	}
}

func htmlEmail(heading string, f emailFields, action string) string {
	var rows strings.Builder
	for _, row := range [][2]string{{"Doctor", f.doctor}, {"Date", f.date}, {"Time", f.time}, {"Location", f.location}} {
		fmt.Fprintf(&rows, `<tr><td style="padding: 8px; border-bottom: 1px solid #e5e7eb;"><strong>%s:</strong></td><td style="padding: 8px; border-bottom: 1px solid #e5e7eb;">%s</td></tr>`,
			row[0], html.EscapeString(row[1]))
	}
	return fmt.Sprintf(`<div style="font-family: sans-serif; max-width: 600px;">
<h2 style="color: #1f2937;">%s</h2>
<p>Dear %s,</p>
<table style="width: 100%%; border-collapse: collapse;">%s</table>
%s
</div>`, html.EscapeString(heading), html.EscapeString(f.name), rows.String(), action)
}

func actionLink(url, label string) string {
	return fmt.Sprintf(`<p><a href="%s" style="color: #2563eb;">%s</a></p>`, html.EscapeString(url), html.EscapeString(label))
}
