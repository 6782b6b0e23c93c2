package service

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"
	"time"

	"smartparking/internal/db"
	"smartparking/internal/entities"
)

//go:embed templates/booking_email.html
var templateFS embed.FS

const (
	receiptTimeLayout = "02 Jan 2006 15:04 MST"
	receiptRule       = "----------------------------------------"
)

// ReceiptFormatter renders bookings as a downloadable text ticket and as an
// HTML email body. It never modifies the booking it is given.
type ReceiptFormatter struct {
	loc  *time.Location
	tmpl *template.Template
}

func NewReceiptFormatter() *ReceiptFormatter {
	loc, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		loc = time.FixedZone("IST", 5*60*60+30*60) // fallback IST
	}
	return &ReceiptFormatter{
		loc:  loc,
		tmpl: template.Must(template.ParseFS(templateFS, "templates/booking_email.html")),
	}
}

func (f *ReceiptFormatter) Data(b db.Booking, lot db.ParkingLot) entities.ReceiptData {
	return entities.ReceiptData{
		BookingID:          b.ID,
		LotName:            lot.Name,
		LotAddress:         lot.Address,
		SpotLabel:          b.SpotLabel,
		StartTimeFormatted: b.StartTime.In(f.loc).Format(receiptTimeLayout),
		EndTimeFormatted:   b.EndTime.In(f.loc).Format(receiptTimeLayout),
		DurationHours:      b.DurationHours,
		AmountFormatted:    fmt.Sprintf("₹%.2f", b.Amount),
		Status:             string(b.Status),
		CurrentYear:        time.Now().In(f.loc).Year(),
	}
}

// Format returns the plain-text ticket.
func (f *ReceiptFormatter) Format(b db.Booking, lot db.ParkingLot) []byte {
	d := f.Data(b, lot)
	lines := []string{
		"Smart Parking Ticket",
		receiptRule,
		row("Booking ID", d.BookingID),
		row("Parking Lot", d.LotName),
		row("Address", d.LotAddress),
		row("Spot Number", d.SpotLabel),
		row("Start Time", d.StartTimeFormatted),
		row("End Time", d.EndTimeFormatted),
		row("Duration", fmt.Sprintf("%d h", d.DurationHours)),
		row("Total Amount", d.AmountFormatted),
		row("Status", d.Status),
		receiptRule,
	}
	return []byte(strings.Join(lines, "\n") + "\n")
}

func (f *ReceiptFormatter) HTML(b db.Booking, lot db.ParkingLot) (string, error) {
	var buf bytes.Buffer
	if err := f.tmpl.Execute(&buf, f.Data(b, lot)); err != nil {
		return "", fmt.Errorf("rendering receipt for booking %s: %w", b.ID, err)
	}
	return buf.String(), nil
}

func ReceiptFileName(b db.Booking) string {
	return "parking-ticket-" + b.ID + ".txt"
}

func row(label, value string) string {
	return fmt.Sprintf("%-14s%s", label+":", value)
}
