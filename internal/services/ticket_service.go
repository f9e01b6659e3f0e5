package services

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"busyatri/internal/domain"
	"busyatri/internal/domain/models"
	"busyatri/internal/utils"

	"github.com/phpdave11/gofpdf"
)

// TicketService renders printable documents for a booking.
type TicketService struct {
	Store  Store
	Loader func(ctx context.Context, bookingID string) (models.BookingDetail, error)
}

// GenerateETicket returns the PDF bytes and a download filename.
func (s TicketService) GenerateETicket(ctx context.Context, bookingID string) ([]byte, string, error) {
	d, err := s.load(ctx, bookingID)
	if err != nil {
		return nil, "", err
	}
	utils.LogEvent(domain.FromContext(ctx).RequestID, "ticket", "generate_eticket", "booking_id="+d.ID)
	return buildETicketPDF(d)
}

// GenerateReceipt returns a payment receipt for the booking total.
func (s TicketService) GenerateReceipt(ctx context.Context, bookingID string) ([]byte, string, error) {
	d, err := s.load(ctx, bookingID)
	if err != nil {
		return nil, "", err
	}
	utils.LogEvent(domain.FromContext(ctx).RequestID, "ticket", "generate_receipt", "booking_id="+d.ID)
	return buildReceiptPDF(d)
}

func (s TicketService) load(ctx context.Context, bookingID string) (models.BookingDetail, error) {
	bookingID = strings.TrimSpace(bookingID)
	if bookingID == "" {
		return models.BookingDetail{}, domain.ValidationError{Field: "bookingId", Msg: "required"}
	}
	if s.Loader != nil {
		return s.Loader(ctx, bookingID)
	}
	if s.Store == nil {
		return models.BookingDetail{}, domain.InternalError{Msg: "ticket store not configured"}
	}
	b, err := s.Store.GetBooking(ctx, bookingID)
	if err != nil {
		return models.BookingDetail{}, storeErr("ticket", err)
	}
	d := models.BookingDetail{Booking: b}
	trip, err := s.Store.GetTrip(ctx, b.TripID)
	if err != nil && !domain.IsNotFound(err) {
		return models.BookingDetail{}, storeErr("ticket", err)
	}
	if err == nil {
		d.Trip = models.SummaryOf(trip)
	}
	return d, nil
}

func buildETicketPDF(d models.BookingDetail) ([]byte, string, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("E-Ticket", false)
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "BUS YATRI E-TICKET")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 12)
	lines := []string{
		fmt.Sprintf("Passenger   : %s", safe(d.PassengerName, "-")),
		fmt.Sprintf("Route       : %s -> %s", safe(d.Trip.Source, "-"), safe(d.Trip.Destination, "-")),
		fmt.Sprintf("Date/Time   : %s %s", safe(d.Trip.Date, "-"), safe(utils.NormalizeClock(d.Trip.DepartureTime), "")),
		fmt.Sprintf("Seats       : %s", safe(utils.JoinSeats(d.SeatNumbers), "-")),
		fmt.Sprintf("Total       : %s", utils.FormatRupeePlain(d.TotalPrice)),
		fmt.Sprintf("Booked at   : %s", utils.FormatDateTime(d.CreatedAt)),
		fmt.Sprintf("Booking ID  : %s", d.ID),
	}
	for _, s := range lines {
		pdf.Cell(0, 7, s)
		pdf.Ln(7)
	}

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "I", 10)
	pdf.MultiCell(0, 6, fmt.Sprintf("Valid for %d seat(s). Please show this ticket when boarding.", len(d.SeatNumbers)), "", "", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, "", domain.InternalError{Msg: "render e-ticket", Err: err}
	}
	filename := fmt.Sprintf("ETICKET_%s_%s.pdf", safeFilenamePart(shortID(d.ID)), safeFilenamePart(d.PassengerName))
	return buf.Bytes(), filename, nil
}

func buildReceiptPDF(d models.BookingDetail) ([]byte, string, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Receipt", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "RECEIPT")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 7, "Receipt No : RCPT-"+safeFilenamePart(shortID(d.ID)))
	pdf.Ln(7)
	pdf.Cell(0, 7, "Issued     : "+utils.FormatDateTime(d.CreatedAt))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 7, "Billed to: "+safe(d.PassengerName, "-"))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "", 11)
	desc := fmt.Sprintf("Bus ticket %s -> %s (%s) seats %s",
		safe(d.Trip.Source, "-"), safe(d.Trip.Destination, "-"),
		safe(d.Trip.Date, "-"), safe(utils.JoinSeats(d.SeatNumbers), "-"),
	)
	pdf.MultiCell(0, 6, desc, "", "", false)
	pdf.Ln(2)
	pdf.Cell(0, 6, fmt.Sprintf("%d x %s", len(d.SeatNumbers), utils.FormatRupeePlain(d.Trip.Price)))
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "Total: "+utils.FormatRupeePlain(d.TotalPrice))
	pdf.Ln(12)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, "", domain.InternalError{Msg: "render receipt", Err: err}
	}
	filename := fmt.Sprintf("RECEIPT_%s.pdf", safeFilenamePart(shortID(d.ID)))
	return buf.Bytes(), filename, nil
}

func safe(v, fallback string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return fallback
	}
	return v
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func safeFilenamePart(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "NA"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "_", "\\", "_", ":", "_", "*", "_", "?", "_", "\"", "_", "<", "_", ">", "_", "|", "_")
	s = replacer.Replace(s)
	if len(s) > 40 {
		s = s[:40]
	}
	return s
}
