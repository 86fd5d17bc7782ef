package queue

import (
	"fmt"
	"html"
	"strings"

	"github.com/iliyamo/movie-booking/internal/model"
	"github.com/iliyamo/movie-booking/internal/utils"
)

// MailNotifier e-mails a booking confirmation with the QR ticket attached.
type MailNotifier struct {
	Mailer utils.Mailer
}

// BookingConfirmed sends the confirmation for ev.
func (n MailNotifier) BookingConfirmed(ev BookingConfirmedEvent) error {
	return n.Mailer.Send(ConfirmationMail(ev))
}

// ConfirmationMail builds the confirmation message for ev.
func ConfirmationMail(ev BookingConfirmedEvent) utils.Mail {
	b := model.Booking{
		ID:      ev.BookingID,
		MovieID: ev.MovieID,
		Date:    ev.Date,
		Time:    ev.Time,
		Theater: ev.Theater,
	}
	for _, s := range ev.Seats {
		b.Seats = append(b.Seats, model.SeatID(s))
	}

	m := utils.Mail{
		To:      ev.UserEmail,
		Subject: "Booking confirmed: " + ev.MovieTitle,
		HTMLBody: fmt.Sprintf("<h2>%s</h2><p>%s, %s %s</p><p>Seats: %s</p><p>Total: Rp %d</p><p>Booking code: <b>%s</b></p>",
			html.EscapeString(ev.MovieTitle), html.EscapeString(ev.Theater), html.EscapeString(ev.Date),
			html.EscapeString(ev.Time), html.EscapeString(strings.Join(ev.Seats, ", ")), ev.TotalPrice,
			html.EscapeString(ev.BookingID)),
	}
	if png, err := utils.GenerateQRCode(b.TicketContent(), 256); err == nil {
		m.Attachments = map[string][]byte{"ticket-" + ev.BookingID + ".png": png}
	}
	return m
}
