// Package notify sends booking confirmations to residents by email and SMS.
// Everything here is best-effort: a failed notification is logged and never
// changes a booking outcome.
package notify

import (
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
	"go.uber.org/zap"

	"github.com/hapsayrizal/barangay-booking/internal/booking"
	"github.com/hapsayrizal/barangay-booking/internal/timefmt"
)

type Config struct {
	SendgridAPIKey   string
	SendgridFrom     string
	SendgridFromName string
	TwilioSID        string
	TwilioToken      string
	TwilioFrom       string
}

type Notifier struct {
	cfg    Config
	twilio *twilio.RestClient
	log    *zap.Logger
}

func New(cfg Config, log *zap.Logger) *Notifier {
	if log == nil {
		log = zap.NewNop()
	}
	n := &Notifier{cfg: cfg, log: log.Named("notify")}
	if cfg.TwilioSID != "" && cfg.TwilioToken != "" {
		n.twilio = twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: cfg.TwilioSID,
			Password: cfg.TwilioToken,
		})
	}
	return n
}

// BookingConfirmed notifies the resident of a server-confirmed booking.
// Fallback (saved-locally) bookings are not announced; the sync worker sends
// nothing either, the office follows up once the booking really lands.
func (n *Notifier) BookingConfirmed(res booking.Resident, conf booking.Confirmation) {
	if conf.Outcome != booking.OutcomeConfirmed {
		return
	}
	if err := n.sendEmail(res, conf); err != nil {
		n.log.Warn("confirmation email failed",
			zap.String("reference_no", conf.ReferenceNo),
			zap.Error(err))
	}
	if err := n.sendSMS(res, conf); err != nil {
		n.log.Warn("confirmation SMS failed",
			zap.String("reference_no", conf.ReferenceNo),
			zap.Error(err))
	}
}

func (n *Notifier) sendEmail(res booking.Resident, conf booking.Confirmation) error {
	if n.cfg.SendgridAPIKey == "" || n.cfg.SendgridFrom == "" {
		return nil
	}

	from := mail.NewEmail(n.cfg.SendgridFromName, n.cfg.SendgridFrom)
	to := mail.NewEmail(res.FullName, res.Email)
	subject := fmt.Sprintf("Appointment confirmed: %s", conf.ReferenceNo)
	body := n.confirmationText(res, conf)

	message := mail.NewSingleEmail(from, subject, to, body, "")
	resp, err := sendgrid.NewSendClient(n.cfg.SendgridAPIKey).Send(message)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid returned HTTP %d", resp.StatusCode)
	}
	return nil
}

func (n *Notifier) sendSMS(res booking.Resident, conf booking.Confirmation) error {
	if n.twilio == nil || n.cfg.TwilioFrom == "" {
		return nil
	}

	params := &openapi.CreateMessageParams{}
	params.SetTo(res.Phone)
	params.SetFrom(n.cfg.TwilioFrom)
	params.SetBody(fmt.Sprintf("Barangay JP Rizal: your appointment %s is confirmed for %s %s.",
		conf.ReferenceNo, conf.Date, conf.Time))

	_, err := n.twilio.Api.CreateMessage(params)
	return err
}

func (n *Notifier) confirmationText(res booking.Resident, conf booking.Confirmation) string {
	date := conf.Date
	if readable, err := timefmt.ReadableDate(conf.Date); err == nil {
		date = readable
	}
	tod := conf.Time
	if readable, err := timefmt.Time12h(conf.Time); err == nil {
		tod = readable
	}
	return fmt.Sprintf(
		"Good day %s,\n\nYour appointment is confirmed.\n\nReference number: %s\nDate: %s\nTime: %s\n\nPlease bring a valid ID and arrive ten minutes early.\n\nBarangay JP Rizal",
		res.FullName, conf.ReferenceNo, date, tod)
}
