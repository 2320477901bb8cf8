package services

import (
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/maisha0055/Shohojogi-sub000/internal/models"
	"github.com/maisha0055/Shohojogi-sub000/internal/utils"
)

/*
Notifier sends best-effort SMS and email. Either client may be nil (local
development without Twilio or SendGrid credentials); a send is then skipped
with a log line instead of failing the triggering request. Nothing here
returns an error to callers.
*/
type Notifier struct {
	sms   *twilio.RestClient
	email *sendgrid.Client

	fromPhone string
	fromEmail string
	fromName  string
}

func NewNotifier(sms *twilio.RestClient, email *sendgrid.Client, fromPhone, fromEmail, fromName string) *Notifier {
	return &Notifier{
		sms:       sms,
		email:     email,
		fromPhone: fromPhone,
		fromEmail: fromEmail,
		fromName:  fromName,
	}
}

func (n *Notifier) sendSMS(to, body string) {
	if n.sms == nil {
		utils.Logger.Debugf("Twilio client not configured, skipping SMS to %s", to)
		return
	}
	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(n.fromPhone)
	params.SetBody(body)

	if _, err := n.sms.Api.CreateMessage(params); err != nil {
		utils.Logger.WithError(err).Warnf("Failed to send SMS to %s", to)
	}
}

func (n *Notifier) sendEmail(toName, toEmail, subject, plain, html string) {
	if n.email == nil {
		utils.Logger.Debugf("SendGrid client not configured, skipping email to %s", toEmail)
		return
	}
	from := mail.NewEmail(n.fromName, n.fromEmail)
	to := mail.NewEmail(toName, toEmail)
	message := mail.NewSingleEmail(from, subject, to, plain, html)

	if _, err := n.email.Send(message); err != nil {
		utils.Logger.WithError(err).Warnf("Failed to send email to %s", toEmail)
	}
}

// NewJobPosted texts workers that a job was posted in their category. Meant
// for dispatchable workers who were not reached over a live connection.
func (n *Notifier) NewJobPosted(workers []*models.Worker, job *models.JobRequest) {
	body := fmt.Sprintf(
		"%s: new job request near %s. Open the app to send your estimate.",
		n.fromName, job.Address,
	)
	for _, w := range workers {
		n.sendSMS(w.PhoneNumber, body)
	}
}

// WorkerSelected tells the winning worker by SMS and the customer by email
// that the assignment went through.
func (n *Notifier) WorkerSelected(worker *models.Worker, customer *models.Customer, job *models.JobRequest, est *models.Estimate) {
	n.sendSMS(worker.PhoneNumber, fmt.Sprintf(
		"%s: you were selected for a job at %s for %.2f. Open the app for details.",
		n.fromName, job.Address, est.Price,
	))

	if customer != nil {
		subject := fmt.Sprintf("%s: %s accepted your job request", n.fromName, worker.DisplayName())
		plain := fmt.Sprintf(
			"Hi %s,\n\n%s (rated %.1f) will handle your request at %s for %.2f. You can reach them at %s.\n",
			customer.FirstName, worker.DisplayName(), worker.RatingAverage, job.Address, est.Price, worker.PhoneNumber,
		)
		html := fmt.Sprintf(
			"<p>Hi %s,</p><p><strong>%s</strong> (rated %.1f) will handle your request at %s for %.2f.</p><p>You can reach them at %s.</p>",
			customer.FirstName, worker.DisplayName(), worker.RatingAverage, job.Address, est.Price, worker.PhoneNumber,
		)
		n.sendEmail(customer.DisplayName(), customer.Email, subject, plain, html)
	}
}

// JobCompleted emails the customer when the assigned worker marks the job
// done.
func (n *Notifier) JobCompleted(customer *models.Customer, job *models.JobRequest) {
	if customer == nil {
		return
	}
	subject := fmt.Sprintf("%s: your job request is complete", n.fromName)
	plain := fmt.Sprintf(
		"Hi %s,\n\nyour job request at %s was marked completed. Please rate your experience in the app.\n",
		customer.FirstName, job.Address,
	)
	html := fmt.Sprintf(
		"<p>Hi %s,</p><p>your job request at %s was marked completed. Please rate your experience in the app.</p>",
		customer.FirstName, job.Address,
	)
	n.sendEmail(customer.DisplayName(), customer.Email, subject, plain, html)
}
