package notification_service

import (
	"fmt"
	"log/slog"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// SMSNotifier sends a short alert when a document in an ingestion batch
// fails outright, so clinical staff know a report never made it into the
// index. It is optional: with no credentials configured NewSMSNotifier
// returns nil and callers skip notification.
type SMSNotifier struct {
	client *twilio.RestClient
	from   string
	to     string
	logger *slog.Logger
}

func NewSMSNotifier(accountSID, authToken, from, to string, logger *slog.Logger) *SMSNotifier {
	if accountSID == "" || authToken == "" || from == "" || to == "" {
		return nil
	}
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &SMSNotifier{
		client: client,
		from:   from,
		to:     to,
		logger: logger,
	}
}

// NotifyIngestFailure is best-effort; delivery problems are logged, never
// propagated into the ingestion result.
func (n *SMSNotifier) NotifyIngestFailure(filename, reason string) {
	if n == nil {
		return
	}

	body := fmt.Sprintf("Document %q failed to ingest: %s", filename, reason)
	params := &twilioApi.CreateMessageParams{
		To:   &n.to,
		From: &n.from,
		Body: &body,
	}

	message, err := n.client.Api.CreateMessage(params)
	if err != nil {
		n.logger.Error("Failed to send ingestion failure SMS",
			slog.String("filename", filename),
			slog.String("error", err.Error()))
		return
	}

	n.logger.Info("Sent ingestion failure SMS",
		slog.String("filename", filename),
		slog.String("message_sid", stringValue(message.Sid)))
}

func stringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
