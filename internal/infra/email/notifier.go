package email

import (
	"context"
	"fmt"
	"net/smtp"

	"go.uber.org/zap"
)

// SMTPNotifier mails the operations address when a job fails permanently.
// Background jobs have no user-facing surface, so this is the only direct
// failure signal outside the logs.
type SMTPNotifier struct {
	host   string
	port   int
	from   string
	to     string
	logger *zap.Logger
}

func NewSMTPNotifier(host string, port int, from, to string, logger *zap.Logger) *SMTPNotifier {
	return &SMTPNotifier{host: host, port: port, from: from, to: to, logger: logger}
}

func (n *SMTPNotifier) NotifyFailure(_ context.Context, jobID, objectKey, errorMsg string) error {
	addr := fmt.Sprintf("%s:%d", n.host, n.port)

	subject := fmt.Sprintf("Scan processing failed [Job %s]", jobID)
	body := fmt.Sprintf(
		"A scan processing job has permanently failed.\r\n\r\n"+
			"Job ID: %s\r\n"+
			"Input object: %s\r\n"+
			"Error: %s\r\n\r\n"+
			"The input object was left untouched; no derived artifacts were published.\r\n\r\n"+
			"-- scan-processing-service",
		jobID, objectKey, errorMsg,
	)

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s",
		n.from, n.to, subject, body,
	)

	err := smtp.SendMail(addr, nil, n.from, []string{n.to}, []byte(msg))
	if err != nil {
		n.logger.Error("failed to send failure notification email",
			zap.String("job_id", jobID),
			zap.Error(err),
		)
		return fmt.Errorf("send email: %w", err)
	}

	n.logger.Info("failure notification email sent",
		zap.String("job_id", jobID),
		zap.String("object_key", objectKey),
	)
	return nil
}
