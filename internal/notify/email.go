package notify

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"

	"idvet/internal/job"
	"idvet/internal/report"
	"idvet/pkg/email"
)

const defaultSendGridURL = "https://api.sendgrid.com/v3/mail/send"

// EmailNotifier mails the PDF report through the SendGrid v3 API. Only
// completed jobs with a notification address produce mail; failed jobs are
// reported through the callback channel instead.
type EmailNotifier struct {
	sendURL   string
	apiKey    string
	fromEmail string
	reports   report.ArtifactStore
	client    *http.Client
}

func NewEmailNotifier(sendURL, apiKey, fromEmail string, reports report.ArtifactStore, client *http.Client) *EmailNotifier {
	if sendURL == "" {
		sendURL = defaultSendGridURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &EmailNotifier{
		sendURL:   sendURL,
		apiKey:    apiKey,
		fromEmail: fromEmail,
		reports:   reports,
		client:    client,
	}
}

type sendGridMail struct {
	Personalizations []sendGridPersonalization `json:"personalizations"`
	From             sendGridAddress           `json:"from"`
	Subject          string                    `json:"subject"`
	Content          []sendGridContent         `json:"content"`
	Attachments      []sendGridAttachment      `json:"attachments"`
}

type sendGridPersonalization struct {
	To []sendGridAddress `json:"to"`
}

type sendGridAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type sendGridContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type sendGridAttachment struct {
	Content     string `json:"content"`
	Type        string `json:"type"`
	Filename    string `json:"filename"`
	Disposition string `json:"disposition"`
}

func (n *EmailNotifier) Notify(ctx context.Context, j job.Job) error {
	if j.NotificationEmail == "" || j.Status != job.StatusCompleted {
		return nil
	}

	pdf, err := n.reports.Load(ctx, j.ID, report.FormatPDF)
	if err != nil {
		return fmt.Errorf("load report pdf: %w", err)
	}

	mail := sendGridMail{
		Personalizations: []sendGridPersonalization{
			{To: []sendGridAddress{{
				Email: j.NotificationEmail,
				Name:  email.DisplayName(j.NotificationEmail),
			}}},
		},
		From:    sendGridAddress{Email: n.fromEmail},
		Subject: fmt.Sprintf("KYC Report %s", j.ID),
		Content: []sendGridContent{
			{
				Type:  "text/plain",
				Value: fmt.Sprintf("Your KYC report %s is attached.\n\nThis is an automated message.", j.ID),
			},
		},
		Attachments: []sendGridAttachment{
			{
				Content:     base64.StdEncoding.EncodeToString(pdf),
				Type:        "application/pdf",
				Filename:    fmt.Sprintf("kyc_report_%s.pdf", j.ID),
				Disposition: "attachment",
			},
		},
	}

	payload, err := json.Marshal(mail)
	if err != nil {
		return fmt.Errorf("encode mail: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.sendURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build mail request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+n.apiKey)

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("sendgrid returned status %d", resp.StatusCode)
	}
	return nil
}
