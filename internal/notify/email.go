package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/Guizzs26/go-sync-hr/internal/models"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/osteele/liquid"
)

// SESAPI is the subset of the SES v2 client the email channel uses.
type SESAPI interface {
	SendEmail(ctx context.Context, in *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

type emailTemplate struct {
	subject string
	body    string
}

var emailTemplates = map[models.EventKind]emailTemplate{
	models.EventBlocked: {
		subject: "[HR Sync] Import blocked: run #{{ log_id }} still {{ status }}",
		body: `A new import was requested but run #{{ log_id }} is still {{ status }}.
Started at: {{ started_at }}
{% if status == "awaiting_approval" %}Review the pending structure change to release it.{% endif %}`,
	},
	models.EventStructureChanged: {
		subject: "[HR Sync] Approval required: {{ diffs | size }} file(s) changed structure",
		body: `Run #{{ log_id }} stopped before writing because source columns changed.
{% for d in diffs %}
File: {{ d.filename }} ({{ d.domain }})
  Added:   {{ d.added | join: ", " | default: "-" }}
  Removed: {{ d.removed | join: ", " | default: "-" }}
{% endfor %}
Approve or reject the change to continue.`,
	},
	models.EventCompleted: {
		subject: "{% assign n = errors | size %}[HR Sync] Import #{{ log_id }} completed{% if n > 0 %} with {{ n }} error(s){% endif %}",
		body: `Run #{{ log_id }} finished.
{% for d in domains %}
{{ d.domain }}: {{ d.written }} written, {{ d.skipped }} skipped{% if d.failed %} (FAILED){% endif %}{% endfor %}
{% assign n = errors | size %}{% if n > 0 %}
Errors:
{% for e in errors %}- {{ e }}
{% endfor %}{% endif %}`,
	},
	models.EventFailed: {
		subject: "[HR Sync] Import failed at {{ step }}",
		body: `Run #{{ log_id }} failed during {{ step }}.

{{ message }}`,
	},
}

// EmailChannel renders events with Liquid templates and sends them via SES.
type EmailChannel struct {
	client     SESAPI
	from       string
	recipients []string
	engine     *liquid.Engine
}

func NewEmailChannel(client SESAPI, from string, recipients []string) *EmailChannel {
	return &EmailChannel{client: client, from: from, recipients: recipients, engine: liquid.NewEngine()}
}

func (c *EmailChannel) Name() string { return "email" }

func (c *EmailChannel) Send(ctx context.Context, e models.Event) error {
	if len(c.recipients) == 0 {
		return nil
	}
	subject, body, err := c.Render(e)
	if err != nil {
		return err
	}

	_, err = c.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(c.from),
		Destination:      &types.Destination{ToAddresses: c.recipients},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(subject), Charset: aws.String("UTF-8")},
				Body: &types.Body{
					Text: &types.Content{Data: aws.String(body), Charset: aws.String("UTF-8")},
				},
			},
		},
		EmailTags: []types.MessageTag{
			{Name: aws.String("event"), Value: aws.String(strings.ReplaceAll(string(e.Kind), ".", "_"))},
		},
	})
	if err != nil {
		return fmt.Errorf("ses send: %w", err)
	}
	return nil
}

// Render returns the subject and plain-text body for e.
func (c *EmailChannel) Render(e models.Event) (string, string, error) {
	tpl, ok := emailTemplates[e.Kind]
	if !ok {
		return "", "", fmt.Errorf("no email template for %s", e.Kind)
	}
	b := bindings(e)

	subject, err := c.engine.ParseAndRenderString(tpl.subject, b)
	if err != nil {
		return "", "", fmt.Errorf("render subject: %w", err)
	}
	body, err := c.engine.ParseAndRenderString(tpl.body, b)
	if err != nil {
		return "", "", fmt.Errorf("render body: %w", err)
	}
	return strings.TrimSpace(subject), strings.TrimSpace(body), nil
}

func bindings(e models.Event) liquid.Bindings {
	b := liquid.Bindings{
		"log_id":  e.ImportLogID,
		"status":  string(e.Status),
		"message": e.Message,
		"step":    e.Step,
		"diffs":   []map[string]any{},
		"domains": []map[string]any{},
		"errors":  []string{},
	}
	if e.StartedAt != nil {
		b["started_at"] = e.StartedAt.Format("2006-01-02 15:04 MST")
	}

	diffs := make([]map[string]any, 0, len(e.Diffs))
	for _, d := range e.Diffs {
		diffs = append(diffs, map[string]any{
			"filename": d.Filename,
			"domain":   string(d.DomainType),
			"added":    d.Added,
			"removed":  d.Removed,
		})
	}
	b["diffs"] = diffs

	if e.Summary != nil {
		domains := make([]map[string]any, 0, len(e.Summary.Domains))
		for _, d := range e.Summary.Domains {
			domains = append(domains, map[string]any{
				"domain":  string(d.Domain),
				"written": d.Written,
				"skipped": d.Skipped,
				"failed":  d.Failed,
			})
		}
		b["domains"] = domains
		if e.Summary.Errors != nil {
			b["errors"] = e.Summary.Errors
		}
	}
	return b
}
