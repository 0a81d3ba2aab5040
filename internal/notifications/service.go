package notifications

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/creatorlab/viralbot/internal/models"
	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"
)

// Options configure the delivery channels. A channel with no destination is skipped.
type Options struct {
	TeamsWebhookURL   string
	NotificationEmail string
	SMTPHost          string
	SMTPPort          int
	SMTPUsername      string
	SMTPPassword      string
	DashboardURL      string
}

// Service handles sending notifications via various channels
type Service struct {
	opts   Options
	client *resty.Client
	dialer *gomail.Dialer
}

// Ensure Service implements NotificationInterface
var _ NotificationInterface = (*Service)(nil)

// TeamsMessage represents a Microsoft Teams message
type TeamsMessage struct {
	Type       string         `json:"@type"`
	Context    string         `json:"@context"`
	ThemeColor string         `json:"themeColor,omitempty"`
	Title      string         `json:"title"`
	Text       string         `json:"text"`
	Sections   []TeamsSection `json:"sections,omitempty"`
}

type TeamsSection struct {
	ActivityTitle    string      `json:"activityTitle,omitempty"`
	ActivitySubtitle string      `json:"activitySubtitle,omitempty"`
	ActivityText     string      `json:"activityText,omitempty"`
	Facts            []TeamsFact `json:"facts,omitempty"`
	Markdown         bool        `json:"markdown,omitempty"`
}

type TeamsFact struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// NewService creates a new notification service
func NewService(opts Options) *Service {
	s := &Service{
		opts:   opts,
		client: resty.New().SetTimeout(30 * time.Second),
	}
	if opts.NotificationEmail != "" {
		s.dialer = gomail.NewDialer(opts.SMTPHost, opts.SMTPPort, opts.SMTPUsername, opts.SMTPPassword)
	}
	return s
}

// Enabled reports whether any channel is configured
func (s *Service) Enabled() bool {
	return s.opts.TeamsWebhookURL != "" || s.opts.NotificationEmail != ""
}

// SendReport sends a report via configured notification channels
func (s *Service) SendReport(ctx context.Context, report *models.WeeklyReport) error {
	var errors []string

	if s.opts.TeamsWebhookURL != "" {
		if err := s.postToTeams(ctx, s.buildTeamsMessage(report)); err != nil {
			logrus.Errorf("Failed to send Teams notification: %v", err)
			errors = append(errors, fmt.Sprintf("Teams: %v", err))
		} else {
			logrus.Info("Successfully sent report to Teams")
		}
	}

	if s.opts.NotificationEmail != "" {
		if err := s.sendEmail(report); err != nil {
			logrus.Errorf("Failed to send email notification: %v", err)
			errors = append(errors, fmt.Sprintf("Email: %v", err))
		} else {
			logrus.Info("Successfully sent report via email")
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("notification errors: %s", strings.Join(errors, "; "))
	}

	return nil
}

// SendAlert posts an operational alert to Teams when configured
func (s *Service) SendAlert(ctx context.Context, alert *Alert) error {
	if s.opts.TeamsWebhookURL == "" {
		logrus.Warnf("Alert (no channel configured): %s - %s", alert.Title, alert.Message)
		return nil
	}

	message := &TeamsMessage{
		Type:       "MessageCard",
		Context:    "https://schema.org/extensions",
		ThemeColor: "D13438",
		Title:      alert.Title,
		Text:       alert.Message,
		Sections: []TeamsSection{{
			Facts: []TeamsFact{
				{Name: "Type", Value: alert.Type},
				{Name: "User", Value: alert.UserID},
			},
		}},
	}
	return s.postToTeams(ctx, message)
}

func (s *Service) postToTeams(ctx context.Context, message *TeamsMessage) error {
	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(message).
		Post(s.opts.TeamsWebhookURL)

	if err != nil {
		return fmt.Errorf("failed to send Teams message: %w", err)
	}

	if resp.StatusCode() != 200 {
		return fmt.Errorf("Teams webhook returned status %d: %s", resp.StatusCode(), string(resp.Body()))
	}

	return nil
}

func weekLabel(report *models.WeeklyReport) string {
	return fmt.Sprintf("%s to %s", report.WeekStart.Format("Jan 2"), report.WeekEnd.Format("Jan 2, 2006"))
}

func (s *Service) buildTeamsMessage(report *models.WeeklyReport) *TeamsMessage {
	message := &TeamsMessage{
		Type:       "MessageCard",
		Context:    "https://schema.org/extensions",
		ThemeColor: "E1306C",
		Title:      fmt.Sprintf("Weekly Strategy Report - %s", weekLabel(report)),
		Text:       report.Summary,
	}

	message.Sections = append(message.Sections, TeamsSection{
		ActivityTitle: "Totals",
		Facts: []TeamsFact{
			{Name: "Views", Value: fmt.Sprintf("%d", report.TotalViews)},
			{Name: "Likes", Value: fmt.Sprintf("%d", report.TotalLikes)},
			{Name: "Comments", Value: fmt.Sprintf("%d", report.TotalComments)},
			{Name: "Saves", Value: fmt.Sprintf("%d", report.TotalSaves)},
			{Name: "Shares", Value: fmt.Sprintf("%d", report.TotalShares)},
			{Name: "Avg Engagement", Value: fmt.Sprintf("%.2f%%", report.AvgEngagementRate)},
		},
		Markdown: true,
	})

	if len(report.ContentMix.ViralOpportunities) > 0 {
		var ideas []string
		for _, v := range report.ContentMix.ViralOpportunities {
			ideas = append(ideas, fmt.Sprintf("**%s** (%s) - hook: _%s_", v.Idea, v.Format, v.HookSuggestion))
		}
		message.Sections = append(message.Sections, TeamsSection{
			ActivityTitle: "Viral Opportunities",
			ActivityText:  strings.Join(ideas, "\n\n"),
			Markdown:      true,
		})
	}

	if len(report.ContentMix.NextWeekPlan) > 0 {
		var days []TeamsFact
		for _, d := range report.ContentMix.NextWeekPlan {
			days = append(days, TeamsFact{
				Name:  d.Day,
				Value: fmt.Sprintf("%s (%s, %s)", d.ContentIdea, d.Format, d.Type),
			})
		}
		message.Sections = append(message.Sections, TeamsSection{
			ActivityTitle: "Next Week",
			Facts:         days,
		})
	}

	if s.opts.DashboardURL != "" {
		message.Sections = append(message.Sections, TeamsSection{
			ActivityText: fmt.Sprintf("[Open dashboard](%s)", s.opts.DashboardURL),
			Markdown:     true,
		})
	}

	return message
}

func (s *Service) sendEmail(report *models.WeeklyReport) error {
	subject := fmt.Sprintf("Weekly Strategy Report - %s", weekLabel(report))

	htmlBody, err := s.buildEmailHTML(report)
	if err != nil {
		return fmt.Errorf("failed to build email HTML: %w", err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.opts.SMTPUsername)
	m.SetHeader("To", s.opts.NotificationEmail)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", s.buildEmailText(report))
	m.AddAlternative("text/html", htmlBody)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	return nil
}

const emailTemplate = `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Weekly Strategy Report</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        .header { background-color: #e1306c; color: white; padding: 20px; border-radius: 5px; }
        .summary { background-color: #f5f5f5; padding: 15px; margin: 20px 0; border-radius: 5px; }
        .item { border-left: 4px solid #e1306c; padding: 10px; margin: 10px 0; background-color: #fafafa; }
        .viral { border-left-color: #f77737; }
        .meta { color: #666; font-size: 0.9em; }
        td, th { padding: 4px 8px; text-align: left; }
    </style>
</head>
<body>
    <div class="header">
        <h1>Weekly Strategy Report</h1>
        <p>Week of {{.WeekStart.Format "January 2, 2006"}}</p>
    </div>

    <div class="summary">
        <p>{{.Summary}}</p>
        <p><strong>Views:</strong> {{.TotalViews}} | <strong>Saves:</strong> {{.TotalSaves}} | <strong>Shares:</strong> {{.TotalShares}} | <strong>Avg engagement:</strong> {{printf "%.2f" .AvgEngagementRate}}%</p>
    </div>

    {{if .ContentMix.WhatWorked}}
    <h2>What Worked</h2>
    {{range .ContentMix.WhatWorked}}
    <div class="item">
        <strong>{{.PostCaption | truncate 80}}</strong>
        <p>{{.Reason}}</p>
        <p class="meta">Pattern: {{.Pattern}}</p>
    </div>
    {{end}}
    {{end}}

    {{if .ContentMix.ViralOpportunities}}
    <h2>Viral Opportunities</h2>
    {{range .ContentMix.ViralOpportunities}}
    <div class="item viral">
        <strong>{{.Idea}}</strong> ({{.Format}})
        <p>Hook: <em>{{.HookSuggestion}}</em></p>
        <p class="meta">{{.WhyItFits}} Expected: {{.ExpectedOutcome}}</p>
    </div>
    {{end}}
    {{end}}

    {{if .ContentMix.NextWeekPlan}}
    <h2>Next Week</h2>
    <table>
        <tr><th>Day</th><th>Idea</th><th>Format</th><th>Hook</th><th>Type</th></tr>
        {{range .ContentMix.NextWeekPlan}}
        <tr><td>{{.Day}}</td><td>{{.ContentIdea}}</td><td>{{.Format}}</td><td>{{.Hook}}</td><td>{{.Type}}</td></tr>
        {{end}}
    </table>
    {{end}}

    <hr>
    <p><small>This report was generated automatically by viralbot.</small></p>
</body>
</html>
`

func (s *Service) buildEmailHTML(report *models.WeeklyReport) (string, error) {
	t := template.New("email").Funcs(template.FuncMap{
		"truncate": truncate,
	})

	t, err := t.Parse(emailTemplate)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, report); err != nil {
		return "", err
	}

	return buf.String(), nil
}

func (s *Service) buildEmailText(report *models.WeeklyReport) string {
	var text strings.Builder

	text.WriteString(fmt.Sprintf("Weekly Strategy Report - %s\n\n", weekLabel(report)))
	text.WriteString(report.Summary + "\n\n")

	text.WriteString("TOTALS\n")
	text.WriteString("======\n")
	text.WriteString(fmt.Sprintf("Views: %d | Likes: %d | Comments: %d | Saves: %d | Shares: %d\n",
		report.TotalViews, report.TotalLikes, report.TotalComments, report.TotalSaves, report.TotalShares))
	text.WriteString(fmt.Sprintf("Avg engagement: %.2f%%\n", report.AvgEngagementRate))

	if len(report.Recommendations) > 0 {
		text.WriteString("\nRECOMMENDATIONS\n")
		text.WriteString("===============\n")
		for i, r := range report.Recommendations {
			text.WriteString(fmt.Sprintf("%d. [%s] %s\n", i+1, r.Type, r.Text))
		}
	}

	if len(report.ContentMix.NextWeekPlan) > 0 {
		text.WriteString("\nNEXT WEEK\n")
		text.WriteString("=========\n")
		for _, d := range report.ContentMix.NextWeekPlan {
			text.WriteString(fmt.Sprintf("%s: %s (%s, %s)\n   Hook: %s\n", d.Day, d.ContentIdea, d.Format, d.Type, d.Hook))
		}
	}

	text.WriteString("\n---\nThis report was generated automatically by viralbot.\n")

	return text.String()
}

func truncate(length int, s string) string {
	runes := []rune(s)
	if len(runes) <= length {
		return s
	}
	return string(runes[:length]) + "..."
}
