// Package notify fans out new-item announcements to active subscribers.
package notify

import (
	"bytes"
	"context"
	"database/sql"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	texttemplate "text/template"

	"github.com/erazemk/lostfound/internal/mail"
	"github.com/erazemk/lostfound/internal/model"
	"github.com/erazemk/lostfound/internal/store"
)

//go:embed templates
var templateFS embed.FS

var (
	htmlTmpl = htmltemplate.Must(htmltemplate.ParseFS(templateFS, "templates/new_item.html"))
	textTmpl = texttemplate.Must(texttemplate.ParseFS(templateFS, "templates/new_item.txt"))
)

// Tag labels every new-item message.
const Tag = "new-item"

// Dispatcher sends one message per active subscriber when an item is created.
type Dispatcher struct {
	DB     *sql.DB
	Sender mail.Sender
	// BaseURL is the public site root used in links, without a trailing slash.
	BaseURL string
}

// Failure records one recipient that could not be reached.
type Failure struct {
	Email string `json:"email"`
	Err   error  `json:"-"`
}

// Report summarises one fan-out.
type Report struct {
	Attempted int       `json:"attempted"`
	Succeeded int       `json:"succeeded"`
	Failed    int       `json:"failed"`
	Failures  []Failure `json:"failures,omitempty"`
}

type messageData struct {
	Item           *model.Item
	Status         string
	Category       string
	Email          string
	ItemURL        string
	UnsubscribeURL string
}

// NotifyNewItem sends the announcement for item to every active subscriber.
// Each recipient gets exactly one attempt; a failed send is recorded in the
// report and does not stop the remaining sends. The returned error is set
// only when the subscriber list could not be read.
func (d *Dispatcher) NotifyNewItem(ctx context.Context, item *model.Item) (Report, error) {
	var report Report

	subs, err := store.ListActiveSubscriptions(ctx, d.DB)
	if err != nil {
		return report, fmt.Errorf("listing subscribers: %w", err)
	}
	if len(subs) == 0 {
		return report, nil
	}

	subject := "New item posted: " + item.Title
	for _, sub := range subs {
		report.Attempted++

		msg, err := d.message(item, sub.Email, subject)
		if err == nil {
			err = d.Sender.Send(ctx, msg)
		}
		if err != nil {
			report.Failed++
			report.Failures = append(report.Failures, Failure{Email: sub.Email, Err: err})
			slog.Warn("failed to send new item notification", "item", item.ID, "email", sub.Email, "error", err)
			continue
		}
		report.Succeeded++
	}

	slog.Info("new item notifications sent", "item", item.ID,
		"attempted", report.Attempted, "succeeded", report.Succeeded, "failed", report.Failed)
	return report, nil
}

// ItemURL returns the public link to an item's detail page.
func (d *Dispatcher) ItemURL(id int64) string {
	return d.base() + "/items/" + strconv.FormatInt(id, 10)
}

// UnsubscribeURL returns the public unsubscribe link for email.
func (d *Dispatcher) UnsubscribeURL(email string) string {
	return d.base() + "/unsubscribe/" + url.PathEscape(email)
}

func (d *Dispatcher) base() string {
	return strings.TrimRight(d.BaseURL, "/")
}

func (d *Dispatcher) message(item *model.Item, email, subject string) (mail.Message, error) {
	data := messageData{
		Item:           item,
		Status:         model.StatusLabel(item.Status),
		Category:       model.CategoryLabel(item.Category),
		Email:          email,
		ItemURL:        d.ItemURL(item.ID),
		UnsubscribeURL: d.UnsubscribeURL(email),
	}

	var html, text bytes.Buffer
	if err := htmlTmpl.Execute(&html, data); err != nil {
		return mail.Message{}, fmt.Errorf("rendering html body: %w", err)
	}
	if err := textTmpl.Execute(&text, data); err != nil {
		return mail.Message{}, fmt.Errorf("rendering text body: %w", err)
	}

	return mail.Message{
		To:      email,
		Subject: subject,
		HTML:    html.String(),
		Text:    text.String(),
		Tag:     Tag,
	}, nil
}
