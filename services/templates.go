package services

import (
	"bytes"
	"fmt"
	"html/template"
)

// Email template names.
const (
	TemplateCartReminder1  = "cart_reminder_1"
	TemplateCartReminder2  = "cart_reminder_2"
	TemplateReviewDiscount = "review_discount"
)

type emailTemplate struct {
	tmplFile string
	subject  string
}

var emailTemplates = map[string]emailTemplate{
	TemplateCartReminder1: {
		tmplFile: "templates/cart_reminder_1.html",
		subject:  "Your eSIM plan is waiting for you",
	},
	TemplateCartReminder2: {
		tmplFile: "templates/cart_reminder_2.html",
		subject:  "Still thinking it over? Your plan is one tap away",
	},
	TemplateReviewDiscount: {
		tmplFile: "templates/review_discount.html",
		subject:  "Thank you for your review, here is your discount",
	},
}

// EmailRenderer produces the subject and HTML body for a named template.
type EmailRenderer interface {
	Render(name string, data interface{}) (subject, html string, err error)
}

// TemplateRenderer renders the storefront's transactional emails. Templates
// are parsed once at construction so a bad file fails the boot, not a send.
type TemplateRenderer struct {
	templates map[string]*template.Template
}

func NewTemplateRenderer() (*TemplateRenderer, error) {
	tmpls := make(map[string]*template.Template)
	for name, cfg := range emailTemplates {
		tmpl, err := template.ParseFiles(cfg.tmplFile)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template for %s: %w", name, err)
		}
		tmpls[name] = tmpl
	}
	return &TemplateRenderer{templates: tmpls}, nil
}

// Render returns the subject and HTML body for the named template.
func (r *TemplateRenderer) Render(name string, data interface{}) (subject, html string, err error) {
	tmpl, ok := r.templates[name]
	if !ok {
		return "", "", fmt.Errorf("unknown email template: %s", name)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", "", fmt.Errorf("template render failed: %w", err)
	}
	return emailTemplates[name].subject, buf.String(), nil
}
