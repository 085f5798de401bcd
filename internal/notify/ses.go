// Package notify delivers the lead-magnet email for persisted signups.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	appconfig "github.com/ignite/waitlist/internal/config"
	"github.com/ignite/waitlist/internal/domain"
	"github.com/ignite/waitlist/internal/pkg/logger"
	"github.com/ignite/waitlist/internal/service/signup"
)

// SESNotifier implements signup.Notifier over AWS SES v2.
type SESNotifier struct {
	client   *sesv2.Client
	template *Template
	notify   appconfig.NotifyConfig
	ses      appconfig.SESConfig
}

// NewSESNotifier creates an SES-backed notifier. Static credentials come
// from config; an empty access key falls back to the default credential
// chain (IAM role on ECS).
func NewSESNotifier(ctx context.Context, sesCfg appconfig.SESConfig, notifyCfg appconfig.NotifyConfig) (*SESNotifier, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(sesCfg.Region),
	}
	if sesCfg.AccessKey != "" && sesCfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(sesCfg.AccessKey, sesCfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	return &SESNotifier{
		client:   sesv2.NewFromConfig(awsCfg),
		template: NewTemplate(notifyCfg.TemplatePath),
		notify:   notifyCfg,
		ses:      sesCfg,
	}, nil
}

// Send delivers the lead-magnet email to one signup. A nil return means SES
// confirmed acceptance. Timeouts after the request was written are wrapped
// with signup.ErrAmbiguousDelivery: the message may still arrive, so the
// caller leaves notification_sent false and a retry may double-send.
func (n *SESNotifier) Send(ctx context.Context, s *domain.Signup) error {
	html, err := n.template.Render(Bindings{
		Email:       s.Email,
		FromName:    n.notify.FromName,
		DocumentURL: n.notify.DocumentURL,
	})
	if err != nil {
		return fmt.Errorf("render notification: %w", err)
	}

	sendCtx, cancel := context.WithTimeout(ctx, n.ses.Timeout())
	defer cancel()

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fmt.Sprintf("%s <%s>", n.notify.FromName, n.notify.FromEmail)),
		Destination:      &types.Destination{ToAddresses: []string{s.Email}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(n.notify.Subject), Charset: aws.String("UTF-8")},
				Body: &types.Body{
					Html: &types.Content{Data: aws.String(html), Charset: aws.String("UTF-8")},
					Text: &types.Content{Data: aws.String(PlainText(html)), Charset: aws.String("UTF-8")},
				},
			},
		},
		EmailTags: []types.MessageTag{
			{Name: aws.String("signup_id"), Value: aws.String(s.ID)},
			{Name: aws.String("funnel"), Value: aws.String("waitlist")},
		},
	}
	if n.notify.ReplyTo != "" {
		input.ReplyToAddresses = []string{n.notify.ReplyTo}
	}

	result, err := n.client.SendEmail(sendCtx, input)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("ses send timed out: %w", signup.ErrAmbiguousDelivery)
		}
		return fmt.Errorf("ses send: %w", err)
	}

	messageID := ""
	if result.MessageId != nil {
		messageID = *result.MessageId
	}
	log.Printf("[ses] sent lead magnet to %s (id: %s)", logger.RedactEmail(s.Email), messageID)
	return nil
}
