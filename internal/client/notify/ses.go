package notify

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	"github.com/dmitrijs2005/mousetrap/internal/logging"
)

// SESAPI is the part of the SES client SESSender uses.
type SESAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESSender sends mail through AWS SES.
type SESSender struct {
	client      SESAPI
	fromAddress string
	logger      logging.Logger
}

// NewSESSender loads the default AWS configuration for region.
func NewSESSender(ctx context.Context, region, fromAddress string, logger logging.Logger) (*SESSender, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return NewSESSenderWithClient(ses.NewFromConfig(cfg), fromAddress, logger), nil
}

func NewSESSenderWithClient(client SESAPI, fromAddress string, logger logging.Logger) *SESSender {
	return &SESSender{client: client, fromAddress: fromAddress, logger: logger.With("module", "notify")}
}

func (s *SESSender) Send(ctx context.Context, to, subject, body string) error {
	input := &ses.SendEmailInput{
		Source: aws.String(s.fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(body)},
			},
		},
	}

	out, err := s.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Info(ctx, "notification sent", "to", to, "message_id", aws.ToString(out.MessageId))
	return nil
}
