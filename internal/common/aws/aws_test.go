// internal/common/aws/aws_test.go
package aws

import (
	"context"
	"errors"
	"testing"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSES struct {
	input *ses.SendEmailInput
	err   error
}

func (f *fakeSES) SendEmail(_ context.Context, in *ses.SendEmailInput, _ ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	f.input = in
	if f.err != nil {
		return nil, f.err
	}
	return &ses.SendEmailOutput{MessageId: awssdk.String("ses-1")}, nil
}

type fakeSNS struct {
	input *sns.PublishInput
	err   error
}

func (f *fakeSNS) Publish(_ context.Context, in *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.input = in
	if f.err != nil {
		return nil, f.err
	}
	return &sns.PublishOutput{MessageId: awssdk.String("sns-1")}, nil
}

func TestSESClient_SendEmail(t *testing.T) {
	fake := &fakeSES{}
	c := &SESClient{client: fake, from: "pos@example.com"}

	id, err := c.SendEmail(context.Background(), []string{"m@example.com"}, "Order transferred", "ORD-1 is waiting")
	require.NoError(t, err)
	assert.Equal(t, "ses-1", id)
	assert.Equal(t, "pos@example.com", awssdk.ToString(fake.input.Source))
	assert.Equal(t, []string{"m@example.com"}, fake.input.Destination.ToAddresses)
	assert.Equal(t, "ORD-1 is waiting", awssdk.ToString(fake.input.Message.Body.Text.Data))

	_, err = c.SendEmail(context.Background(), nil, "s", "b")
	assert.Error(t, err)

	fake.err = errors.New("throttled")
	_, err = c.SendEmail(context.Background(), []string{"m@example.com"}, "s", "b")
	assert.ErrorContains(t, err, "throttled")
}

func TestSNSClient_SendSMS(t *testing.T) {
	fake := &fakeSNS{}
	c := &SNSClient{client: fake, senderID: "POS"}

	id, err := c.SendSMS(context.Background(), "+919800000000", "ORD-1 transferred")
	require.NoError(t, err)
	assert.Equal(t, "sns-1", id)
	assert.Equal(t, "+919800000000", awssdk.ToString(fake.input.PhoneNumber))
	assert.Contains(t, fake.input.MessageAttributes, "AWS.SNS.SMS.SenderID")

	c.senderID = ""
	_, err = c.SendSMS(context.Background(), "+919800000000", "x")
	require.NoError(t, err)
	assert.NotContains(t, fake.input.MessageAttributes, "AWS.SNS.SMS.SenderID")
}
