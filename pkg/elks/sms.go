package elks

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// SendSms sends a message to a single recipient.
func (c *Client) SendSms(ctx context.Context, from, recipient, message string) (*SmsResponse, error) {
	return c.sendOne(ctx, &SmsRequest{From: from, Recipients: []string{recipient}, Message: message})
}

// SendSmsToMany sends a message to several recipients. Responses only carry
// ID and To.
func (c *Client) SendSmsToMany(ctx context.Context, from string, recipients []string, message string) ([]SmsResponse, error) {
	return c.Send(ctx, &SmsRequest{From: from, Recipients: recipients, Message: message})
}

// SendFlashSms sends a flash message to a single recipient.
func (c *Client) SendFlashSms(ctx context.Context, from, recipient, message string) (*SmsResponse, error) {
	return c.sendOne(ctx, &SmsRequest{From: from, Recipients: []string{recipient}, Message: message, Flash: true})
}

// SendFlashSmsToMany sends a flash message to several recipients.
func (c *Client) SendFlashSmsToMany(ctx context.Context, from string, recipients []string, message string) ([]SmsResponse, error) {
	return c.Send(ctx, &SmsRequest{From: from, Recipients: recipients, Message: message, Flash: true})
}

func (c *Client) sendOne(ctx context.Context, req *SmsRequest) (*SmsResponse, error) {
	responses, err := c.Send(ctx, req)
	if err != nil {
		return nil, err
	}
	return &responses[0], nil
}

// Send delivers req to all of its recipients. Messages too long for one SMS
// are split by the API. Recipients are sent in consecutive batches of at most
// the configured batch limit, one request per batch, and the responses are
// returned in sending order. When more than one recipient is addressed only
// ID and To are set on the responses.
//
// Sends are not atomic across batches: when a batch fails, earlier batches
// have already been delivered and the returned *Error reports how many.
func (c *Client) Send(ctx context.Context, req *SmsRequest) ([]SmsResponse, error) {
	if req == nil {
		return nil, &Error{Msg: "invalid sms request", Err: fmt.Errorf("%w: request is nil", ErrInvalidArgument)}
	}
	if err := req.Validate(); err != nil {
		return nil, &Error{Msg: "invalid sms request", Err: fmt.Errorf("%w: %w", ErrInvalidArgument, err)}
	}

	recipients := req.Recipients
	total := len(recipients)
	if total == 0 {
		return []SmsResponse{}, nil
	}

	form := url.Values{}
	form.Set("from", req.From)
	form.Set("message", req.Message)
	if req.Flash {
		form.Set("flashsms", "yes")
	}
	if req.DeliveryReportURL != "" {
		form.Set("whendelivered", req.DeliveryReportURL)
	}

	responses := make([]SmsResponse, 0, total)
	for start := 0; start < total; {
		end := min(start+c.cfg.BatchLimit, total)
		batch := recipients[start:end]
		form.Set("to", strings.Join(batch, ","))

		sent, err := c.sendBatch(ctx, form, len(batch))
		if err != nil {
			c.logger.Warn().
				Err(err).
				Int("recipients", total).
				Int("delivered", len(responses)).
				Msg("sms batch failed")
			return nil, sendError(total, len(responses), err)
		}
		responses = append(responses, sent...)
		start = end
	}

	event := c.logger.Debug().Int("recipients", len(responses))
	if req.Flash {
		event.Msg("sent flash sms")
	} else {
		event.Msg("sent sms")
	}
	return responses, nil
}

// sendBatch posts one batch. The API answers a single recipient with an
// object and several recipients with an array.
func (c *Client) sendBatch(ctx context.Context, form url.Values, size int) ([]SmsResponse, error) {
	if size == 1 {
		var resp SmsResponse
		if err := c.post(ctx, smsResourcePath, smsResourcePath, form, &resp); err != nil {
			return nil, err
		}
		return []SmsResponse{resp}, nil
	}
	var resp []SmsResponse
	if err := c.post(ctx, smsResourcePath, smsResourcePath, form, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func sendError(total, delivered int, cause error) *Error {
	e := &Error{Err: cause, Total: total, Delivered: delivered}
	switch {
	case total == 1:
		e.Msg = "could not send text message to [1] recipient"
	case delivered == 0:
		e.Msg = fmt.Sprintf("could not send text message to [%d] recipients", total)
	default:
		e.Msg = fmt.Sprintf("could not send text message to all [%d] recipients, failed after delivering [%d]", total, delivered)
	}
	return e
}
