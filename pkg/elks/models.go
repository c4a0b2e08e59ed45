package elks

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
)

// Phone number capabilities.
const (
	CapabilitySMS   = "sms"
	CapabilityVoice = "voice"
)

// SMS directions.
const (
	DirectionOutgoing = "outgoing"
	DirectionIncoming = "incoming"
)

// AccountDetails is returned by QueryAccountDetails.
type AccountDetails struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayname"`
	// Currency is a three-letter upper-case ISO code.
	Currency       string     `json:"currency"`
	TrialActivated *Timestamp `json:"trialactivated,omitempty"`
	Balance        Money      `json:"balance"`
	Email          string     `json:"email"`
}

// PhoneNumberDetails describes an allocated phone number.
type PhoneNumberDetails struct {
	ID     string `json:"id"`
	Active YesNo  `json:"active"`
	// Country is a two-letter lower-case code.
	Country      string   `json:"country"`
	Number       string   `json:"number"`
	Capabilities []string `json:"capabilities"`
	SmsURL       string   `json:"sms_url,omitempty"`
}

func (p *PhoneNumberDetails) UnmarshalJSON(data []byte) error {
	type wire PhoneNumberDetails
	var w wire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	caps := w.Capabilities
	w.Capabilities = nil
	*p = PhoneNumberDetails(w)
	for _, c := range caps {
		p.AddCapability(c)
	}
	return nil
}

// AddCapability records a capability unless it is already present.
func (p *PhoneNumberDetails) AddCapability(capability string) {
	if !p.HasCapability(capability) {
		p.Capabilities = append(p.Capabilities, capability)
	}
}

func (p *PhoneNumberDetails) HasCapability(capability string) bool {
	for _, c := range p.Capabilities {
		if c == capability {
			return true
		}
	}
	return false
}

// SmsRequest is an outgoing message to one or more recipients.
//
// From is either an allocated phone number or an alphanumeric sender of at
// most 11 characters that begins with a letter.
type SmsRequest struct {
	From       string   `json:"from"`
	Recipients []string `json:"to"`
	Message    string   `json:"message"`
	Flash      bool     `json:"flashsms"`
	// DeliveryReportURL is called by the provider with id, status and
	// delivered once the message reaches a final state.
	DeliveryReportURL string `json:"whendelivered,omitempty"`
}

func (r *SmsRequest) AddRecipient(recipient string) {
	r.Recipients = append(r.Recipients, recipient)
}

func (r *SmsRequest) AddRecipients(recipients ...string) {
	r.Recipients = append(r.Recipients, recipients...)
}

// Validate checks that sender and message are non-blank and that the
// recipient list is set. An empty recipient list is valid.
func (r *SmsRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.From, validation.Required, notBlank),
		validation.Field(&r.Message, validation.Required, notBlank),
		validation.Field(&r.Recipients, validation.NotNil),
	)
}

// SmsResponse describes a sent or received message. Responses to sends with
// more than one recipient only carry ID and To.
type SmsResponse struct {
	ID        string    `json:"id"`
	Direction string    `json:"direction,omitempty"`
	Created   Timestamp `json:"created"`
	Cost      Money     `json:"cost"`
	From      string    `json:"from,omitempty"`
	To        string    `json:"to"`
	Message   string    `json:"message,omitempty"`
}

// SmsHistory is one page of message history.
type SmsHistory struct {
	Responses []SmsResponse `json:"data"`
	Next      *Timestamp    `json:"next,omitempty"`
}

// NextStart returns the cursor to pass to QuerySmsHistoryFrom for the
// following page. ok is false on the last page.
func (h *SmsHistory) NextStart() (start time.Time, ok bool) {
	if h == nil || h.Next == nil || h.Next.IsZero() {
		return time.Time{}, false
	}
	return h.Next.Time, true
}

type phoneNumberList struct {
	Numbers []PhoneNumberDetails `json:"data"`
}

var notBlank = validation.By(func(value interface{}) error {
	s, _ := value.(string)
	if strings.TrimSpace(s) == "" {
		return errors.New("cannot be blank")
	}
	return nil
})

func requireText(name, value string) error {
	if err := validation.Validate(value, validation.Required, notBlank); err != nil {
		return fmt.Errorf("%w: %s %w", ErrInvalidArgument, name, err)
	}
	return nil
}
