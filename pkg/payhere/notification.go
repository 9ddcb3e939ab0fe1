package payhere

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

const maxNotificationBytes = 64 << 10

// Notification field names posted by the gateway.
const (
	FieldMerchantID    = "merchant_id"
	FieldOrderID       = "order_id"
	FieldPaymentID     = "payment_id"
	FieldAmount        = "payhere_amount"
	FieldCurrency      = "payhere_currency"
	FieldStatusCode    = "status_code"
	FieldMD5Sig        = "md5sig"
	FieldStatusMessage = "status_message"
	FieldMethod        = "method"
)

// Notification is an inbound payment notification. Fields keeps every raw
// field, including values echoed back from the checkout request.
type Notification struct {
	MerchantID    string
	OrderID       string
	PaymentID     string
	Amount        string
	Currency      string
	StatusCode    string
	MD5Sig        string
	StatusMessage string
	Method        string
	Fields        map[string]string
}

// NotificationFromFields builds a Notification from raw field values.
func NotificationFromFields(fields map[string]string) Notification {
	get := func(key string) string { return strings.TrimSpace(fields[key]) }
	return Notification{
		MerchantID:    get(FieldMerchantID),
		OrderID:       get(FieldOrderID),
		PaymentID:     get(FieldPaymentID),
		Amount:        get(FieldAmount),
		Currency:      get(FieldCurrency),
		StatusCode:    get(FieldStatusCode),
		MD5Sig:        get(FieldMD5Sig),
		StatusMessage: get(FieldStatusMessage),
		Method:        get(FieldMethod),
		Fields:        fields,
	}
}

// ParseNotification decodes a form-encoded or JSON notification body.
func ParseNotification(r *http.Request) (Notification, error) {
	if r == nil || r.Body == nil {
		return Notification{}, pkgerrors.New(pkgerrors.CodeValidation, "notification body required")
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxNotificationBytes+1))
	if err != nil {
		return Notification{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read notification body")
	}
	if len(body) > maxNotificationBytes {
		return Notification{}, pkgerrors.New(pkgerrors.CodeValidation, "notification body too large")
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	var fields map[string]string
	if mediaType == "application/json" {
		fields, err = decodeJSONFields(body)
	} else {
		fields, err = decodeFormFields(body)
	}
	if err != nil {
		return Notification{}, err
	}
	return NotificationFromFields(fields), nil
}

func decodeJSONFields(body []byte) (map[string]string, error) {
	var raw map[string]any
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid json notification")
	}
	fields := make(map[string]string, len(raw))
	for key, value := range raw {
		switch v := value.(type) {
		case nil:
			fields[key] = ""
		case string:
			fields[key] = v
		case json.Number:
			fields[key] = v.String()
		default:
			encoded, err := json.Marshal(v)
			if err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, fmt.Sprintf("invalid value for %s", key))
			}
			fields[key] = strings.Trim(string(encoded), `"`)
		}
	}
	return fields, nil
}

func decodeFormFields(body []byte) (map[string]string, error) {
	values, err := url.ParseQuery(string(body))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid form notification")
	}
	fields := make(map[string]string, len(values))
	for key, vals := range values {
		if len(vals) > 0 {
			fields[key] = vals[0]
		}
	}
	return fields, nil
}
