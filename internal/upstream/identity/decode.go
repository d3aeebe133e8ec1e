package identity

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"mobilid/internal/pass/models"
)

// Upstream payload keys.
const (
	keyFullName       = "FullName"
	keyPhotoURL       = "PhotoURL"
	keyBalance        = "EagleBucks"
	keyMealsRemaining = "MealsRemaining"
	keyKudosEarned    = "KudosEarned"
	keyKudosRequired  = "KudosRequired"
	keyPIN            = "IDPin"
	keyPrintBalance   = "PrintBalance"
	keyMailbox        = "Mailbox"
)

var errMissingFields = errors.New("missing required fields")

// Defaults names the value used for each optional field when the identity
// source omits it or sends null. Name and PIN are required and have none.
type Defaults struct {
	PhotoURL       string
	Balance        string
	MealsRemaining string
	KudosEarned    string
	KudosRequired  string
	PrintBalance   string
	Mailbox        string
}

// DefaultValues is used unless the client is configured otherwise.
var DefaultValues = Defaults{
	Balance:        "0.00",
	MealsRemaining: "0",
	KudosEarned:    "0",
	KudosRequired:  "0",
	PrintBalance:   "0.00",
}

// decodeAttributes turns the raw payload into Attributes. Each field is
// decoded explicitly: strings and numbers are accepted, null and absence
// fall back to the named default.
func decodeAttributes(body []byte, d Defaults) (models.Attributes, error) {
	var raw map[string]json.RawMessage
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return models.Attributes{}, fmt.Errorf("decode identity payload: %w", err)
	}

	var missing []string
	required := func(key string) string {
		v, ok, err := scalar(raw[key])
		if err != nil || !ok || v == "" {
			missing = append(missing, key)
		}
		return v
	}
	optional := func(key, fallback string) string {
		v, ok, err := scalar(raw[key])
		if err != nil || !ok {
			return fallback
		}
		return v
	}

	attrs := models.Attributes{
		Name:           required(keyFullName),
		PIN:            required(keyPIN),
		PhotoURL:       optional(keyPhotoURL, d.PhotoURL),
		Balance:        optional(keyBalance, d.Balance),
		MealsRemaining: optional(keyMealsRemaining, d.MealsRemaining),
		KudosEarned:    optional(keyKudosEarned, d.KudosEarned),
		KudosRequired:  optional(keyKudosRequired, d.KudosRequired),
		PrintBalance:   optional(keyPrintBalance, d.PrintBalance),
		Mailbox:        optional(keyMailbox, d.Mailbox),
	}
	if len(missing) > 0 {
		return models.Attributes{}, fmt.Errorf("%w: %s", errMissingFields, strings.Join(missing, ", "))
	}
	return attrs, nil
}

// scalar reads a JSON string or number. ok is false for absent or null.
func scalar(raw json.RawMessage) (v string, ok bool, err error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", false, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s), true, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String(), true, nil
	}
	return "", false, fmt.Errorf("value %s is not a scalar", string(raw))
}
