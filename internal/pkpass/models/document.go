// Package models holds the pass.json document model.
package models

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Kind selects how a field value is rendered on the pass.
type Kind int

const (
	KindText Kind = iota
	KindCurrency
	KindNumber
)

type Alignment string

const (
	AlignLeft    Alignment = "PKTextAlignmentLeft"
	AlignCenter  Alignment = "PKTextAlignmentCenter"
	AlignRight   Alignment = "PKTextAlignmentRight"
	AlignNatural Alignment = "PKTextAlignmentNatural"
)

const (
	BarcodeQR       = "PKBarcodeFormatQR"
	numberDecimal   = "PKNumberStyleDecimal"
	defaultEncoding = "iso-8859-1"
)

// Field is one labelled value on the pass. Kind decides whether Value is
// emitted as a string or a JSON number; a numeric kind whose value does not
// parse falls back to text so a bad upstream value never breaks the build.
type Field struct {
	Kind          Kind
	Key           string
	Value         string
	Label         string
	ChangeMessage string
	Alignment     Alignment
	CurrencyCode  string
}

func Text(key, value, label string) Field {
	return Field{Kind: KindText, Key: key, Value: value, Label: label}
}

func Currency(key, value, label, code string) Field {
	return Field{Kind: KindCurrency, Key: key, Value: value, Label: label, CurrencyCode: code}
}

func Number(key, value, label string) Field {
	return Field{Kind: KindNumber, Key: key, Value: value, Label: label}
}

func (f Field) WithChangeMessage(msg string) Field {
	f.ChangeMessage = msg
	return f
}

func (f Field) WithAlignment(a Alignment) Field {
	f.Alignment = a
	return f
}

type fieldJSON struct {
	Key           string    `json:"key"`
	Value         any       `json:"value"`
	Label         string    `json:"label,omitempty"`
	ChangeMessage string    `json:"changeMessage,omitempty"`
	TextAlignment Alignment `json:"textAlignment"`
	NumberStyle   string    `json:"numberStyle,omitempty"`
	CurrencyCode  string    `json:"currencyCode,omitempty"`
}

func (f Field) MarshalJSON() ([]byte, error) {
	out := fieldJSON{
		Key:           f.Key,
		Value:         f.Value,
		Label:         f.Label,
		ChangeMessage: f.ChangeMessage,
		TextAlignment: f.Alignment,
	}
	if out.TextAlignment == "" {
		out.TextAlignment = AlignNatural
	}
	switch f.Kind {
	case KindCurrency:
		if n, ok := numeric(f.Value); ok {
			out.Value = n
			out.CurrencyCode = f.CurrencyCode
		}
	case KindNumber:
		if n, ok := numeric(f.Value); ok {
			out.Value = n
			out.NumberStyle = numberDecimal
		}
	case KindText:
	default:
		return nil, fmt.Errorf("field %s: unknown kind %d", f.Key, f.Kind)
	}
	return json.Marshal(out)
}

func numeric(v string) (json.Number, bool) {
	if _, err := strconv.ParseFloat(v, 64); err != nil {
		return "", false
	}
	return json.Number(v), true
}

// Structure groups the fields of a generic pass.
type Structure struct {
	HeaderFields    []Field `json:"headerFields,omitempty"`
	PrimaryFields   []Field `json:"primaryFields,omitempty"`
	SecondaryFields []Field `json:"secondaryFields,omitempty"`
	AuxiliaryFields []Field `json:"auxiliaryFields,omitempty"`
	BackFields      []Field `json:"backFields,omitempty"`
}

type Barcode struct {
	Format          string `json:"format"`
	Message         string `json:"message"`
	MessageEncoding string `json:"messageEncoding"`
	AltText         string `json:"altText,omitempty"`
}

// QR returns a QR barcode carrying message.
func QR(message, altText string) Barcode {
	return Barcode{Format: BarcodeQR, Message: message, MessageEncoding: defaultEncoding, AltText: altText}
}

type Location struct {
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	Altitude     float64 `json:"altitude,omitempty"`
	RelevantText string  `json:"relevantText,omitempty"`
	MaxDistance  float64 `json:"maxDistance,omitempty"`
}

type Beacon struct {
	ProximityUUID string `json:"proximityUUID"`
	Major         int    `json:"major"`
	Minor         int    `json:"minor"`
	RelevantText  string `json:"relevantText,omitempty"`
}

// Document is pass.json. Field order is fixed by the struct, so the same
// input always renders the same bytes.
type Document struct {
	FormatVersion              int        `json:"formatVersion"`
	PassTypeIdentifier         string     `json:"passTypeIdentifier"`
	SerialNumber               string     `json:"serialNumber"`
	TeamIdentifier             string     `json:"teamIdentifier"`
	OrganizationName           string     `json:"organizationName"`
	Description                string     `json:"description"`
	WebServiceURL              string     `json:"webServiceURL,omitempty"`
	AuthenticationToken        string     `json:"authenticationToken,omitempty"`
	SharingProhibited          bool       `json:"sharingProhibited"`
	ForegroundColor            string     `json:"foregroundColor,omitempty"`
	BackgroundColor            string     `json:"backgroundColor,omitempty"`
	LabelColor                 string     `json:"labelColor,omitempty"`
	Barcode                    *Barcode   `json:"barcode,omitempty"`
	Barcodes                   []Barcode  `json:"barcodes,omitempty"`
	Locations                  []Location `json:"locations,omitempty"`
	Beacons                    []Beacon   `json:"beacons,omitempty"`
	AssociatedStoreIdentifiers []int      `json:"associatedStoreIdentifiers,omitempty"`
	ExpirationDate             string     `json:"expirationDate,omitempty"`
	Generic                    Structure  `json:"generic"`
}
