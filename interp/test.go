package interp

import (
	"bytes"
	"context"
	"errors"
	"strings"

	"github.com/emersion/go-message/mail"
)

type Test interface {
	Check(ctx context.Context, d *RuntimeData) (bool, error)
}

type AddressTest struct {
	matcherTest

	AddressPart AddressPart
	Header      []string
}

func (a AddressTest) Check(_ context.Context, d *RuntimeData) (bool, error) {
	entryCount := uint64(0)
	for _, hdr := range a.Header {
		values, err := d.Msg.HeaderGet(hdr)
		if err != nil {
			return false, &MailError{Op: "header " + hdr, Err: err}
		}

		for _, value := range values {
			cleanValue := stripRFC2822Comments(value)

			// A bare "<addr>" is not valid address syntax; it and any
			// other unparseable value is compared literally.
			trimmed := strings.TrimSpace(cleanValue)
			bare := strings.HasPrefix(trimmed, "<") && strings.HasSuffix(trimmed, ">") &&
				strings.Count(trimmed, "<") == 1 && strings.Count(trimmed, ">") == 1

			var (
				addrList []*mail.Address
				parseErr error
			)
			if !bare && trimmed != "" {
				addrList, parseErr = mail.ParseAddressList(cleanValue)
			}
			if bare || parseErr != nil || len(addrList) == 0 {
				if a.isCount() {
					continue
				}
				if testAddress(a.matcherTest, a.AddressPart, cleanValue) {
					return true, nil
				}
				continue
			}

			for _, addr := range addrList {
				if a.isCount() {
					entryCount++
					continue
				}
				if testAddress(a.matcherTest, a.AddressPart, addr.Address) {
					return true, nil
				}
			}
		}
	}

	if a.isCount() {
		return a.countMatches(entryCount), nil
	}
	return false, nil
}

type AllOfTest struct {
	Tests []Test
}

func (a AllOfTest) Check(ctx context.Context, d *RuntimeData) (bool, error) {
	for _, t := range a.Tests {
		ok, err := t.Check(ctx, d)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

type AnyOfTest struct {
	Tests []Test
}

func (a AnyOfTest) Check(ctx context.Context, d *RuntimeData) (bool, error) {
	for _, t := range a.Tests {
		ok, err := t.Check(ctx, d)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

var errNoEnvelope = errors.New("envelope is not available")

type EnvelopeTest struct {
	matcherTest

	AddressPart AddressPart
	Field       []string
}

func (e EnvelopeTest) Check(_ context.Context, d *RuntimeData) (bool, error) {
	if d.Envelope == nil {
		return false, &MailError{Op: "envelope", Err: errNoEnvelope}
	}

	entryCount := uint64(0)
	for _, field := range e.Field {
		var value string
		switch strings.ToLower(field) {
		case "from":
			value = d.Envelope.EnvelopeFrom()
		case "to":
			value = d.Envelope.EnvelopeTo()
		}

		// Syntactically invalid envelope addresses match nothing.
		if value != "" && value != "<>" {
			if _, err := mail.ParseAddress(value); err != nil {
				continue
			}
		}

		if e.isCount() {
			if value != "" {
				entryCount++
			}
			continue
		}

		if testAddress(e.matcherTest, e.AddressPart, value) {
			return true, nil
		}
	}
	if e.isCount() {
		return e.countMatches(entryCount), nil
	}
	return false, nil
}

type ExistsTest struct {
	Fields []string
}

// Check passes only if every listed header is present.
func (e ExistsTest) Check(_ context.Context, d *RuntimeData) (bool, error) {
	for _, field := range e.Fields {
		values, err := d.Msg.HeaderGet(field)
		if err != nil {
			return false, &MailError{Op: "header " + field, Err: err}
		}
		if len(values) == 0 {
			return false, nil
		}
	}
	return true, nil
}

type FalseTest struct{}

func (f FalseTest) Check(context.Context, *RuntimeData) (bool, error) {
	return false, nil
}

type TrueTest struct{}

func (t TrueTest) Check(context.Context, *RuntimeData) (bool, error) {
	return true, nil
}

type HeaderTest struct {
	matcherTest

	Header []string
}

func (h HeaderTest) Check(_ context.Context, d *RuntimeData) (bool, error) {
	entryCount := uint64(0)
	for _, hdr := range h.Header {
		values, err := d.Msg.HeaderGet(hdr)
		if err != nil {
			return false, &MailError{Op: "header " + hdr, Err: err}
		}

		for _, value := range values {
			if h.isCount() {
				entryCount++
				continue
			}
			if h.tryMatch(value) {
				return true, nil
			}
		}
	}

	if h.isCount() {
		return h.countMatches(entryCount), nil
	}
	return false, nil
}

type NotTest struct {
	Test Test
}

func (n NotTest) Check(ctx context.Context, d *RuntimeData) (bool, error) {
	ok, err := n.Test.Check(ctx, d)
	if err != nil {
		return false, err
	}
	return !ok, nil
}

// SizeTest compares the message size in octets. Both comparisons are
// strict: a message of exactly Size octets is neither over nor under.
type SizeTest struct {
	Size  int64
	Over  bool
	Under bool
}

func (s SizeTest) Check(_ context.Context, d *RuntimeData) (bool, error) {
	size := int64(d.Msg.MessageSize())
	if s.Over {
		return size > s.Size, nil
	}
	return size < s.Size, nil
}

type BodyTransform string

const (
	BodyRaw     BodyTransform = "raw"
	BodyText    BodyTransform = "text"
	BodyContent BodyTransform = "content"
)

var errNoBody = errors.New("message body is not available")

// BodyTest is the body test of RFC 5173.
type BodyTest struct {
	matcherTest

	Transform    BodyTransform
	ContentTypes []string
}

func (b BodyTest) Check(_ context.Context, d *RuntimeData) (bool, error) {
	br, ok := d.Msg.(BodyReader)
	if !ok {
		return false, &MailError{Op: "body", Err: errNoBody}
	}

	if b.Transform == BodyRaw {
		raw, err := br.RawBody()
		if err != nil {
			return false, &MailError{Op: "body", Err: err}
		}
		return b.tryMatch(string(raw)), nil
	}

	parts, err := br.BodyParts()
	if err != nil {
		return false, &MailError{Op: "body", Err: err}
	}
	for _, part := range parts {
		if !b.wantPart(part.ContentType) {
			continue
		}
		if b.tryMatch(string(bytes.TrimRight(part.Content, "\r\n"))) {
			return true, nil
		}
	}
	return false, nil
}

func (b BodyTest) wantPart(contentType string) bool {
	contentType = strings.ToLower(contentType)
	if b.Transform == BodyText {
		return strings.HasPrefix(contentType, "text/")
	}

	mainType, _, _ := strings.Cut(contentType, "/")
	for _, want := range b.ContentTypes {
		want = strings.ToLower(want)
		switch {
		case want == "":
			return true
		case strings.Contains(want, "/"):
			if want == contentType {
				return true
			}
		case want == mainType:
			return true
		}
	}
	return false
}
