package interp

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"mime"
	nettextproto "net/textproto"
	"strings"

	"github.com/emersion/go-message"
	"github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/textproto"
)

// Message is the read-only view of the message being filtered.
type Message interface {
	// HeaderGet returns the decoded values of all header fields with the
	// given name. The name is matched case-insensitively.
	HeaderGet(name string) ([]string, error)
	// HeaderNames returns the names of all header fields in the message.
	HeaderNames() ([]string, error)
	// MessageSize returns the size of the message in octets.
	MessageSize() int
}

// Envelope is the SMTP envelope of the message.
type Envelope interface {
	EnvelopeFrom() string
	EnvelopeTo() string
}

// BodyPart is a single leaf part of a message body, transfer-decoded.
type BodyPart struct {
	ContentType string
	Content     []byte
}

// BodyReader is implemented by messages that give access to their body.
// It is required by the body test.
type BodyReader interface {
	// RawBody returns the body exactly as received, without the header.
	RawBody() ([]byte, error)
	// BodyParts returns every non-multipart part of the body.
	BodyParts() ([]BodyPart, error)
}

type EnvelopeStatic struct {
	From string
	To   string
}

func (e EnvelopeStatic) EnvelopeFrom() string {
	return e.From
}

func (e EnvelopeStatic) EnvelopeTo() string {
	return e.To
}

var wordDecoder = mime.WordDecoder{CharsetReader: charset.Reader}

// MessageStatic is a Message held in memory.
type MessageStatic struct {
	Size   int
	Header textproto.Header
	Body   []byte
}

// ReadMessage reads a RFC 5322 message into a MessageStatic.
func ReadMessage(r io.Reader) (MessageStatic, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return MessageStatic{}, fmt.Errorf("read message: %w", err)
	}

	br := bufio.NewReader(bytes.NewReader(raw))
	hdr, err := textproto.ReadHeader(br)
	if err != nil {
		return MessageStatic{}, fmt.Errorf("read message header: %w", err)
	}
	body, err := io.ReadAll(br)
	if err != nil {
		return MessageStatic{}, fmt.Errorf("read message body: %w", err)
	}

	return MessageStatic{
		Size:   len(raw),
		Header: hdr,
		Body:   body,
	}, nil
}

func (m MessageStatic) HeaderGet(name string) ([]string, error) {
	values := m.Header.Values(name)
	decoded := make([]string, 0, len(values))
	for _, v := range values {
		text, err := wordDecoder.DecodeHeader(v)
		if err != nil {
			// Undecodable encoded-words are compared as they are.
			text = v
		}
		decoded = append(decoded, strings.TrimSpace(text))
	}
	return decoded, nil
}

func (m MessageStatic) HeaderNames() ([]string, error) {
	var names []string
	seen := make(map[string]struct{})
	fields := m.Header.Fields()
	for fields.Next() {
		key := nettextproto.CanonicalMIMEHeaderKey(fields.Key())
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		names = append(names, key)
	}
	return names, nil
}

func (m MessageStatic) MessageSize() int {
	return m.Size
}

func (m MessageStatic) RawBody() ([]byte, error) {
	return m.Body, nil
}

func (m MessageStatic) BodyParts() ([]BodyPart, error) {
	entity, err := message.New(message.Header{Header: m.Header}, bytes.NewReader(m.Body))
	if err != nil && !message.IsUnknownCharset(err) && !message.IsUnknownEncoding(err) {
		return nil, err
	}

	var parts []BodyPart
	err = entity.Walk(func(_ []int, part *message.Entity, err error) error {
		if err != nil && !message.IsUnknownCharset(err) && !message.IsUnknownEncoding(err) {
			return err
		}
		contentType, _, err := part.Header.ContentType()
		if err != nil || contentType == "" {
			contentType = "text/plain"
		}
		if strings.HasPrefix(contentType, "multipart/") {
			return nil
		}
		content, err := io.ReadAll(part.Body)
		if err != nil {
			return err
		}
		parts = append(parts, BodyPart{ContentType: contentType, Content: content})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return parts, nil
}
