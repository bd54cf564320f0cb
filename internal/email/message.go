package email

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"strings"
	"time"
)

// Attachment is a file carried by an outgoing message.
type Attachment struct {
	FileName    string
	ContentType string
	Data        []byte
}

// Message is one outgoing email.
type Message struct {
	From        string
	To          string
	Subject     string
	Body        string
	Attachments []Attachment
}

// Build serializes the message as MIME multipart suitable for SMTP DATA.
func (m Message) Build() ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	headers := []string{
		"From: " + m.From,
		"To: " + m.To,
		"Subject: " + sanitizeHeader(m.Subject),
		"Date: " + time.Now().UTC().Format(time.RFC1123Z),
		"MIME-Version: 1.0",
		`Content-Type: multipart/mixed; boundary="` + writer.Boundary() + `"`,
	}
	head := strings.Join(headers, "\r\n") + "\r\n\r\n"

	textHeader := textproto.MIMEHeader{}
	textHeader.Set("Content-Type", "text/plain; charset=utf-8")
	textPart, err := writer.CreatePart(textHeader)
	if err != nil {
		return nil, fmt.Errorf("create text part: %w", err)
	}
	if _, err := textPart.Write([]byte(m.Body)); err != nil {
		return nil, fmt.Errorf("write text part: %w", err)
	}

	for _, att := range m.Attachments {
		partHeader := textproto.MIMEHeader{}
		partHeader.Set("Content-Type", att.ContentType)
		partHeader.Set("Content-Transfer-Encoding", "base64")
		partHeader.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", att.FileName))
		part, err := writer.CreatePart(partHeader)
		if err != nil {
			return nil, fmt.Errorf("create attachment part: %w", err)
		}
		if err := writeBase64(part, att.Data); err != nil {
			return nil, fmt.Errorf("write attachment %s: %w", att.FileName, err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	return append([]byte(head), buf.Bytes()...), nil
}

// writeBase64 encodes data in RFC 2045 76-character lines.
func writeBase64(w io.Writer, data []byte) error {
	encoded := base64.StdEncoding.EncodeToString(data)
	const lineLen = 76
	for len(encoded) > 0 {
		n := lineLen
		if n > len(encoded) {
			n = len(encoded)
		}
		if _, err := w.Write([]byte(encoded[:n] + "\r\n")); err != nil {
			return err
		}
		encoded = encoded[n:]
	}
	return nil
}

// sanitizeHeader strips CRLF so user input cannot inject headers.
func sanitizeHeader(s string) string {
	s = strings.ReplaceAll(s, "\r", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.TrimSpace(s)
}
