package email

import (
	"bytes"
	"encoding/base64"
	"io"
	"mime"
	"mime/multipart"
	"net/mail"
	"strings"
	"testing"
)

func TestBuildMultipartWithAttachment(t *testing.T) {
	msg := Message{
		From:    "noreply@example.com",
		To:      "jane@example.com",
		Subject: "Your optimized resume",
		Body:    "Your resume is attached.",
		Attachments: []Attachment{
			{
				FileName:    "resume.docx",
				ContentType: "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
				Data:        []byte("fake docx bytes"),
			},
		},
	}

	raw, err := msg.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	parsed, err := mail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("parse message: %v", err)
	}
	if got := parsed.Header.Get("To"); got != "jane@example.com" {
		t.Fatalf("To = %q", got)
	}

	mediaType, params, err := mime.ParseMediaType(parsed.Header.Get("Content-Type"))
	if err != nil {
		t.Fatalf("parse content type: %v", err)
	}
	if mediaType != "multipart/mixed" {
		t.Fatalf("media type = %q", mediaType)
	}

	reader := multipart.NewReader(parsed.Body, params["boundary"])

	text, err := reader.NextPart()
	if err != nil {
		t.Fatalf("first part: %v", err)
	}
	body, _ := io.ReadAll(text)
	if !strings.Contains(string(body), "attached") {
		t.Fatalf("text body = %q", body)
	}

	att, err := reader.NextPart()
	if err != nil {
		t.Fatalf("attachment part: %v", err)
	}
	if att.FileName() != "resume.docx" {
		t.Fatalf("attachment name = %q", att.FileName())
	}
	encoded, _ := io.ReadAll(att)
	decoded, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(string(encoded), "\r\n", ""))
	if err != nil {
		t.Fatalf("decode attachment: %v", err)
	}
	if string(decoded) != "fake docx bytes" {
		t.Fatalf("attachment content = %q", decoded)
	}
}

func TestBuildStripsHeaderInjection(t *testing.T) {
	msg := Message{
		From:    "noreply@example.com",
		To:      "jane@example.com",
		Subject: "hello\r\nBcc: attacker@example.com",
		Body:    "hi",
	}

	raw, err := msg.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	parsed, err := mail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("parse message: %v", err)
	}
	if parsed.Header.Get("Bcc") != "" {
		t.Fatal("subject newline leaked into headers")
	}
}
