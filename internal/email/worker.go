package email

import (
	"context"
	"fmt"
	"time"

	"resumegen-backend/internal/export"
	"resumegen-backend/internal/generations"
	"resumegen-backend/internal/queue"
	"resumegen-backend/internal/shared/metrics"
	"resumegen-backend/internal/shared/telemetry"
)

// Worker drains the delivery queue and emails rendered resumes.
type Worker struct {
	Queue    queue.Receiver
	Runs     generations.Repo
	Mailer   Mailer
	Activity generations.ActivityLog

	// PollWait bounds each long poll. Defaults to 20s.
	PollWait time.Duration
}

// Run polls until the context is cancelled.
func (w *Worker) Run(ctx context.Context) {
	wait := w.PollWait
	if wait <= 0 {
		wait = 20 * time.Second
	}
	for {
		if ctx.Err() != nil {
			return
		}
		deliveries, err := w.Queue.Receive(ctx, 10, wait)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			telemetry.Error("email.receive_failed", map[string]any{"error": err.Error()})
			time.Sleep(5 * time.Second)
			continue
		}
		for _, d := range deliveries {
			if err := w.process(ctx, d.Body); err != nil {
				telemetry.Error("email.delivery_failed", map[string]any{"error": err.Error()})
				metrics.IncEmailFailed()
				// Leave the message for redelivery.
				continue
			}
			if err := w.Queue.Delete(ctx, d.ReceiptHandle); err != nil {
				telemetry.Warn("email.ack_failed", map[string]any{"error": err.Error()})
			}
		}
	}
}

func (w *Worker) process(ctx context.Context, body string) error {
	msg, err := queue.DecodeMessage(body)
	if err != nil {
		return err
	}
	if msg.Type != queue.TypeEmailDelivery {
		return fmt.Errorf("unexpected message type %q", msg.Type)
	}

	run, err := w.Runs.GetByID(ctx, msg.GenerationID)
	if err != nil {
		return fmt.Errorf("load generation %s: %w", msg.GenerationID, err)
	}
	if run.Stage != generations.StageComplete || run.Result == nil {
		return fmt.Errorf("generation %s is not complete", msg.GenerationID)
	}

	format := msg.Format
	if format != export.FormatText {
		format = export.FormatDocx
	}
	var data []byte
	if format == export.FormatDocx {
		data, err = export.RenderDocx(run.Result)
		if err != nil {
			return fmt.Errorf("render docx: %w", err)
		}
	} else {
		data = export.RenderText(run.Result)
	}

	out := Message{
		To:      msg.Recipient,
		Subject: "Your optimized resume",
		Body:    "Your optimized resume is attached.\n\nGenerated with an ATS score of " + fmt.Sprintf("%d", run.Result.ATS.Score) + "/100.",
		Attachments: []Attachment{{
			FileName:    export.FileNameFor(run.ID, format),
			ContentType: export.ContentTypeFor(format),
			Data:        data,
		}},
	}
	if err := w.Mailer.Send(ctx, out); err != nil {
		return fmt.Errorf("send to %s: %w", msg.Recipient, err)
	}

	metrics.IncEmailDelivered()
	telemetry.Info("email.delivered", map[string]any{
		"generation_id": run.ID,
		"recipient":     msg.Recipient,
		"format":        format,
	})
	if w.Activity != nil {
		w.Activity.Record(ctx, run.UserID, "email_sent", run.ID, run.DocumentID, msg.Recipient)
	}
	return nil
}
