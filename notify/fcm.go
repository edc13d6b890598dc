package notify

import (
	"context"
	"fmt"
	"os"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"

	"github.com/respiralivre/api/utils"
)

const fcmScope = "https://www.googleapis.com/auth/firebase.messaging"

// Sender delivers one message to one device token.
type Sender interface {
	Send(ctx context.Context, token string, msg Message) error
}

// FCMSender delivers through the Firebase Admin messaging client.
type FCMSender struct {
	client *messaging.Client
}

// NewFCMSender loads service account credentials from credentialsFile.
// projectID falls back to the one in the credentials.
func NewFCMSender(ctx context.Context, projectID, credentialsFile string) (*FCMSender, error) {
	raw, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read fcm credentials: %w", err)
	}
	creds, err := google.CredentialsFromJSON(ctx, raw, fcmScope)
	if err != nil {
		return nil, fmt.Errorf("parse fcm credentials: %w", err)
	}
	if projectID == "" {
		projectID = creds.ProjectID
	}
	return newFCMSender(ctx, projectID, option.WithCredentials(creds))
}

func newFCMSender(ctx context.Context, projectID string, opts ...option.ClientOption) (*FCMSender, error) {
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("init fcm client: %w", err)
	}
	return &FCMSender{client: client}, nil
}

// toFCM maps a Message onto the FCM payload. The link doubles as the web click target.
func toFCM(token string, msg Message) *messaging.Message {
	m := &messaging.Message{
		Token:        token,
		Notification: &messaging.Notification{Title: msg.Title, Body: msg.Body},
		Data:         msg.payloadData(),
	}
	if msg.Link != "" {
		m.Webpush = &messaging.WebpushConfig{FCMOptions: &messaging.WebpushFCMOptions{Link: msg.Link}}
	}
	return m
}

// Send posts one message. Only tokens FCM reports as gone yield ErrInvalidToken;
// a rejected payload leaves the token in place.
func (s *FCMSender) Send(ctx context.Context, token string, msg Message) error {
	_, err := s.client.Send(ctx, toFCM(token, msg))
	if err == nil {
		return nil
	}
	if isDeadToken(err) {
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return fmt.Errorf("fcm send failed: %w", err)
}

func isDeadToken(err error) bool {
	return messaging.IsUnregistered(err) || messaging.IsSenderIDMismatch(err)
}

// LogSender logs messages instead of delivering them. Used when FCM is not configured.
type LogSender struct{}

// Send implements Sender.
func (LogSender) Send(_ context.Context, token string, msg Message) error {
	utils.Logger.Info("push skipped, no provider configured",
		zap.String("title", msg.Title),
		zap.String("link", msg.Link),
		zap.Int("token_len", len(token)),
	)
	return nil
}
