package push

import (
	"context"
	"fmt"

	"property_portal_backend/platform/config"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// Messaging is the part of the FCM client the service uses.
type Messaging interface {
	SendEachForMulticast(ctx context.Context, message *messaging.MulticastMessage) (*messaging.BatchResponse, error)
}

// NewFirebaseMessaging initialises the Firebase app from a service account file.
// It returns nil when push is not configured.
func NewFirebaseMessaging(ctx context.Context, cfg config.PushConfig) (Messaging, error) {
	if !cfg.IsPushEnabled() {
		return nil, nil
	}

	var fbConfig *firebase.Config
	if projectID := cfg.GetFirebaseProjectID(); projectID != "" {
		fbConfig = &firebase.Config{ProjectID: projectID}
	}

	app, err := firebase.NewApp(ctx, fbConfig, option.WithCredentialsFile(cfg.GetFirebaseCredentialsFile()))
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase app [%w]", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase messaging [%w]", err)
	}
	return client, nil
}
