package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"teamdash/backend"
	"teamdash/model"
	"teamdash/stream"
)

func notificationsPath(uid string) string {
	return backend.Join("notifications", uid, "userNotifications")
}

func CreateNotification(ctx context.Context, db backend.Backend, uid, message string) error {
	message = strings.TrimSpace(message)
	if err := required("message", message); err != nil {
		return err
	}
	_, err := db.Create(ctx, notificationsPath(uid), model.Notification{
		Message:   message,
		Read:      false,
		CreatedAt: time.Now(),
	})
	if err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

func unreadQuery(uid string) backend.Query {
	return backend.Collection(notificationsPath(uid)).
		Where("read", backend.OpEqual, false).
		OrderBy("createdAt", true)
}

func decodeNotifications(docs []backend.Document) ([]model.Notification, error) {
	out := make([]model.Notification, 0, len(docs))
	for _, d := range docs {
		var n model.Notification
		if err := d.DataTo(&n); err != nil {
			return nil, fmt.Errorf("decode notification %s: %w", d.ID(), err)
		}
		n.ID = d.ID()
		out = append(out, n)
	}
	return out, nil
}

// WatchUnreadNotifications streams unread notifications, newest first.
func WatchUnreadNotifications(ctx context.Context, db backend.Backend, uid string) *stream.Stream[[]model.Notification] {
	return stream.Map(db.WatchQuery(ctx, unreadQuery(uid)), decodeNotifications)
}

func ListUnreadNotifications(ctx context.Context, db backend.Backend, uid string) ([]model.Notification, error) {
	docs, err := db.Query(ctx, unreadQuery(uid))
	if err != nil {
		return nil, err
	}
	return decodeNotifications(docs)
}

func MarkNotificationRead(ctx context.Context, db backend.Backend, uid, notificationID string) error {
	err := db.Update(ctx, backend.Join(notificationsPath(uid), notificationID), []backend.Update{
		{Path: "read", Value: true},
	})
	if backend.IsNotFound(err) {
		return fmt.Errorf("notification %s: %w", notificationID, backend.ErrNotFound)
	}
	return err
}
