package ws

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/vedran77/anonbox/internal/domain"
)

// RegistryNotifier implements service.Notifier on top of the Registry.
type RegistryNotifier struct {
	registry *Registry
}

func NewRegistryNotifier(registry *Registry) *RegistryNotifier {
	return &RegistryNotifier{registry: registry}
}

func (n *RegistryNotifier) Reachable(userID uuid.UUID) bool {
	_, ok := n.registry.Lookup(userID)
	return ok
}

func (n *RegistryNotifier) NotifyNewMessage(recipientID uuid.UUID, msg *domain.Message) {
	n.push(recipientID, EventTypeNewMessage, NewMessagePayload{Message: *msg})
}

func (n *RegistryNotifier) NotifyUnreadCount(recipientID uuid.UUID, unread int) {
	n.push(recipientID, EventTypeUnreadCount, UnreadCountPayload{UnreadCount: unread})
}

func (n *RegistryNotifier) NotifyMessagesCleared(recipientID uuid.UUID) {
	n.push(recipientID, EventTypeMessagesCleared, nil)
}

func (n *RegistryNotifier) push(userID uuid.UUID, eventType string, payload any) {
	log := logrus.WithFields(logrus.Fields{"user_id": userID, "event": eventType})

	client, ok := n.registry.Lookup(userID)
	if !ok {
		log.Debug("ws notifier: recipient not connected")
		return
	}

	evt, err := NewEvent(eventType, payload)
	if err != nil {
		log.WithError(err).Error("ws notifier: marshal error")
		return
	}
	data, err := json.Marshal(evt)
	if err != nil {
		log.WithError(err).Error("ws notifier: marshal error")
		return
	}

	if err := client.Send(data); err != nil {
		log.WithError(err).Warn("ws notifier: delivery failed")
	}
}
