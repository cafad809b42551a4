package service

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/google/uuid"
	"github.com/vedran77/anonbox/internal/domain"
	"github.com/vedran77/anonbox/internal/media"
)

type sentMail struct {
	to, userName, resetURL string
}

type fakeMailer struct {
	sent []sentMail
	err  error
}

func (m *fakeMailer) SendPasswordResetEmail(to, userName, resetURL string) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{to, userName, resetURL})
	return nil
}

type fakeMedia struct {
	uploads   []media.Object
	bodies    []string
	deleted   []string
	uploadErr error
	deleteErr error
}

func (f *fakeMedia) Upload(_ context.Context, obj media.Object) (media.Uploaded, error) {
	if f.uploadErr != nil {
		return media.Uploaded{}, f.uploadErr
	}
	data, _ := io.ReadAll(obj.Body)
	f.uploads = append(f.uploads, obj)
	f.bodies = append(f.bodies, string(data))
	key := obj.Folder + "/" + uuid.NewString()
	return media.Uploaded{URL: "https://cdn.test/" + key, Key: key}, nil
}

func (f *fakeMedia) Delete(_ context.Context, key string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, key)
	return nil
}

type notification struct {
	kind   string
	userID uuid.UUID
	unread int
	msg    *domain.Message
}

type fakeNotifier struct {
	mu        sync.Mutex
	reachable map[uuid.UUID]bool
	events    []notification
}

func newFakeNotifier(online ...uuid.UUID) *fakeNotifier {
	n := &fakeNotifier{reachable: make(map[uuid.UUID]bool)}
	for _, id := range online {
		n.reachable[id] = true
	}
	return n
}

func (n *fakeNotifier) Reachable(userID uuid.UUID) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.reachable[userID]
}

func (n *fakeNotifier) record(e notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, e)
}

func (n *fakeNotifier) NotifyNewMessage(recipientID uuid.UUID, msg *domain.Message) {
	n.record(notification{kind: "new_message", userID: recipientID, msg: msg})
}

func (n *fakeNotifier) NotifyUnreadCount(recipientID uuid.UUID, unread int) {
	n.record(notification{kind: "update_unread_count", userID: recipientID, unread: unread})
}

func (n *fakeNotifier) NotifyMessagesCleared(recipientID uuid.UUID) {
	n.record(notification{kind: "messages_cleared", userID: recipientID})
}

func (n *fakeNotifier) kinds() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.events))
	for i, e := range n.events {
		out[i] = e.kind
	}
	return out
}

var errBoom = errors.New("boom")
