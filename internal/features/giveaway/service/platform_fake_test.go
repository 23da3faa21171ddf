package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"discord-giveaway-bot/internal/features/giveaway/models"
)

// fakePlatform records every call and lets tests inject failures.
type fakePlatform struct {
	mu sync.Mutex

	nextID        int
	announcements map[string]models.Announcement
	edits         []models.Announcement
	reactions     map[string][]string
	messages      map[string][]string
	channelNames  map[string][]string
	created       []PrivateChannelRequest
	grants        map[string][]string
	deleted       []string
	members       map[string]models.Member
	admins        []models.Member

	sendAnnouncementErr error
	editErr             func(a models.Announcement) error
	createErr           func(req PrivateChannelRequest, call int) error
	sendMessageErr      func(channelID string) error
	grantErr            func(userID string) error
	createCalls         int
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{
		announcements: make(map[string]models.Announcement),
		reactions:     make(map[string][]string),
		messages:      make(map[string][]string),
		channelNames:  make(map[string][]string),
		grants:        make(map[string][]string),
		members:       make(map[string]models.Member),
	}
}

func (f *fakePlatform) id(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s-%d", prefix, f.nextID)
}

func (f *fakePlatform) SendAnnouncement(_ context.Context, channelID string, a models.Announcement) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendAnnouncementErr != nil {
		return "", f.sendAnnouncementErr
	}
	id := f.id("msg")
	f.announcements[id] = a
	return id, nil
}

func (f *fakePlatform) EditAnnouncement(_ context.Context, _, messageID string, a models.Announcement) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.editErr != nil {
		if err := f.editErr(a); err != nil {
			return err
		}
	}
	f.announcements[messageID] = a
	f.edits = append(f.edits, a)
	return nil
}

func (f *fakePlatform) AddReaction(_ context.Context, _, messageID, _ string) error {
	return nil
}

func (f *fakePlatform) ReactionUsers(_ context.Context, _, messageID, _ string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.reactions[messageID]...), nil
}

func (f *fakePlatform) SendMessage(_ context.Context, channelID, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendMessageErr != nil {
		if err := f.sendMessageErr(channelID); err != nil {
			return err
		}
	}
	f.messages[channelID] = append(f.messages[channelID], content)
	return nil
}

func (f *fakePlatform) ChannelNames(_ context.Context, guildID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.channelNames[guildID]...), nil
}

func (f *fakePlatform) CreatePrivateChannel(_ context.Context, req PrivateChannelRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	if f.createErr != nil {
		if err := f.createErr(req, f.createCalls); err != nil {
			return "", err
		}
	}
	f.created = append(f.created, req)
	f.channelNames[req.GuildID] = append(f.channelNames[req.GuildID], req.Name)
	return f.id("chan"), nil
}

func (f *fakePlatform) GrantVisibility(_ context.Context, channelID, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.grantErr != nil {
		if err := f.grantErr(userID); err != nil {
			return err
		}
	}
	f.grants[channelID] = append(f.grants[channelID], userID)
	return nil
}

func (f *fakePlatform) DeleteChannel(_ context.Context, channelID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, channelID)
	return nil
}

func (f *fakePlatform) Member(_ context.Context, _, userID string) (models.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.members[userID]
	if !ok {
		return models.Member{}, fmt.Errorf("unknown member %s", userID)
	}
	return m, nil
}

func (f *fakePlatform) AdminMembers(_ context.Context, _ string) ([]models.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Member(nil), f.admins...), nil
}

func (f *fakePlatform) createdNames() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	names := make([]string, 0, len(f.created))
	for _, req := range f.created {
		names = append(names, req.Name)
	}
	return names
}

func (f *fakePlatform) announcement(id string) models.Announcement {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.announcements[id]
}

func (f *fakePlatform) messagesIn(channelID string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.messages[channelID]...)
}

func (f *fakePlatform) allMessages() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var b strings.Builder
	for _, msgs := range f.messages {
		for _, m := range msgs {
			b.WriteString(m)
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func (f *fakePlatform) editCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.edits)
}
