package application

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/example/reminder-bot/internal/persistence"
)

// In-memory repository doubles shared by the service tests. They mimic the
// SQLite repositories closely enough to drive the services, including the
// conflict-skipping batch insert and the conditional sent-flag update.

type userRepoStub struct {
	mu    sync.Mutex
	users map[string]persistence.User
	err   error
}

func newUserRepoStub(users ...persistence.User) *userRepoStub {
	stub := &userRepoStub{users: make(map[string]persistence.User)}
	for _, user := range users {
		stub.users[user.ID] = user
	}
	return stub
}

func (s *userRepoStub) CreateUser(_ context.Context, user persistence.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	for _, existing := range s.users {
		if existing.Phone == user.Phone {
			return persistence.ErrDuplicate
		}
	}
	s.users[user.ID] = user
	return nil
}

func (s *userRepoStub) UpdateUser(_ context.Context, user persistence.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	if _, ok := s.users[user.ID]; !ok {
		return persistence.ErrNotFound
	}
	s.users[user.ID] = user
	return nil
}

func (s *userRepoStub) GetUser(_ context.Context, id string) (persistence.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return persistence.User{}, s.err
	}
	user, ok := s.users[id]
	if !ok {
		return persistence.User{}, persistence.ErrNotFound
	}
	return user, nil
}

func (s *userRepoStub) GetUserByPhone(_ context.Context, phone string) (persistence.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return persistence.User{}, s.err
	}
	for _, user := range s.users {
		if user.Phone == phone {
			return user, nil
		}
	}
	return persistence.User{}, persistence.ErrNotFound
}

func (s *userRepoStub) ListUsers(_ context.Context) ([]persistence.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	users := make([]persistence.User, 0, len(s.users))
	for _, user := range s.users {
		users = append(users, user)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

type templateRepoStub struct {
	mu        sync.Mutex
	templates map[string]persistence.Template
	err       error
}

func newTemplateRepoStub(templates ...persistence.Template) *templateRepoStub {
	stub := &templateRepoStub{templates: make(map[string]persistence.Template)}
	for _, template := range templates {
		stub.templates[template.ID] = template
	}
	return stub
}

func (s *templateRepoStub) CreateTemplate(_ context.Context, template persistence.Template) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.templates[template.ID] = template
	return nil
}

func (s *templateRepoStub) UpdateTemplate(_ context.Context, template persistence.Template) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	if _, ok := s.templates[template.ID]; !ok {
		return persistence.ErrNotFound
	}
	s.templates[template.ID] = template
	return nil
}

func (s *templateRepoStub) GetTemplate(_ context.Context, id string) (persistence.Template, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return persistence.Template{}, s.err
	}
	template, ok := s.templates[id]
	if !ok {
		return persistence.Template{}, persistence.ErrNotFound
	}
	return template, nil
}

func (s *templateRepoStub) ListTemplatesForOwner(_ context.Context, ownerID string) ([]persistence.Template, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	templates := make([]persistence.Template, 0)
	for _, template := range s.templates {
		if template.OwnerID == ownerID {
			templates = append(templates, template)
		}
	}
	sort.Slice(templates, func(i, j int) bool { return templates[i].ID < templates[j].ID })
	return templates, nil
}

func (s *templateRepoStub) ListActiveTemplates(_ context.Context, reference time.Time) ([]persistence.Template, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	templates := make([]persistence.Template, 0)
	for _, template := range s.templates {
		if template.EndsOn == nil || !template.EndsOn.Before(reference) {
			templates = append(templates, template)
		}
	}
	sort.Slice(templates, func(i, j int) bool { return templates[i].ID < templates[j].ID })
	return templates, nil
}

func (s *templateRepoStub) DeleteTemplate(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	if _, ok := s.templates[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(s.templates, id)
	return nil
}

type instanceRepoStub struct {
	mu        sync.Mutex
	instances map[string]persistence.Instance
	err       error
}

func newInstanceRepoStub(instances ...persistence.Instance) *instanceRepoStub {
	stub := &instanceRepoStub{instances: make(map[string]persistence.Instance)}
	for _, instance := range instances {
		stub.instances[instance.ID] = instance
	}
	return stub
}

func (s *instanceRepoStub) CreateInstances(_ context.Context, batch []persistence.Instance) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return 0, s.err
	}
	created := 0
	for _, instance := range batch {
		if instance.TemplateID != nil && s.hasOccurrenceLocked(*instance.TemplateID, instance.EventTime) {
			continue
		}
		s.instances[instance.ID] = instance
		created++
	}
	return created, nil
}

func (s *instanceRepoStub) hasOccurrenceLocked(templateID string, eventTime time.Time) bool {
	for _, existing := range s.instances {
		if existing.TemplateID != nil && *existing.TemplateID == templateID && existing.EventTime.Equal(eventTime) {
			return true
		}
	}
	return false
}

func (s *instanceRepoStub) GetInstance(_ context.Context, id string) (persistence.Instance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return persistence.Instance{}, s.err
	}
	instance, ok := s.instances[id]
	if !ok {
		return persistence.Instance{}, persistence.ErrNotFound
	}
	return instance, nil
}

func (s *instanceRepoStub) ListInstances(_ context.Context, filter persistence.InstanceFilter) ([]persistence.Instance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	matched := make([]persistence.Instance, 0)
	for _, instance := range s.instances {
		if filter.OwnerID != "" && instance.OwnerID != filter.OwnerID {
			continue
		}
		if filter.MessageSent != nil && instance.MessageSent != *filter.MessageSent {
			continue
		}
		if filter.Confirmed != nil && instance.Confirmed != *filter.Confirmed {
			continue
		}
		if filter.Templated != nil && (instance.TemplateID != nil) != *filter.Templated {
			continue
		}
		if filter.From != nil && instance.EventTime.Before(*filter.From) {
			continue
		}
		if filter.Until != nil && instance.EventTime.After(*filter.Until) {
			continue
		}
		matched = append(matched, instance)
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].EventTime.Equal(matched[j].EventTime) {
			return matched[i].EventTime.Before(matched[j].EventTime)
		}
		return matched[i].ID < matched[j].ID
	})
	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}

func (s *instanceRepoStub) MarkMessageSent(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return false, s.err
	}
	instance, ok := s.instances[id]
	if !ok {
		return false, persistence.ErrNotFound
	}
	if instance.MessageSent {
		return false, nil
	}
	instance.MessageSent = true
	s.instances[id] = instance
	return true, nil
}

func (s *instanceRepoStub) Confirm(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	instance, ok := s.instances[id]
	if !ok {
		return persistence.ErrNotFound
	}
	instance.Confirmed = true
	s.instances[id] = instance
	return nil
}

func (s *instanceRepoStub) DeleteFutureInstances(_ context.Context, templateID string, cutoff time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	for id, instance := range s.instances {
		if instance.TemplateID == nil || *instance.TemplateID != templateID {
			continue
		}
		if instance.EventTime.Before(cutoff) {
			continue
		}
		delete(s.instances, id)
	}
	return nil
}

type messageRepoStub struct {
	mu       sync.Mutex
	messages []persistence.Message
	err      error
}

func newMessageRepoStub(messages ...persistence.Message) *messageRepoStub {
	return &messageRepoStub{messages: messages}
}

func (s *messageRepoStub) CreateMessage(_ context.Context, message persistence.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.messages = append(s.messages, message)
	return nil
}

func (s *messageRepoStub) ListRecentMessages(_ context.Context, ownerID string, limit int) ([]persistence.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	matched := make([]persistence.Message, 0)
	for _, message := range s.messages {
		if message.OwnerID == ownerID {
			matched = append(matched, message)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool { return matched[i].Timestamp.Before(matched[j].Timestamp) })
	if limit > 0 && len(matched) > limit {
		matched = matched[len(matched)-limit:]
	}
	return matched, nil
}

func (s *messageRepoStub) CountForInstance(_ context.Context, instanceID string, sentBy string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return 0, s.err
	}
	count := 0
	for _, message := range s.messages {
		if message.InstanceID != nil && *message.InstanceID == instanceID && message.SentBy == sentBy {
			count++
		}
	}
	return count, nil
}

func (s *messageRepoStub) LatestForInstance(_ context.Context, instanceID string, sentBy string) (persistence.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return persistence.Message{}, s.err
	}
	var latest *persistence.Message
	for i := range s.messages {
		message := s.messages[i]
		if message.InstanceID == nil || *message.InstanceID != instanceID || message.SentBy != sentBy {
			continue
		}
		if latest == nil || message.Timestamp.After(latest.Timestamp) {
			latest = &s.messages[i]
		}
	}
	if latest == nil {
		return persistence.Message{}, persistence.ErrNotFound
	}
	return *latest, nil
}

func (s *messageRepoStub) forInstance(instanceID string) []persistence.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	matched := make([]persistence.Message, 0)
	for _, message := range s.messages {
		if message.InstanceID != nil && *message.InstanceID == instanceID {
			matched = append(matched, message)
		}
	}
	return matched
}

type agentStub struct {
	mu       sync.Mutex
	reply    string
	err      error
	requests []AgentRequest
}

func (s *agentStub) Reply(_ context.Context, request AgentRequest) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, request)
	if s.err != nil {
		return "", s.err
	}
	if s.reply == "" {
		return "stub reply", nil
	}
	return s.reply, nil
}

func (s *agentStub) lastRequest() (AgentRequest, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		return AgentRequest{}, false
	}
	return s.requests[len(s.requests)-1], true
}

type gatewayStub struct {
	mu    sync.Mutex
	err   error
	sent  []sentMessage
	calls int
}

type sentMessage struct {
	Phone string
	Text  string
}

func (s *gatewayStub) SendMessage(_ context.Context, phone, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, sentMessage{Phone: phone, Text: text})
	return nil
}

func sequentialIDs(prefix string) func() string {
	counter := 0
	return func() string {
		counter++
		return fmt.Sprintf("%s-%d", prefix, counter)
	}
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func boolPtr(b bool) *bool {
	return &b
}
