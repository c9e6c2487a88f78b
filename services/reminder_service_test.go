package services_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/omaree-johnson/myumrahesim-sub002/apperrors"
	"github.com/omaree-johnson/myumrahesim-sub002/models"
	"github.com/omaree-johnson/myumrahesim-sub002/repository"
	"github.com/omaree-johnson/myumrahesim-sub002/sender"
	"github.com/omaree-johnson/myumrahesim-sub002/services"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

// ---- stateful fake cart repository ----
//
// Implements the real conditional-update semantics in memory so the
// scheduler's race handling is exercised, not just stubbed.

type fakeCartRepo struct {
	mu       sync.Mutex
	sessions map[string]*models.CartSession

	setReminderErr error // next SetReminderIfUnset fails with this
	convertOnSet   bool  // simulate a conversion landing between dispatch and persist
}

func newFakeCartRepo() *fakeCartRepo {
	return &fakeCartRepo{sessions: map[string]*models.CartSession{}}
}

func (f *fakeCartRepo) Upsert(_ context.Context, token, email string, items models.PlanItems, currency string) (*models.CartSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.sessions[token]; ok {
		s.Email = email
		s.Items = items
		s.Currency = currency
	} else {
		f.sessions[token] = &models.CartSession{Token: token, Email: email, Items: items, Currency: currency}
	}
	copied := *f.sessions[token]
	return &copied, nil
}

func (f *fakeCartRepo) FindByToken(_ context.Context, token string) (*models.CartSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[token]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *s
	return &copied, nil
}

func (f *fakeCartRepo) SetReminderIfUnset(_ context.Context, token string, slot int, messageID string, scheduledAt time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setReminderErr != nil {
		err := f.setReminderErr
		f.setReminderErr = nil
		return false, err
	}
	s, ok := f.sessions[token]
	if !ok {
		return false, nil
	}
	if f.convertOnSet {
		now := time.Now()
		s.ConvertedAt = &now
		f.convertOnSet = false
	}
	if s.ConvertedAt != nil {
		return false, nil
	}
	id, at := &s.Reminder1EmailID, &s.Reminder1ScheduledAt
	if slot == repository.ReminderSlot2 {
		id, at = &s.Reminder2EmailID, &s.Reminder2ScheduledAt
	}
	if *id != nil {
		return false, nil
	}
	*id = &messageID
	*at = &scheduledAt
	return true, nil
}

func (f *fakeCartRepo) MarkConvertedIfActive(_ context.Context, token string, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[token]
	if !ok || s.ConvertedAt != nil {
		return false, nil
	}
	s.ConvertedAt = &at
	return true, nil
}

// ---- recording mock sender ----

type sentMessage struct {
	to     string
	sendAt *time.Time
}

type mockEmailSender struct {
	mu        sync.Mutex
	sent      []sentMessage
	cancelled []string
	sendErr   error
	nextID    int
}

func (m *mockEmailSender) Send(_ context.Context, msg sender.Message) (sender.SendResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return sender.SendResult{}, m.sendErr
	}
	m.nextID++
	m.sent = append(m.sent, sentMessage{to: msg.To, sendAt: msg.SendAt})
	return sender.SendResult{MessageID: fmt.Sprintf("msg_%d", m.nextID), SentAt: time.Now()}, nil
}

func (m *mockEmailSender) Cancel(_ context.Context, messageID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancelled = append(m.cancelled, messageID)
	return nil
}

// ---- stub renderer / publisher ----

type stubRenderer struct{}

func (stubRenderer) Render(name string, _ interface{}) (string, string, error) {
	return "subject: " + name, "<html></html>", nil
}

type mockPublisher struct {
	mu     sync.Mutex
	events []models.ConversionEvent
	err    error
}

func (m *mockPublisher) SendConversionEvent(_ context.Context, event models.ConversionEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, event)
	return nil
}

// ---- helpers ----

func newTestReminderService(repo repository.CartSessionRepository, email *mockEmailSender, pub *mockPublisher) services.ReminderService {
	logger, _ := zap.NewDevelopment()
	return services.NewReminderService(
		repo, email, stubRenderer{}, pub,
		time.Hour, 24*time.Hour,
		"https://myumrahesim.com", logger,
	)
}

func saveReq(token string) models.SaveCartRequest {
	return models.SaveCartRequest{
		Token: token,
		Email: "test@example.com",
		Items: []models.PlanItem{{OfferID: "plan-7d", Name: "7-Day Umrah eSIM", Quantity: 1}},
	}
}

// ---- tests ----

func TestSaveOrUpdateCart_SchedulesBothReminders(t *testing.T) {
	repo := newFakeCartRepo()
	email := &mockEmailSender{}
	svc := newTestReminderService(repo, email, &mockPublisher{})

	session, err := svc.SaveOrUpdateCart(context.Background(), saveReq("tok_1"))

	assert.NoError(t, err)
	assert.Len(t, email.sent, 2)
	assert.Equal(t, "test@example.com", email.sent[0].to)
	assert.NotNil(t, email.sent[0].sendAt, "delay must travel as send_at data")
	assert.NotNil(t, session.Reminder1EmailID)
	assert.NotNil(t, session.Reminder2EmailID)
	assert.NotNil(t, session.Reminder1ScheduledAt)
	assert.NotNil(t, session.Reminder2ScheduledAt)
	assert.True(t, email.sent[1].sendAt.After(*email.sent[0].sendAt),
		"reminder 2 is scheduled after reminder 1")
}

func TestSaveOrUpdateCart_GeneratesTokenWhenBlank(t *testing.T) {
	repo := newFakeCartRepo()
	svc := newTestReminderService(repo, &mockEmailSender{}, &mockPublisher{})

	session, err := svc.SaveOrUpdateCart(context.Background(), saveReq(""))

	assert.NoError(t, err)
	assert.Contains(t, session.Token, "crt_")
}

func TestSaveOrUpdateCart_ResaveDoesNotRescheduleReminders(t *testing.T) {
	repo := newFakeCartRepo()
	email := &mockEmailSender{}
	svc := newTestReminderService(repo, email, &mockPublisher{})

	first, err := svc.SaveOrUpdateCart(context.Background(), saveReq("tok_1"))
	assert.NoError(t, err)

	second, err := svc.SaveOrUpdateCart(context.Background(), saveReq("tok_1"))
	assert.NoError(t, err)

	assert.Len(t, email.sent, 2, "re-save must not send again")
	assert.Equal(t, *first.Reminder1EmailID, *second.Reminder1EmailID)
	assert.Equal(t, *first.Reminder2EmailID, *second.Reminder2EmailID)
}

func TestSaveOrUpdateCart_ConvertedSessionGetsNoReminders(t *testing.T) {
	repo := newFakeCartRepo()
	email := &mockEmailSender{}
	svc := newTestReminderService(repo, email, &mockPublisher{})

	_, err := svc.SaveOrUpdateCart(context.Background(), saveReq("tok_1"))
	assert.NoError(t, err)
	assert.NoError(t, svc.MarkConverted(context.Background(), "tok_1"))

	sentBefore := len(email.sent)
	_, err = svc.SaveOrUpdateCart(context.Background(), saveReq("tok_1"))
	assert.NoError(t, err)
	assert.Len(t, email.sent, sentBefore, "converted sessions receive no further reminders")
}

func TestScheduleReminders_DispatchFailureSkipsSecondReminder(t *testing.T) {
	repo := newFakeCartRepo()
	email := &mockEmailSender{sendErr: errors.New("provider down")}
	svc := newTestReminderService(repo, email, &mockPublisher{})

	// the save itself must still succeed; scheduling problems are logged
	session, err := svc.SaveOrUpdateCart(context.Background(), saveReq("tok_1"))
	assert.NoError(t, err)
	assert.Nil(t, session.Reminder1EmailID)
	assert.Nil(t, session.Reminder2EmailID)
}

func TestScheduleReminders_PartialPersistFailureLeavesFieldsNull(t *testing.T) {
	repo := newFakeCartRepo()
	repo.setReminderErr = errors.New("db write failed")
	email := &mockEmailSender{}
	svc := newTestReminderService(repo, email, &mockPublisher{})

	session, err := svc.SaveOrUpdateCart(context.Background(), saveReq("tok_1"))

	assert.NoError(t, err, "HTTP contract only requires scheduling accepted")
	// the email went out but the record stayed null: that is the detectable
	// partial-schedule state, and reminder 2 stays ineligible
	assert.GreaterOrEqual(t, len(email.sent), 1)
	assert.Nil(t, session.Reminder1EmailID)
	assert.Nil(t, session.Reminder2EmailID)
}

func TestScheduleReminders_ConversionRaceCancelsDispatchedEmail(t *testing.T) {
	repo := newFakeCartRepo()
	repo.convertOnSet = true // conversion lands between dispatch and persist
	email := &mockEmailSender{}
	svc := newTestReminderService(repo, email, &mockPublisher{})

	session, err := svc.SaveOrUpdateCart(context.Background(), saveReq("tok_1"))

	assert.NoError(t, err)
	assert.Nil(t, session.Reminder1EmailID)
	assert.Len(t, email.cancelled, 1, "the orphaned scheduled send must be recalled")
}

func TestMarkConverted_NotFound(t *testing.T) {
	repo := newFakeCartRepo()
	svc := newTestReminderService(repo, &mockEmailSender{}, &mockPublisher{})

	err := svc.MarkConverted(context.Background(), "missing")

	appErr := apperrors.From(err)
	assert.Equal(t, apperrors.KindNotFound, appErr.Kind)
}

func TestMarkConverted_IsIdempotent(t *testing.T) {
	repo := newFakeCartRepo()
	pub := &mockPublisher{}
	svc := newTestReminderService(repo, &mockEmailSender{}, pub)

	_, err := svc.SaveOrUpdateCart(context.Background(), saveReq("tok_1"))
	assert.NoError(t, err)

	assert.NoError(t, svc.MarkConverted(context.Background(), "tok_1"))
	assert.NoError(t, svc.MarkConverted(context.Background(), "tok_1"), "second call is a no-op, not an error")

	session, _ := repo.FindByToken(context.Background(), "tok_1")
	assert.NotNil(t, session.ConvertedAt)
	assert.Len(t, pub.events, 1, "exactly one conversion event")
	assert.Equal(t, "cart.converted", pub.events[0].Event)
}

func TestMarkConverted_CancelsPendingReminders(t *testing.T) {
	repo := newFakeCartRepo()
	email := &mockEmailSender{}
	svc := newTestReminderService(repo, email, &mockPublisher{})

	_, err := svc.SaveOrUpdateCart(context.Background(), saveReq("tok_1"))
	assert.NoError(t, err)
	assert.NoError(t, svc.MarkConverted(context.Background(), "tok_1"))

	assert.Len(t, email.cancelled, 2, "both scheduled reminders are recalled")
}

func TestMarkConverted_PublishFailureDoesNotFailConversion(t *testing.T) {
	repo := newFakeCartRepo()
	pub := &mockPublisher{err: errors.New("broker down")}
	svc := newTestReminderService(repo, &mockEmailSender{}, pub)

	_, err := svc.SaveOrUpdateCart(context.Background(), saveReq("tok_1"))
	assert.NoError(t, err)

	assert.NoError(t, svc.MarkConverted(context.Background(), "tok_1"))
	session, _ := repo.FindByToken(context.Background(), "tok_1")
	assert.NotNil(t, session.ConvertedAt)
}

func TestScheduleReminders_ConcurrentSchedulersSendOnce(t *testing.T) {
	repo := newFakeCartRepo()
	email := &mockEmailSender{}
	svc := newTestReminderService(repo, email, &mockPublisher{})

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = svc.SaveOrUpdateCart(context.Background(), saveReq("tok_1"))
		}()
	}
	wg.Wait()

	session, err := repo.FindByToken(context.Background(), "tok_1")
	assert.NoError(t, err)
	assert.NotNil(t, session.Reminder1EmailID)
	assert.NotNil(t, session.Reminder2EmailID)

	// every send that lost its conditional update must have been cancelled
	email.mu.Lock()
	defer email.mu.Unlock()
	assert.Equal(t, len(email.sent)-2, len(email.cancelled),
		"all but the two winning sends are recalled")
}
