package application

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"bitwise74/pulse-api/internal/model"
	"bitwise74/pulse-api/pkg/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{objects: map[string][]byte{}}
}

func (m *memStore) Put(_ context.Context, key string, body io.Reader, _ int64, _ string) error {
	b, err := io.ReadAll(body)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = b

	return nil
}

func (m *memStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.objects[key]
	if !ok {
		return nil, errors.New("no such key")
	}

	return b, nil
}

func (m *memStore) List(_ context.Context, prefix string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var keys []string
	for k := range m.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	return keys, nil
}

func (m *memStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)

	return nil
}

type fakeUsers struct {
	byEmail map[string]*model.User
}

func (f *fakeUsers) ExistsByEmail(_ context.Context, email string) (bool, error) {
	_, ok := f.byEmail[email]
	return ok, nil
}

func (f *fakeUsers) Create(_ context.Context, a model.Application) (*model.User, error) {
	u := &model.User{
		ID:                "u-" + a.Email,
		Application:       a,
		ApplicationStatus: model.StatusPending,
		Role:              model.RoleApplicant,
	}
	f.byEmail[a.Email] = u

	return u, nil
}

func form(email string) model.Application {
	return model.Application{
		Name:             "Usman Tariq",
		Email:            email,
		Gender:           "male",
		PrimaryPhone:     "+92 321 0000000",
		CurrentCity:      "Karachi",
		PermanentCity:    "Multan",
		YearsOfEducation: "16",
		HighestDegree:    "BSc",
		Majors:           "Mathematics",
		University:       "NUST",
		YearOfCompletion: "2021",
		TotalExperience:  "6",
		ExperienceUnit:   "months",
		WorkingDays:      "yes",
		Weekends:         "yes",
		OnsiteSessions:   "no",
		RemoteSessions:   "yes",
		RedTeam:          true,
		Consent:          true,
	}
}

func setup() (*Service, *memStore, *fakeUsers) {
	store := newMemStore()
	users := &fakeUsers{byEmail: map[string]*model.User{}}

	s := NewService(store, users)
	s.Now = func() time.Time { return time.Date(2025, 6, 2, 9, 30, 0, 0, time.UTC) }

	return s, store, users
}

func TestSubmit(t *testing.T) {
	s, store, _ := setup()
	ctx := context.Background()

	res, err := s.Submit(ctx, form("Usman@Example.com"))
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.True(t, strings.HasPrefix(res.Key, "applications/2025-06-02/applicant-"))
	assert.True(t, strings.HasSuffix(res.Key, ".json"))

	raw, err := store.Get(ctx, res.Key)
	require.NoError(t, err)

	var sub model.Submission
	require.NoError(t, json.Unmarshal(raw, &sub))
	assert.Equal(t, "usman@example.com", sub.Email)
	assert.Equal(t, "2025-06-02T09:30:00Z", sub.SubmittedAt)
	assert.False(t, sub.Processed)
}

func TestSubmitRejects(t *testing.T) {
	ctx := context.Background()

	t.Run("invalid form", func(t *testing.T) {
		s, store, _ := setup()

		f := form("usman@example.com")
		f.Consent = false

		_, err := s.Submit(ctx, f)
		assert.True(t, apperr.Is(err, apperr.KindBadRequest))
		assert.Empty(t, store.objects)
	})

	t.Run("existing user", func(t *testing.T) {
		s, store, users := setup()
		users.byEmail["usman@example.com"] = &model.User{}

		_, err := s.Submit(ctx, form("usman@example.com"))
		var ae *apperr.Error
		require.ErrorAs(t, err, &ae)
		assert.Equal(t, "An application with this email already exists", ae.Message)
		assert.Empty(t, store.objects)
	})
}

func TestProcessDaily(t *testing.T) {
	s, store, users := setup()
	ctx := context.Background()

	for _, e := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		_, err := s.Submit(ctx, form(e))
		require.NoError(t, err)
	}

	// c registered between submission and processing
	users.byEmail["c@example.com"] = &model.User{ID: "existing"}

	// a form from another day is left alone
	store.objects["applications/2025-06-01/applicant-old.json"] = []byte(`{"email":"old@example.com"}`)
	// non json objects are ignored
	store.objects["applications/2025-06-02/readme.txt"] = []byte("x")

	res, err := s.ProcessDaily(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Processed)
	assert.Equal(t, 1, res.Failed)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "email already exists")

	assert.Equal(t, model.StatusPending, users.byEmail["a@example.com"].ApplicationStatus)
	assert.Equal(t, model.RoleApplicant, users.byEmail["b@example.com"].Role)
	assert.Equal(t, "existing", users.byEmail["c@example.com"].ID)

	keys, err := store.List(ctx, "applications/")
	require.NoError(t, err)
	assert.Equal(t, []string{"applications/2025-06-01/applicant-old.json", "applications/2025-06-02/readme.txt"}, keys)

	res, err = s.ProcessDaily(ctx)
	require.NoError(t, err)
	assert.Zero(t, res.Processed)
	assert.Zero(t, res.Failed)
}

func TestProcessApplicantSkipsProcessed(t *testing.T) {
	s, store, users := setup()

	store.objects["applications/2025-06-02/applicant-1.json"] = []byte(`{"email":"a@example.com","processed":true}`)

	_, err := s.ProcessApplicant(context.Background(), "applications/2025-06-02/applicant-1.json")
	assert.ErrorIs(t, err, ErrAlreadyProcessed)
	assert.Empty(t, users.byEmail)
}
