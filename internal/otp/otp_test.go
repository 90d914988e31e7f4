package otp

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"bitwise74/pulse-api/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type clock struct {
	now time.Time
}

func (c *clock) Now() time.Time { return c.now }

func (c *clock) advance(d time.Duration) { c.now = c.now.Add(d) }

func newGormStore(t *testing.T) Store {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "otp.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.OTP{}))

	return NewGormStore(db)
}

func newMemoryStore(t *testing.T) Store {
	t.Helper()

	s := NewMemoryStore()
	t.Cleanup(func() { s.Close() })

	return s
}

var stores = map[string]func(t *testing.T) Store{
	"gorm":   newGormStore,
	"memory": newMemoryStore,
}

func newService(t *testing.T, mk func(t *testing.T) Store) (*Service, *clock) {
	t.Helper()

	clk := &clock{now: time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)}
	s := NewService(mk(t))
	s.Now = clk.Now

	return s, clk
}

func TestGenerate(t *testing.T) {
	s := NewService(NewMemoryStore())

	for range 100 {
		code, err := s.Generate()
		require.NoError(t, err)
		require.Len(t, code, CodeLength)
		require.Regexp(t, `^[0-9]{6}$`, code)
	}
}

func TestVerify(t *testing.T) {
	for name, mk := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			t.Run("unknown email", func(t *testing.T) {
				s, _ := newService(t, mk)

				ok, err := s.Verify(ctx, "nobody@example.com", "123456")
				require.NoError(t, err)
				assert.False(t, ok)
			})

			t.Run("single use", func(t *testing.T) {
				s, _ := newService(t, mk)
				require.NoError(t, s.Save(ctx, "a@example.com", "123456"))

				ok, err := s.Verify(ctx, "a@example.com", "123456")
				require.NoError(t, err)
				assert.True(t, ok)

				ok, err = s.Verify(ctx, "a@example.com", "123456")
				require.NoError(t, err)
				assert.False(t, ok)
			})

			t.Run("wrong code keeps record", func(t *testing.T) {
				s, _ := newService(t, mk)
				require.NoError(t, s.Save(ctx, "a@example.com", "123456"))

				ok, err := s.Verify(ctx, "a@example.com", "654321")
				require.NoError(t, err)
				assert.False(t, ok)

				ok, err = s.Verify(ctx, "a@example.com", "123456")
				require.NoError(t, err)
				assert.True(t, ok)
			})

			t.Run("too many wrong codes lock the record", func(t *testing.T) {
				s, clk := newService(t, mk)
				require.NoError(t, s.Save(ctx, "a@example.com", "123456"))

				for range MaxAttempts {
					ok, err := s.Verify(ctx, "a@example.com", "000000")
					require.NoError(t, err)
					require.False(t, ok)
				}

				ok, err := s.Verify(ctx, "a@example.com", "123456")
				require.NoError(t, err)
				assert.False(t, ok)

				// locking must not reset the cooldown
				wait, err := s.TimeUntilResend(ctx, "a@example.com")
				require.NoError(t, err)
				assert.Equal(t, 60, wait)

				clk.advance(Cooldown)
				require.NoError(t, s.Save(ctx, "a@example.com", "654321"))

				ok, err = s.Verify(ctx, "a@example.com", "654321")
				require.NoError(t, err)
				assert.True(t, ok)
			})

			t.Run("expired code is removed", func(t *testing.T) {
				s, clk := newService(t, mk)
				require.NoError(t, s.Save(ctx, "a@example.com", "123456"))

				clk.advance(TTL + time.Second)

				ok, err := s.Verify(ctx, "a@example.com", "123456")
				require.NoError(t, err)
				assert.False(t, ok)

				_, err = s.store.Get(ctx, "a@example.com")
				assert.ErrorIs(t, err, ErrNotFound)
			})

			t.Run("code valid right at expiry", func(t *testing.T) {
				s, clk := newService(t, mk)
				require.NoError(t, s.Save(ctx, "a@example.com", "123456"))

				clk.advance(TTL)

				ok, err := s.Verify(ctx, "a@example.com", "123456")
				require.NoError(t, err)
				assert.True(t, ok)
			})

			t.Run("new code replaces old", func(t *testing.T) {
				s, _ := newService(t, mk)
				require.NoError(t, s.Save(ctx, "a@example.com", "111111"))
				require.NoError(t, s.Save(ctx, "a@example.com", "222222"))

				ok, err := s.Verify(ctx, "a@example.com", "111111")
				require.NoError(t, err)
				assert.False(t, ok)

				ok, err = s.Verify(ctx, "a@example.com", "222222")
				require.NoError(t, err)
				assert.True(t, ok)
			})
		})
	}
}

func TestResendCooldown(t *testing.T) {
	for name, mk := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s, clk := newService(t, mk)

			ok, err := s.CanResend(ctx, "a@example.com")
			require.NoError(t, err)
			assert.True(t, ok)

			require.NoError(t, s.Save(ctx, "a@example.com", "123456"))

			wait, err := s.TimeUntilResend(ctx, "a@example.com")
			require.NoError(t, err)
			assert.Equal(t, 60, wait)

			clk.advance(10*time.Second + 500*time.Millisecond)

			wait, err = s.TimeUntilResend(ctx, "a@example.com")
			require.NoError(t, err)
			assert.Equal(t, 50, wait)

			ok, err = s.CanResend(ctx, "a@example.com")
			require.NoError(t, err)
			assert.False(t, ok)

			clk.advance(49*time.Second + 500*time.Millisecond)

			wait, err = s.TimeUntilResend(ctx, "a@example.com")
			require.NoError(t, err)
			assert.Equal(t, 0, wait)

			ok, err = s.CanResend(ctx, "a@example.com")
			require.NoError(t, err)
			assert.True(t, ok)
		})
	}
}

func TestSweepExpired(t *testing.T) {
	for name, mk := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s, clk := newService(t, mk)

			require.NoError(t, s.Save(ctx, "old@example.com", "123456"))
			clk.advance(3 * time.Minute)
			require.NoError(t, s.Save(ctx, "new@example.com", "123456"))
			clk.advance(3 * time.Minute)

			n, err := s.SweepExpired(ctx, clk.Now())
			require.NoError(t, err)
			assert.EqualValues(t, 1, n)

			_, err = s.store.Get(ctx, "old@example.com")
			assert.ErrorIs(t, err, ErrNotFound)

			ok, err := s.Verify(ctx, "new@example.com", "123456")
			require.NoError(t, err)
			assert.True(t, ok)
		})
	}
}
