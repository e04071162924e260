package session

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/crimson-sun/moodlens/internal/model"
)

// exerciseStore runs the lifecycle every Store must honour.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	if err := s.Create(ctx, "s1"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := s.Create(ctx, "s1"); !errors.Is(err, ErrExists) {
		t.Fatalf("second Create = %v, want ErrExists", err)
	}

	turns, err := s.List(ctx, "s1")
	if err != nil || len(turns) != 0 {
		t.Fatalf("List on new session = (%v, %v)", turns, err)
	}

	greeting := model.Turn{Role: model.RoleAssistant, Content: "hello", CreatedAt: now}
	user := model.Turn{Role: model.RoleUser, Content: "I feel scared", CreatedAt: now.Add(time.Second)}
	reply := model.Turn{Role: model.RoleAssistant, Content: "breathe", Emotion: "fear", Severity: model.High, CreatedAt: now.Add(2 * time.Second)}
	if err := s.Append(ctx, "s1", greeting); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := s.Append(ctx, "s1", user, reply); err != nil {
		t.Fatalf("Append: %v", err)
	}

	turns, err = s.List(ctx, "s1")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []model.Turn{greeting, user, reply}
	if len(turns) != len(want) {
		t.Fatalf("List returned %d turns, want %d", len(turns), len(want))
	}
	for i := range want {
		got := turns[i]
		if got.Role != want[i].Role || got.Content != want[i].Content ||
			got.Emotion != want[i].Emotion || got.Severity != want[i].Severity ||
			!got.CreatedAt.Equal(want[i].CreatedAt) {
			t.Errorf("turn %d = %+v, want %+v", i, got, want[i])
		}
	}

	if err := s.Append(ctx, "missing", user); !errors.Is(err, ErrNotFound) {
		t.Errorf("Append(missing) = %v, want ErrNotFound", err)
	}
	if err := s.Delete(ctx, "s1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.List(ctx, "s1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("List after Delete = %v, want ErrNotFound", err)
	}
	if err := s.Delete(ctx, "s1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete = %v, want ErrNotFound", err)
	}
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemory())
}

func TestSQLiteStore(t *testing.T) {
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "sessions.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer s.Close()
	exerciseStore(t, s)
}

func TestSQLiteErrorsCarryOperation(t *testing.T) {
	ctx := context.Background()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "sessions.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	if err := s.Create(ctx, "s"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := s.Create(ctx, "s"); err != ErrExists {
		t.Errorf("duplicate Create = %v, want bare ErrExists", err)
	}
	if err := s.Append(ctx, "missing", model.Turn{Role: model.RoleUser}); err != ErrNotFound {
		t.Errorf("Append missing = %v, want bare ErrNotFound", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	cases := []struct {
		op   string
		call func() error
	}{
		{"create", func() error { return s.Create(ctx, "t") }},
		{"append", func() error { return s.Append(ctx, "s", model.Turn{Role: model.RoleUser}) }},
		{"list", func() error { _, err := s.List(ctx, "s"); return err }},
		{"delete", func() error { return s.Delete(ctx, "s") }},
	}
	for _, tc := range cases {
		t.Run(tc.op, func(t *testing.T) {
			err := tc.call()
			if err == nil {
				t.Fatal("expected error on closed store")
			}
			if want := "session: " + tc.op + ":"; !strings.HasPrefix(err.Error(), want) {
				t.Errorf("error = %q, want prefix %q", err, want)
			}
			if errors.Is(err, ErrNotFound) || errors.Is(err, ErrExists) {
				t.Errorf("driver error %v reported as a store sentinel", err)
			}
		})
	}
}

func TestMemoryListReturnsCopy(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	m.Create(ctx, "s")
	m.Append(ctx, "s", model.Turn{Role: model.RoleUser, Content: "a"})

	turns, _ := m.List(ctx, "s")
	turns[0].Content = "mutated"
	again, _ := m.List(ctx, "s")
	if again[0].Content != "a" {
		t.Error("List exposed internal storage")
	}
}

func TestMemoryConcurrentAppend(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	m.Create(ctx, "s")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m.Append(ctx, "s", model.Turn{Role: model.RoleUser, Content: fmt.Sprint(i)})
		}(i)
	}
	wg.Wait()

	turns, _ := m.List(ctx, "s")
	if len(turns) != 50 {
		t.Errorf("got %d turns, want 50", len(turns))
	}
	if m.Len() != 1 {
		t.Errorf("Len = %d, want 1", m.Len())
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, Config{Kind: KindMemory})
	if err != nil {
		t.Fatalf("Open(memory): %v", err)
	}
	if _, ok := s.(*Memory); !ok {
		t.Errorf("Open(memory) returned %T", s)
	}

	s, err = Open(ctx, Config{Kind: KindSQLite, SQLitePath: filepath.Join(t.TempDir(), "s.db")})
	if err != nil {
		t.Fatalf("Open(sqlite): %v", err)
	}
	s.Close()

	if _, err := Open(ctx, Config{Kind: "redis"}); err == nil {
		t.Error("expected error for unknown kind")
	}
	if _, err := Open(ctx, Config{Kind: KindPostgres}); err == nil {
		t.Error("expected error for postgres without a URL")
	}
}
