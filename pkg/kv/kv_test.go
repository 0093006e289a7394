package kv_test

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/haivivi/v2v/pkg/kv"
)

// backends returns one factory per Store implementation so every test runs
// against both.
func backends() map[string]func(t *testing.T) kv.Store {
	return map[string]func(t *testing.T) kv.Store{
		"memory": func(t *testing.T) kv.Store {
			s := kv.NewMemory()
			t.Cleanup(func() { s.Close() })
			return s
		},
		"badger": func(t *testing.T) kv.Store {
			s, err := kv.NewBadger(kv.BadgerOptions{InMemory: true})
			if err != nil {
				t.Fatalf("NewBadger: %v", err)
			}
			t.Cleanup(func() { s.Close() })
			return s
		},
	}
}

func TestGetSetDelete(t *testing.T) {
	for name, open := range backends() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open(t)

			key := kv.Key{"tts", "ru-RU", "abc"}

			if _, err := s.Get(ctx, key); !errors.Is(err, kv.ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}

			if err := s.Set(ctx, key, []byte("hello")); err != nil {
				t.Fatalf("Set: %v", err)
			}
			got, err := s.Get(ctx, key)
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if string(got) != "hello" {
				t.Fatalf("Get = %q, want %q", got, "hello")
			}

			if err := s.Set(ctx, key, []byte("world")); err != nil {
				t.Fatalf("Set overwrite: %v", err)
			}
			got, _ = s.Get(ctx, key)
			if string(got) != "world" {
				t.Fatalf("Get after overwrite = %q", got)
			}

			if err := s.Delete(ctx, key); err != nil {
				t.Fatalf("Delete: %v", err)
			}
			if _, err := s.Get(ctx, key); !errors.Is(err, kv.ErrNotFound) {
				t.Fatalf("expected ErrNotFound after delete, got %v", err)
			}
			if err := s.Delete(ctx, kv.Key{"no", "such", "key"}); err != nil {
				t.Fatalf("Delete non-existent: %v", err)
			}
		})
	}
}

func TestList(t *testing.T) {
	for name, open := range backends() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open(t)

			for _, k := range []kv.Key{
				{"tts", "ru-RU", "b"},
				{"tts", "ru-RU", "a"},
				{"tts", "ru-RUx", "c"},
				{"tts", "en-US", "d"},
				{"other", "e"},
			} {
				if err := s.Set(ctx, k, []byte(k[len(k)-1])); err != nil {
					t.Fatalf("Set %v: %v", k, err)
				}
			}

			var got []string
			for e, err := range s.List(ctx, kv.Key{"tts", "ru-RU"}) {
				if err != nil {
					t.Fatalf("List: %v", err)
				}
				got = append(got, e.Key.String()+"="+string(e.Value))
			}
			want := []string{"tts:ru-RU:a=a", "tts:ru-RU:b=b"}
			if !slices.Equal(got, want) {
				t.Fatalf("List = %v, want %v", got, want)
			}

			n := 0
			for _, err := range s.List(ctx, nil) {
				if err != nil {
					t.Fatalf("List all: %v", err)
				}
				n++
			}
			if n != 5 {
				t.Fatalf("List all: got %d entries, want 5", n)
			}
		})
	}
}

func TestListEarlyBreak(t *testing.T) {
	for name, open := range backends() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open(t)
			for _, id := range []string{"1", "2", "3"} {
				s.Set(ctx, kv.Key{"p", id}, []byte(id))
			}
			n := 0
			for range s.List(ctx, kv.Key{"p"}) {
				n++
				if n == 2 {
					break
				}
			}
			if n != 2 {
				t.Fatalf("iterated %d entries, want 2", n)
			}
		})
	}
}

func TestMemoryGetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := kv.NewMemory()
	s.Set(ctx, kv.Key{"k"}, []byte("abc"))

	v, _ := s.Get(ctx, kv.Key{"k"})
	v[0] = 'X'

	again, _ := s.Get(ctx, kv.Key{"k"})
	if string(again) != "abc" {
		t.Fatalf("stored value mutated through Get result: %q", again)
	}
}

func TestBadgerRequiresDir(t *testing.T) {
	if _, err := kv.NewBadger(kv.BadgerOptions{}); err == nil {
		t.Fatal("expected error without Dir")
	}
}
