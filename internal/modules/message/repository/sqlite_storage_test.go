package repository

import (
	"testing"
)

func newTestSQLiteStorage(t *testing.T) Repository {
	t.Helper()
	repo, err := NewSQLiteStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewSQLiteStorage: %v", err)
	}
	t.Cleanup(func() {
		if err := repo.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return repo
}

func TestSQLiteAddMessageDeduplicates(t *testing.T) {
	repo := newTestSQLiteStorage(t)

	inserted, err := repo.AddMessage(testMessage(123, 1, "first"))
	if err != nil || !inserted {
		t.Fatalf("AddMessage: inserted=%v err=%v", inserted, err)
	}

	inserted, err = repo.AddMessage(testMessage(123, 1, "edited"))
	if err != nil {
		t.Fatalf("AddMessage: %v", err)
	}
	if inserted {
		t.Error("expected duplicate to report false")
	}

	inserted, err = repo.AddMessage(testMessage(456, 1, "other channel"))
	if err != nil || !inserted {
		t.Fatalf("AddMessage: inserted=%v err=%v", inserted, err)
	}

	count, err := repo.Count()
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 records, got %d", count)
	}
}

func TestSQLiteRoundTrip(t *testing.T) {
	repo := newTestSQLiteStorage(t)

	original := testMessage(123, 7, "Ищу разработчика wordpress")
	original.SenderUsername = "@tester"
	original.IsForwarded = true

	if _, err := repo.AddMessage(original); err != nil {
		t.Fatalf("AddMessage: %v", err)
	}

	all, err := repo.LoadAllMessages()
	if err != nil {
		t.Fatalf("LoadAllMessages: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected 1 record, got %d", len(all))
	}

	got := all[0]
	if got.Text != original.Text {
		t.Errorf("text mismatch: %q", got.Text)
	}
	if len(got.FoundKeywords) != 1 || got.FoundKeywords[0] != "test" {
		t.Errorf("keywords mismatch: %v", got.FoundKeywords)
	}
	if !got.Date.Equal(original.Date) {
		t.Errorf("date mismatch: %s", got.Date)
	}
	if got.SenderUsername != "@tester" {
		t.Errorf("sender username mismatch: %q", got.SenderUsername)
	}
	if !got.IsForwarded {
		t.Error("is_forwarded was not preserved")
	}
	if got.StoredAt.IsZero() {
		t.Error("expected stored_at to be set")
	}
}

func TestSQLiteRecentAndSearch(t *testing.T) {
	repo := newTestSQLiteStorage(t)

	texts := []string{"первое", "второе wordpress", "третье"}
	for i, text := range texts {
		if _, err := repo.AddMessage(testMessage(123, i+1, text)); err != nil {
			t.Fatalf("AddMessage: %v", err)
		}
	}

	recent, err := repo.GetRecentMessages(2)
	if err != nil {
		t.Fatalf("GetRecentMessages: %v", err)
	}
	if len(recent) != 2 || recent[0].MessageID != 2 || recent[1].MessageID != 3 {
		t.Errorf("unexpected recent window: %+v", recent)
	}

	found, err := repo.SearchMessages("wordpress")
	if err != nil {
		t.Fatalf("SearchMessages: %v", err)
	}
	if len(found) != 1 || found[0].MessageID != 2 {
		t.Errorf("unexpected search result: %+v", found)
	}
}

func TestSQLiteSearchCaseInsensitiveCyrillic(t *testing.T) {
	repo := newTestSQLiteStorage(t)

	if _, err := repo.AddMessage(testMessage(123, 1, "Ищу разработчика")); err != nil {
		t.Fatalf("AddMessage: %v", err)
	}

	for _, query := range []string{"ищу", "ИЩУ", "Разработчика"} {
		found, err := repo.SearchMessages(query)
		if err != nil {
			t.Fatalf("SearchMessages(%q): %v", query, err)
		}
		if len(found) != 1 {
			t.Errorf("SearchMessages(%q) = %d results, want 1", query, len(found))
		}
	}
}

func TestSQLiteClearMessages(t *testing.T) {
	repo := newTestSQLiteStorage(t)

	if _, err := repo.AddMessage(testMessage(123, 1, "a")); err != nil {
		t.Fatalf("AddMessage: %v", err)
	}
	if err := repo.ClearMessages(); err != nil {
		t.Fatalf("ClearMessages: %v", err)
	}

	count, err := repo.Count()
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 0 {
		t.Errorf("expected empty store, got %d", count)
	}

	inserted, err := repo.AddMessage(testMessage(123, 1, "a"))
	if err != nil || !inserted {
		t.Fatalf("AddMessage after clear: inserted=%v err=%v", inserted, err)
	}
}
