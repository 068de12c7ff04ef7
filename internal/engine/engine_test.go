package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"simplist/internal/models"
	"simplist/internal/store/memory"
)

// stepClock advances one millisecond per call so timestamp assertions
// are deterministic.
type stepClock struct {
	mu sync.Mutex
	t  time.Time
}

func newStepClock() *stepClock {
	return &stepClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Millisecond)
	return c.t
}

type publishCall struct {
	channel string
	payload []byte
}

type publishSpy struct {
	mu    sync.Mutex
	calls []publishCall
}

func (p *publishSpy) Publish(channel string, snapshot []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, publishCall{channel: channel, payload: snapshot})
}

func (p *publishSpy) count(channel string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, c := range p.calls {
		if c.channel == channel {
			n++
		}
	}
	return n
}

func (p *publishSpy) last(channel string) []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := len(p.calls) - 1; i >= 0; i-- {
		if p.calls[i].channel == channel {
			return p.calls[i].payload
		}
	}
	return nil
}

func newTestEngine(t *testing.T) (*Engine, *publishSpy, *memory.DB) {
	t.Helper()
	clock := newStepClock()
	mem := memory.New()
	mem.SetClock(clock.Now)
	spy := &publishSpy{}
	eng := New(Config{
		Lists: mem.Lists(),
		Items: mem.Items(),
		Hub:   spy,
		Now:   clock.Now,
	})
	return eng, spy, mem
}

func TestCreateList(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	ctx := context.Background()

	ml, err := eng.CreateList(ctx, "groceries")
	if err != nil {
		t.Fatal(err)
	}
	if ml.ID == "" {
		t.Fatal("expected an id")
	}
	if len(ml.Items) != 0 {
		t.Fatalf("expected empty items, got %d", len(ml.Items))
	}
	if !ml.CreatedAt.Equal(ml.UpdatedAt) {
		t.Fatalf("expected created_at == updated_at, got %v / %v", ml.CreatedAt, ml.UpdatedAt)
	}
	if ml.Description == nil || *ml.Description != models.DefaultDescription {
		t.Fatal("expected the default public-notice description")
	}
}

func TestCreateListIDsUnique(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	ctx := context.Background()

	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		ml, err := eng.CreateList(ctx, "")
		if err != nil {
			t.Fatal(err)
		}
		if seen[ml.ID] {
			t.Fatalf("id %s issued twice", ml.ID)
		}
		seen[ml.ID] = true
	}
}

func TestMaterializationOrder(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	ctx := context.Background()

	list, err := eng.CreateList(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"first", "second", "third"}
	for _, content := range want {
		if _, err := eng.AddItemToList(ctx, list.ID, content); err != nil {
			t.Fatal(err)
		}
	}

	// The memory store returns items in reverse, so this only passes
	// if materialization reorders by the list's id sequence.
	ml, err := eng.GetList(ctx, list.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(ml.Items) != len(want) {
		t.Fatalf("expected %d items, got %d", len(want), len(ml.Items))
	}
	for i, it := range ml.Items {
		if it.Content != want[i] {
			t.Fatalf("position %d: expected %q, got %q", i, want[i], it.Content)
		}
	}
}

func TestGetListIdempotent(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	ctx := context.Background()

	list, _ := eng.CreateList(ctx, "stable")
	if _, err := eng.AddItemToList(ctx, list.ID, "only"); err != nil {
		t.Fatal(err)
	}

	a, err := eng.GetList(ctx, list.ID)
	if err != nil {
		t.Fatal(err)
	}
	b, err := eng.GetList(ctx, list.ID)
	if err != nil {
		t.Fatal(err)
	}
	ja, _ := json.Marshal(a)
	jb, _ := json.Marshal(b)
	if string(ja) != string(jb) {
		t.Fatalf("two reads with no mutation differ:\n%s\n%s", ja, jb)
	}
}

func TestUpdateListRoundTrip(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	ctx := context.Background()

	list, _ := eng.CreateList(ctx, "before")
	title := "X"
	updated, err := eng.UpdateList(ctx, list.ID, models.ListPatch{Title: &title})
	if err != nil {
		t.Fatal(err)
	}
	if updated.Title != "X" {
		t.Fatalf("expected title X, got %q", updated.Title)
	}
	if !updated.UpdatedAt.After(list.UpdatedAt) {
		t.Fatalf("expected updated_at to advance: %v -> %v", list.UpdatedAt, updated.UpdatedAt)
	}

	got, err := eng.GetList(ctx, list.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "X" {
		t.Fatalf("expected title X after reread, got %q", got.Title)
	}
}

func TestUpdateListEmptyDescriptionIsPresent(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	ctx := context.Background()

	list, _ := eng.CreateList(ctx, "")
	empty := ""
	updated, err := eng.UpdateList(ctx, list.ID, models.ListPatch{Description: &empty})
	if err != nil {
		t.Fatal(err)
	}
	if updated.Description == nil {
		t.Fatal("empty description should be present, not absent")
	}
	if *updated.Description != "" {
		t.Fatalf("expected blank description, got %q", *updated.Description)
	}
}

func TestToggleIsItsOwnInverse(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	ctx := context.Background()

	list, _ := eng.CreateList(ctx, "")
	ml, _ := eng.AddItemToList(ctx, list.ID, "flip me")
	itemID := ml.Items[0].ID

	once, err := eng.ToggleItem(ctx, list.ID, itemID)
	if err != nil {
		t.Fatal(err)
	}
	if !once.Items[0].Checked {
		t.Fatal("expected checked after first toggle")
	}
	twice, err := eng.ToggleItem(ctx, list.ID, itemID)
	if err != nil {
		t.Fatal(err)
	}
	if twice.Items[0].Checked {
		t.Fatal("expected unchecked after second toggle")
	}
}

func TestContentLengthBoundary(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	ctx := context.Background()

	list, _ := eng.CreateList(ctx, "")

	ml, err := eng.AddItemToList(ctx, list.ID, strings.Repeat("é", models.MaxContentLen))
	if err != nil {
		t.Fatalf("content of exactly %d chars must be accepted: %v", models.MaxContentLen, err)
	}
	if len(ml.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(ml.Items))
	}

	_, err = eng.AddItemToList(ctx, list.ID, strings.Repeat("a", models.MaxContentLen+1))
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}

	// Rejected before any store mutation: item count unchanged.
	got, _ := eng.GetList(ctx, list.ID)
	if len(got.Items) != 1 {
		t.Fatalf("rejected add must not mutate the store, got %d items", len(got.Items))
	}
}

func TestTitleAndDescriptionLimits(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	ctx := context.Background()

	if _, err := eng.CreateList(ctx, strings.Repeat("t", models.MaxTitleLen+1)); err == nil {
		t.Fatal("expected oversized title to be rejected")
	}
	list, _ := eng.CreateList(ctx, "")
	long := strings.Repeat("d", models.MaxDescriptionLen+1)
	_, err := eng.UpdateList(ctx, list.ID, models.ListPatch{Description: &long})
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestItemLifecycleScenario(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	ctx := context.Background()

	list, _ := eng.CreateList(ctx, "chores")
	ml, err := eng.AddItemToList(ctx, list.ID, "Buy milk")
	if err != nil {
		t.Fatal(err)
	}
	if len(ml.Items) != 1 || ml.Items[0].Checked {
		t.Fatalf("expected one unchecked item, got %+v", ml.Items)
	}
	itemID := ml.Items[0].ID

	toggled, err := eng.ToggleItem(ctx, list.ID, itemID)
	if err != nil {
		t.Fatal(err)
	}
	if !toggled.Items[0].Checked {
		t.Fatal("expected checked after toggle")
	}
	if !toggled.UpdatedAt.After(ml.UpdatedAt) {
		t.Fatal("expected list updated_at to advance on item toggle")
	}

	removed, err := eng.RemoveItem(ctx, list.ID, itemID)
	if err != nil {
		t.Fatal(err)
	}
	if len(removed.Items) != 0 {
		t.Fatalf("expected zero items after removal, got %d", len(removed.Items))
	}
}

func TestConcurrentAdds(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	ctx := context.Background()

	list, _ := eng.CreateList(ctx, "")
	const n = 16
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := eng.AddItemToList(ctx, list.ID, fmt.Sprintf("item-%d", i)); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatal(err)
	}

	ml, err := eng.GetList(ctx, list.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(ml.Items) != n {
		t.Fatalf("expected %d items after concurrent adds, got %d", n, len(ml.Items))
	}
	seen := make(map[string]bool, n)
	for _, it := range ml.Items {
		if seen[it.ID] {
			t.Fatalf("item id %s duplicated", it.ID)
		}
		seen[it.ID] = true
	}
}

func TestReorder(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	ctx := context.Background()

	list, _ := eng.CreateList(ctx, "")
	var ml *models.MaterializedList
	for _, content := range []string{"a", "b", "c"} {
		ml, _ = eng.AddItemToList(ctx, list.ID, content)
	}
	ids := []string{ml.Items[2].ID, ml.Items[0].ID, ml.Items[1].ID}

	got, err := eng.UpdateList(ctx, list.ID, models.ListPatch{Items: &ids})
	if err != nil {
		t.Fatal(err)
	}
	order := []string{got.Items[0].Content, got.Items[1].Content, got.Items[2].Content}
	if order[0] != "c" || order[1] != "a" || order[2] != "b" {
		t.Fatalf("expected order c,a,b, got %v", order)
	}
}

func TestReorderRejectsBadIDSets(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	ctx := context.Background()

	list, _ := eng.CreateList(ctx, "")
	ml, _ := eng.AddItemToList(ctx, list.ID, "a")
	ml, _ = eng.AddItemToList(ctx, list.ID, "b")
	a, b := ml.Items[0].ID, ml.Items[1].ID

	var ve *ValidationError
	for name, ids := range map[string][]string{
		"unknown id": {a, "forged"},
		"dropped id": {a},
		"duplicate":  {a, a},
		"extra":      {a, b, "extra"},
	} {
		_, err := eng.UpdateList(ctx, list.ID, models.ListPatch{Items: &ids})
		if !errors.As(err, &ve) {
			t.Fatalf("%s: expected ValidationError, got %v", name, err)
		}
	}

	// The ordering must be untouched after the rejections.
	got, _ := eng.GetList(ctx, list.ID)
	if got.Items[0].ID != a || got.Items[1].ID != b {
		t.Fatal("rejected reorder mutated the list")
	}
}

func TestNotFound(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	ctx := context.Background()
	var nf *NotFoundError

	if _, err := eng.GetList(ctx, "ghost"); !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if _, err := eng.AddItemToList(ctx, "ghost", "x"); !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	list, _ := eng.CreateList(ctx, "")
	if _, err := eng.ToggleItem(ctx, list.ID, "ghost"); !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	checked := true
	if _, err := eng.EditItem(ctx, list.ID, "ghost", models.ItemPatch{Checked: &checked}); !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if _, err := eng.RemoveItem(ctx, "ghost", "whatever"); !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestPublishPerMutation(t *testing.T) {
	eng, spy, _ := newTestEngine(t)
	ctx := context.Background()

	l, _ := eng.CreateList(ctx, "watched")
	m, _ := eng.CreateList(ctx, "quiet")

	ml, _ := eng.AddItemToList(ctx, l.ID, "one")
	_, _ = eng.ToggleItem(ctx, l.ID, ml.Items[0].ID)

	// create + add + toggle on L, create only on M
	if got := spy.count(l.ID); got != 3 {
		t.Fatalf("expected 3 publishes on %s, got %d", l.ID, got)
	}
	if got := spy.count(m.ID); got != 1 {
		t.Fatalf("expected 1 publish on %s, got %d", m.ID, got)
	}

	// The published payload equals what a contemporaneous read returns.
	current, _ := eng.GetList(ctx, l.ID)
	want, _ := json.Marshal(current)
	if string(spy.last(l.ID)) != string(want) {
		t.Fatalf("published snapshot differs from GetList:\n%s\n%s", spy.last(l.ID), want)
	}
}

func TestEditItemRefreshesListTimestamp(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	ctx := context.Background()

	list, _ := eng.CreateList(ctx, "")
	ml, _ := eng.AddItemToList(ctx, list.ID, "draft")
	content := "final"
	edited, err := eng.EditItem(ctx, list.ID, ml.Items[0].ID, models.ItemPatch{Content: &content})
	if err != nil {
		t.Fatal(err)
	}
	if edited.Items[0].Content != "final" {
		t.Fatalf("expected edited content, got %q", edited.Items[0].Content)
	}
	if !edited.UpdatedAt.After(ml.UpdatedAt) {
		t.Fatal("expected list updated_at to advance on item edit")
	}
}

func TestReconcileItemDeletesOrphan(t *testing.T) {
	eng, _, mem := newTestEngine(t)
	ctx := context.Background()

	orphan := &models.Item{ID: "orphan", Content: "stray", ListID: "ghost", Status: models.StatusActive}
	if err := mem.Items().Insert(ctx, orphan); err != nil {
		t.Fatal(err)
	}
	if err := eng.ReconcileItem(ctx, "ghost", "orphan"); err != nil {
		t.Fatal(err)
	}
	left, _ := mem.Items().FindByIDs(ctx, []string{"orphan"})
	if len(left) != 0 {
		t.Fatal("expected orphaned item to be soft-deleted")
	}
}

func TestReconcileItemKeepsOwnedItem(t *testing.T) {
	eng, _, mem := newTestEngine(t)
	ctx := context.Background()

	list, _ := eng.CreateList(ctx, "")
	ml, _ := eng.AddItemToList(ctx, list.ID, "keep")
	if err := eng.ReconcileItem(ctx, list.ID, ml.Items[0].ID); err != nil {
		t.Fatal(err)
	}
	left, _ := mem.Items().FindByIDs(ctx, []string{ml.Items[0].ID})
	if len(left) != 1 {
		t.Fatal("item with a live list must not be reconciled away")
	}
}
