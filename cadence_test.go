package cadence_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/aretw0/cadence"
	"github.com/aretw0/cadence/pkg/adapters/memory"
	"github.com/aretw0/cadence/pkg/domain"
	"github.com/aretw0/cadence/pkg/ports"
)

func manualSettings() domain.Settings {
	s := domain.DefaultSettings()
	s.AutoAdvance = false
	return s
}

// trackingPresenter collects applied beat ids for assertions.
type trackingPresenter struct {
	ports.BasePresenter
	mu  sync.Mutex
	ids []domain.BeatID
}

func (p *trackingPresenter) ApplyBeatState(_ domain.BeatState, id domain.BeatID, _ int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ids = append(p.ids, id)
}

func (p *trackingPresenter) seen() []domain.BeatID {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.BeatID, len(p.ids))
	copy(out, p.ids)
	return out
}

func TestFacade_Integration(t *testing.T) {
	loader, err := memory.NewFromBeats(
		domain.Beat{ID: "start", State: domain.BeatState{domain.KeyContent: "Hello World"}},
		domain.Beat{ID: "middle", State: domain.BeatState{domain.KeyContent: "Still here"}},
		domain.Beat{ID: "finish", State: domain.BeatState{domain.KeyContent: "Goodbye"}},
	)
	if err != nil {
		t.Fatal(err)
	}

	presenter := &trackingPresenter{}
	story, err := cadence.New(presenter,
		cadence.WithLoader(loader),
		cadence.WithSettings(manualSettings()),
	)
	if err != nil {
		t.Fatalf("Failed to initialize story: %v", err)
	}
	defer story.Close()

	if story.Size() != 3 {
		t.Fatalf("Expected 3 beats, got %d", story.Size())
	}

	ctx := context.Background()
	story.Start(ctx)

	snap := story.State()
	if snap.CurrentID != "start" {
		t.Errorf("Expected initial beat 'start', got '%s'", snap.CurrentID)
	}
	if snap.Status != domain.StatusActive {
		t.Errorf("Expected active status, got '%s'", snap.Status)
	}

	story.Handle(ctx, domain.CommandAdvance)
	if got := story.State().CurrentID; got != "middle" {
		t.Errorf("Expected 'middle' after advance, got '%s'", got)
	}

	if err := story.ShowBeat(ctx, "finish"); err != nil {
		t.Fatalf("ShowBeat failed: %v", err)
	}
	if got := story.State().CurrentID; got != "finish" {
		t.Errorf("Expected 'finish' after direct show, got '%s'", got)
	}

	story.End(ctx)
	if got := story.State().Status; got != domain.StatusEnded {
		t.Errorf("Expected ended status, got '%s'", got)
	}

	want := []domain.BeatID{"start", "middle", "finish"}
	got := presenter.seen()
	if len(got) != len(want) {
		t.Fatalf("Expected %d applied beats, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Applied beat %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestNew_RequiresPresenter(t *testing.T) {
	_, err := cadence.New(nil)
	if !errors.Is(err, domain.ErrNoPresenter) {
		t.Fatalf("Expected ErrNoPresenter, got %v", err)
	}
}

func TestNew_RejectsDuplicateBeats(t *testing.T) {
	_, err := cadence.New(ports.BasePresenter{},
		cadence.WithBeats(domain.Beat{ID: "dup"}, domain.Beat{ID: "dup"}),
	)
	if !errors.Is(err, domain.ErrDuplicateBeat) {
		t.Fatalf("Expected ErrDuplicateBeat, got %v", err)
	}
}

func TestNew_RejectsEmptyDocument(t *testing.T) {
	loader := memory.NewLoader(domain.StoryDocument{Name: "empty"})
	_, err := cadence.New(ports.BasePresenter{}, cadence.WithLoader(loader))
	if !errors.Is(err, domain.ErrEmptyStory) {
		t.Fatalf("Expected ErrEmptyStory, got %v", err)
	}
}

func TestNew_SettingsPrecedence(t *testing.T) {
	loader := memory.NewLoader(domain.StoryDocument{
		Name:     "doc",
		Beats:    []domain.Beat{{ID: "a"}},
		Settings: domain.DefaultSettings(), // auto advance on
	})

	story, err := cadence.New(ports.BasePresenter{},
		cadence.WithLoader(loader),
		cadence.WithSettings(manualSettings()),
	)
	if err != nil {
		t.Fatal(err)
	}
	defer story.Close()

	if story.Settings().AutoAdvance {
		t.Error("Explicit settings should win over the loaded document")
	}
}

func TestStory_RegisterBeatAfterNew(t *testing.T) {
	story, err := cadence.New(ports.BasePresenter{}, cadence.WithSettings(manualSettings()))
	if err != nil {
		t.Fatal(err)
	}
	defer story.Close()

	if err := story.RegisterBeat("a", nil); err != nil {
		t.Fatal(err)
	}
	if err := story.RegisterBeat("a", nil); !errors.Is(err, domain.ErrDuplicateBeat) {
		t.Fatalf("Expected ErrDuplicateBeat, got %v", err)
	}

	story.Start(context.Background())
	if got := story.State().CurrentID; got != "a" {
		t.Errorf("Expected beat 'a', got '%s'", got)
	}
}

func TestStory_ShowBeatRejectsUnparseableRef(t *testing.T) {
	story, err := cadence.New(ports.BasePresenter{},
		cadence.WithSettings(manualSettings()),
		cadence.WithBeats(domain.Beat{ID: "a"}),
	)
	if err != nil {
		t.Fatal(err)
	}
	defer story.Close()
	story.Start(context.Background())

	if err := story.ShowBeat(context.Background(), struct{}{}); err == nil {
		t.Error("Expected an error for an unparseable reference")
	}
}

func TestStory_HooksThroughFacade(t *testing.T) {
	var entered []domain.BeatID
	story, err := cadence.New(ports.BasePresenter{},
		cadence.WithSettings(manualSettings()),
		cadence.WithBeats(domain.Beat{ID: "a"}, domain.Beat{ID: "b"}),
		cadence.WithHook(domain.HookPreShowBeat, func(_ context.Context, ev *domain.HookEvent) error {
			entered = append(entered, ev.BeatID)
			return nil
		}),
	)
	if err != nil {
		t.Fatal(err)
	}
	defer story.Close()

	if err := story.RegisterHook("bogus", nil); !errors.Is(err, domain.ErrUnknownHookPoint) {
		t.Fatalf("Expected ErrUnknownHookPoint, got %v", err)
	}

	ctx := context.Background()
	story.Start(ctx)
	story.Advance(ctx, 1)

	if len(entered) != 2 || entered[0] != "a" || entered[1] != "b" {
		t.Errorf("Expected hook to see a then b, got %v", entered)
	}
}

func TestStory_WatchUnsupported(t *testing.T) {
	loader, err := memory.NewFromBeats(domain.Beat{ID: "a"})
	if err != nil {
		t.Fatal(err)
	}
	story, err := cadence.New(ports.BasePresenter{}, cadence.WithLoader(loader))
	if err != nil {
		t.Fatal(err)
	}
	defer story.Close()

	if _, err := story.Watch(context.Background()); err == nil {
		t.Error("Expected an error from a non-watchable loader")
	}
}

func TestRunner_InteractiveLoop(t *testing.T) {
	runner := cadence.NewRunner()
	runner.Input = strings.NewReader("\n\nq\n")
	out := &bytes.Buffer{}
	runner.Output = out

	story, err := cadence.New(runner,
		cadence.WithSettings(manualSettings()),
		cadence.WithBeats(
			domain.Beat{ID: "one", State: domain.BeatState{domain.KeyContent: "First beat"}},
			domain.Beat{ID: "two", State: domain.BeatState{domain.KeyContent: "Second beat"}},
			domain.Beat{ID: "three", State: domain.BeatState{domain.KeyContent: "Third beat"}},
		),
	)
	if err != nil {
		t.Fatal(err)
	}
	defer story.Close()

	if err := runner.Run(context.Background(), story); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	output := out.String()
	for _, want := range []string{"First beat", "Second beat", "Third beat", "Bye!"} {
		if !strings.Contains(output, want) {
			t.Errorf("Expected output to contain %q, got:\n%s", want, output)
		}
	}
	if got := story.State().CurrentIndex; got != 2 {
		t.Errorf("Expected to park on beat 2, got %d", got)
	}
}

func TestRunner_HeadlessRunsToTheEnd(t *testing.T) {
	runner := cadence.NewRunner()
	runner.Input = strings.NewReader("")
	runner.Output = &bytes.Buffer{}
	runner.Headless = true

	settings := manualSettings()
	settings.EndOnLastBeat = true

	story, err := cadence.New(runner,
		cadence.WithSettings(settings),
		cadence.WithBeats(domain.Beat{ID: "a"}, domain.Beat{ID: "b"}, domain.Beat{ID: "c"}),
	)
	if err != nil {
		t.Fatal(err)
	}
	defer story.Close()

	if err := runner.Run(context.Background(), story); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if got := story.State().Status; got != domain.StatusEnded {
		t.Errorf("Expected ended status, got '%s'", got)
	}
}

func TestRunner_RequiresIO(t *testing.T) {
	story, err := cadence.New(ports.BasePresenter{}, cadence.WithBeats(domain.Beat{ID: "a"}))
	if err != nil {
		t.Fatal(err)
	}
	defer story.Close()

	runner := cadence.NewRunner()
	if err := runner.Run(context.Background(), story); err == nil {
		t.Error("Expected an error when IO is not set")
	}
}
