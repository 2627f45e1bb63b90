package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/custodia-labs/knowctl/internal/core/domain"
	"github.com/custodia-labs/knowctl/internal/core/services"
)

// mockSourceService implements driving.SourceService for CLI tests.
type mockSourceService struct {
	ListFunc       func(ctx context.Context) ([]domain.Source, error)
	AddFunc        func(ctx context.Context, draft domain.Draft) (*domain.Source, error)
	UploadFunc     func(ctx context.Context, file domain.FileHandle, sourceID string) (*domain.UploadResult, error)
	UpdateFunc     func(ctx context.Context, id string, patch domain.Patch) (*domain.Source, error)
	RemoveFunc     func(ctx context.Context, id string) error
	ReindexFunc    func(ctx context.Context, id string) (*domain.Source, error)
	ReindexAllFunc func(ctx context.Context, ids []string) (int, error)
	DetailFunc     func(ctx context.Context, id string) (*domain.Source, error)
	CachedFunc     func(ctx context.Context) ([]domain.Source, time.Time, error)

	added    []domain.Draft
	uploads  []string
	updates  map[string][]domain.Patch
	removed  []string
	reindex  []string
	reindexN [][]string
}

func (m *mockSourceService) List(ctx context.Context) ([]domain.Source, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx)
	}
	return nil, nil
}

func (m *mockSourceService) Add(ctx context.Context, draft domain.Draft) (*domain.Source, error) {
	m.added = append(m.added, draft)
	if m.AddFunc != nil {
		return m.AddFunc(ctx, draft)
	}
	return &domain.Source{ID: "new", Type: draft.Type}, nil
}

func (m *mockSourceService) Upload(ctx context.Context, file domain.FileHandle, sourceID string) (*domain.UploadResult, error) {
	m.uploads = append(m.uploads, file.Name+"@"+sourceID)
	if m.UploadFunc != nil {
		return m.UploadFunc(ctx, file, sourceID)
	}
	id := sourceID
	if id == "" {
		id = "up"
	}
	return &domain.UploadResult{SourceID: id, Filename: file.Name, FileURL: "/knowledge/file/" + id}, nil
}

func (m *mockSourceService) Update(ctx context.Context, id string, patch domain.Patch) (*domain.Source, error) {
	if m.updates == nil {
		m.updates = make(map[string][]domain.Patch)
	}
	m.updates[id] = append(m.updates[id], patch)
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, id, patch)
	}
	return &domain.Source{ID: id}, nil
}

func (m *mockSourceService) Remove(ctx context.Context, id string) error {
	m.removed = append(m.removed, id)
	if m.RemoveFunc != nil {
		return m.RemoveFunc(ctx, id)
	}
	return nil
}

func (m *mockSourceService) Reindex(ctx context.Context, id string) (*domain.Source, error) {
	m.reindex = append(m.reindex, id)
	if m.ReindexFunc != nil {
		return m.ReindexFunc(ctx, id)
	}
	return &domain.Source{ID: id}, nil
}

func (m *mockSourceService) ReindexAll(ctx context.Context, ids []string) (int, error) {
	m.reindexN = append(m.reindexN, ids)
	if m.ReindexAllFunc != nil {
		return m.ReindexAllFunc(ctx, ids)
	}
	return len(ids), nil
}

func (m *mockSourceService) Detail(ctx context.Context, id string) (*domain.Source, error) {
	if m.DetailFunc != nil {
		return m.DetailFunc(ctx, id)
	}
	return nil, domain.ErrDetailUnavailable
}

func (m *mockSourceService) Cached(ctx context.Context) ([]domain.Source, time.Time, error) {
	if m.CachedFunc != nil {
		return m.CachedFunc(ctx)
	}
	return nil, time.Time{}, nil
}

func (m *mockSourceService) Subscribe() (<-chan domain.Change, func()) {
	ch := make(chan domain.Change)
	return ch, func() { close(ch) }
}

func (m *mockSourceService) BaseURL() string {
	return "http://localhost:8000"
}

// mockLinkService resolves relative links against localhost.
type mockLinkService struct {
	opened  []string
	OpenErr error
}

func (m *mockLinkService) Resolve(raw string) (string, bool) {
	if strings.HasPrefix(raw, "/") {
		raw = "http://localhost:8000" + raw
	}
	return raw, domain.IsSafeURL(raw)
}

func (m *mockLinkService) Open(raw string) error {
	if m.OpenErr != nil {
		return m.OpenErr
	}
	link, _ := m.Resolve(raw)
	m.opened = append(m.opened, link)
	return nil
}

// mockIngester reports canned events.
type mockIngester struct {
	events []services.IngestEvent
	dir    string
	err    error
}

func (m *mockIngester) Run(_ context.Context, dir string, report func(services.IngestEvent)) error {
	m.dir = dir
	for _, ev := range m.events {
		report(ev)
	}
	return m.err
}

// mockCompleter returns fixed IDs filtered by prefix.
type mockCompleter struct {
	ids []string
}

func (m *mockCompleter) IDs(_ context.Context, prefix string) ([]string, error) {
	var out []string
	for _, id := range m.ids {
		if strings.HasPrefix(id, prefix) {
			out = append(out, id)
		}
	}
	return out, nil
}

// withServices injects svc for the duration of the test.
func withServices(t *testing.T, svc *Services) {
	t.Helper()
	oldBootstrap := bootstrap
	bootstrap = nil
	SetServices(svc)
	t.Cleanup(func() {
		SetServices(nil)
		bootstrap = oldBootstrap
	})
}

// result is the captured output of one command run.
type result struct {
	out string
	err string
}

// execute runs the root command with args and stdin, resetting every
// flag first so values do not leak between tests.
func execute(t *testing.T, stdin string, args ...string) (result, error) {
	t.Helper()
	resetFlags(rootCmd)

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetIn(strings.NewReader(stdin))
	if args == nil {
		// nil args make cobra read os.Args.
		args = []string{}
	}
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	}()

	err := rootCmd.Execute()
	return result{out: out.String(), err: errOut.String()}, err
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if f.Changed {
			_ = f.Value.Set(f.DefValue)
			f.Changed = false
		}
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}
