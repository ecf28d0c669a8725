package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/custodia-labs/chatbot/internal/core/domain"
	"github.com/custodia-labs/chatbot/internal/core/ports/driving"
)

type mockChatService struct {
	threads       int
	sent          []string
	sentTo        []string
	failOn        map[string]error
	history       map[string][]domain.Message
	summaries     []domain.ThreadSummary
	tuples        []domain.CheckpointTuple
	checkpointErr error
	listOpts      domain.ListOptions
	deleted       []string
	deleteErr     error
}

func (m *mockChatService) NewThread() string {
	m.threads++
	return fmt.Sprintf("thread-%d", m.threads)
}

func (m *mockChatService) Send(_ context.Context, threadID, input string, fn driving.ReplyFunc) error {
	m.sent = append(m.sent, input)
	m.sentTo = append(m.sentTo, threadID)
	if err := m.failOn[input]; err != nil {
		return err
	}
	return fn(domain.NewAssistantMessage("echo: " + input))
}

func (m *mockChatService) History(_ context.Context, threadID string) ([]domain.Message, error) {
	msgs, ok := m.history[threadID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return msgs, nil
}

func (m *mockChatService) Checkpoints(
	_ context.Context, _ string, opts domain.ListOptions,
) ([]domain.CheckpointTuple, error) {
	m.listOpts = opts
	return m.tuples, m.checkpointErr
}

func (m *mockChatService) Threads(context.Context) ([]domain.ThreadSummary, error) {
	return m.summaries, nil
}

func (m *mockChatService) DeleteThread(_ context.Context, threadID string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deleted = append(m.deleted, threadID)
	return nil
}

func (m *mockChatService) ModelName() string { return "mock-model" }

type mockSettingsService struct {
	settings    domain.AppSettings
	validateErr error
	llmErr      error
	provider    domain.AIProvider
	model       string
	apiKey      string
	backend     domain.CheckpointBackend
	redis       *domain.RedisSettings
}

func newMockSettingsService() *mockSettingsService {
	return &mockSettingsService{settings: domain.DefaultAppSettings()}
}

func (m *mockSettingsService) Get() (*domain.AppSettings, error) {
	s := m.settings
	return &s, nil
}

func (m *mockSettingsService) Save(settings *domain.AppSettings) error {
	m.settings = *settings
	return nil
}

func (m *mockSettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	m.provider, m.model, m.apiKey = provider, model, apiKey
	m.settings.LLM.Provider = provider
	m.settings.LLM.Model = model
	m.settings.LLM.APIKey = apiKey
	return nil
}

func (m *mockSettingsService) SetCheckpointBackend(backend domain.CheckpointBackend) error {
	m.backend = backend
	m.settings.Checkpoint.Backend = backend
	return nil
}

func (m *mockSettingsService) SetRedis(redis domain.RedisSettings) error {
	m.redis = &redis
	m.settings.Checkpoint.Redis = redis
	return nil
}

func (m *mockSettingsService) Validate() error { return m.validateErr }


func (m *mockSettingsService) ValidateLLMConfig() error { return m.llmErr }

type mockEnvironmentService struct {
	descriptor *domain.Descriptor
	checkErr   error
	checked    string
	results    []domain.StepResult
	bootErr    error
	plan       string
	waitErr    error
	waited     bool
}

func (m *mockEnvironmentService) Check(path string) (*domain.Descriptor, error) {
	m.checked = path
	return m.descriptor, m.checkErr
}

func (m *mockEnvironmentService) Bootstrap(
	_ context.Context, planPath string, out io.Writer,
) ([]domain.StepResult, error) {
	m.plan = planPath
	fmt.Fprintln(out, "step output")
	return m.results, m.bootErr
}

func (m *mockEnvironmentService) WaitForCache(context.Context) error {
	m.waited = true
	return m.waitErr
}

type mapSource map[string]string

func (s mapSource) Source(key string) string {
	if v, ok := s[key]; ok {
		return v
	}
	return "default"
}

func testDescriptor() *domain.Descriptor {
	return &domain.Descriptor{
		Path: ".devcontainer/docker-compose.yml",
		Services: map[string]domain.ServiceSpec{
			"app": {
				Build:    ".",
				Volumes:  []domain.VolumeMount{{Source: "../..", Target: "/workspaces"}},
				Networks: []string{"chatbot"},
			},
			"cache": {
				Image:    "redis:7",
				Ports:    []domain.PortMapping{{Host: 6379, Container: 6379}},
				Networks: []string{"chatbot"},
			},
		},
		Networks: map[string]domain.NetworkSpec{"chatbot": {Driver: "bridge"}},
	}
}

func testTuple(id, parent, source string, step int) domain.CheckpointTuple {
	tuple := domain.CheckpointTuple{
		Config: domain.ThreadConfig{ThreadID: "t1", CheckpointID: id},
		Checkpoint: domain.Checkpoint{
			ID:        id,
			Timestamp: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			Messages:  []domain.Message{domain.NewUserMessage("hi")},
		},
		Metadata: domain.CheckpointMetadata{Source: source, Step: step},
	}
	if parent != "" {
		tuple.ParentConfig = &domain.ThreadConfig{ThreadID: "t1", CheckpointID: parent}
	}
	return tuple
}

// execute runs the root command with the given services, stdin and args,
// returning everything written to stdout and stderr.
func execute(t *testing.T, svcs *Services, stdin string, args ...string) (string, error) {
	t.Helper()

	SetServices(svcs)
	chatThread = ""
	tuiThread = ""
	backendFlag = ""
	versionShort = false
	globalOpts = Options{}

	if args == nil {
		args = []string{}
	}

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		SetServices(nil)
	})

	err := rootCmd.ExecuteContext(context.Background())
	return buf.String(), err
}
