package service

import (
	"context"
	"io"
	"log/slog"

	"github.com/stretchr/testify/mock"
)

// MockNotifier mocks the Notifier interface
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Send(ctx context.Context, channel, text string) error {
	args := m.Called(ctx, channel, text)
	return args.Error(0)
}

func (m *MockNotifier) Reply(ctx context.Context, channel, threadTS, text string) error {
	args := m.Called(ctx, channel, threadTS, text)
	return args.Error(0)
}

type fakeStage struct {
	name  string
	err   error
	panic bool
	calls *[]string
}

func (s fakeStage) Name() string { return s.name }

func (s fakeStage) Run(ctx context.Context) error {
	*s.calls = append(*s.calls, s.name)
	if s.panic {
		panic("boom")
	}
	return s.err
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
