package service_test

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// mockSource is a testify mock of source.Source.
type mockSource struct {
	mock.Mock
}

func (m *mockSource) Fetch(ctx context.Context) ([]byte, error) {
	args := m.Called(ctx)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	payload, _ := args.Get(0).([]byte)
	return payload, args.Error(1)
}

func (m *mockSource) Kind() string { return "mock" }
