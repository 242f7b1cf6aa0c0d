package diagnostic_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/walteh/gosnips/pkg/script"
)

type MockEngine struct {
	mock.Mock
}

func (m *MockEngine) Eval(ctx context.Context, req script.Request) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}
