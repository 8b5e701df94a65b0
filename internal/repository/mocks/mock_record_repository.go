package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"pmapi/internal/model"
	"pmapi/internal/repository"
)

type MockRecordRepository[T model.Entity] struct {
	mock.Mock
}

var _ repository.RecordRepository[*model.Task] = (*MockRecordRepository[*model.Task])(nil)

func (m *MockRecordRepository[T]) item(args mock.Arguments) T {
	if v, ok := args.Get(0).(T); ok {
		return v
	}
	var zero T
	return zero
}

func (m *MockRecordRepository[T]) Create(ctx context.Context, item T) (T, error) {
	args := m.Called(ctx, item)
	return m.item(args), args.Error(1)
}

func (m *MockRecordRepository[T]) FindActive(ctx context.Context, id string, scope repository.Scope) (T, error) {
	args := m.Called(ctx, id, scope)
	return m.item(args), args.Error(1)
}

func (m *MockRecordRepository[T]) FindAll(ctx context.Context, id string, scope repository.Scope) (T, error) {
	args := m.Called(ctx, id, scope)
	return m.item(args), args.Error(1)
}

func (m *MockRecordRepository[T]) Count(ctx context.Context, scope repository.Scope) (int, error) {
	args := m.Called(ctx, scope)
	return args.Int(0), args.Error(1)
}

func (m *MockRecordRepository[T]) List(ctx context.Context, scope repository.Scope, page *repository.PageQuery) ([]T, error) {
	args := m.Called(ctx, scope, page)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]T), args.Error(1)
}

func (m *MockRecordRepository[T]) ListPublic(ctx context.Context, scope repository.Scope, page *repository.PageQuery) ([]model.PublicRecord, error) {
	args := m.Called(ctx, scope, page)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.PublicRecord), args.Error(1)
}

// Mutate hands the configured record to fn the way the real store does inside
// its transaction, so service callbacks are exercised.
func (m *MockRecordRepository[T]) Mutate(ctx context.Context, id string, scope repository.Scope, fn func(T) error) (T, error) {
	args := m.Called(ctx, id, scope)
	item := m.item(args)
	if err := args.Error(1); err != nil {
		var zero T
		return zero, err
	}
	if err := fn(item); err != nil {
		var zero T
		return zero, err
	}
	return item, nil
}
