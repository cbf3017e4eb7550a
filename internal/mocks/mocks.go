package mocks

import (
	"context"
	"encoding/json"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/mock"
)

// MockCompleter is a mock implementation of the generative collaborator
type MockCompleter struct {
	mock.Mock
}

// Complete mocks the Complete method
func (m *MockCompleter) Complete(ctx context.Context, instruction string) (string, error) {
	args := m.Called(ctx, instruction)
	return args.String(0), args.Error(1)
}

// CompleteStructured mocks the CompleteStructured method
func (m *MockCompleter) CompleteStructured(ctx context.Context, instruction string) (json.RawMessage, error) {
	args := m.Called(ctx, instruction)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	switch v := args.Get(0).(type) {
	case string:
		return json.RawMessage(v), args.Error(1)
	default:
		return v.(json.RawMessage), args.Error(1)
	}
}

// MockContentStore is a mock implementation of the document body store
type MockContentStore struct {
	mock.Mock
}

// Read mocks the Read method
func (m *MockContentStore) Read(ctx context.Context, ref string) (string, error) {
	args := m.Called(ctx, ref)
	return args.String(0), args.Error(1)
}

// Write mocks the Write method
func (m *MockContentStore) Write(ctx context.Context, category, name, text string) (string, error) {
	args := m.Called(ctx, category, name, text)
	return args.String(0), args.Error(1)
}

// MockLocker is a mock implementation of the cross-process lock
type MockLocker struct {
	mock.Mock
}

// TryLock mocks the TryLock method
func (m *MockLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	args := m.Called(ctx, key, ttl)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(func()), args.Error(1)
}

// MockS3Client is a mock implementation of the S3 object API
type MockS3Client struct {
	mock.Mock
}

// GetObject mocks the GetObject method
func (m *MockS3Client) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*s3.GetObjectOutput), args.Error(1)
}

// PutObject mocks the PutObject method
func (m *MockS3Client) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*s3.PutObjectOutput), args.Error(1)
}
