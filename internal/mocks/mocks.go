package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"chat-client/internal/rabbitmq"
	"chat-client/internal/remote"
)

type DocumentStoreMock struct {
	mock.Mock
}

func (m *DocumentStoreMock) Subscribe(ctx context.Context, q remote.Query, fn remote.SnapshotFunc) (remote.CancelFunc, error) {
	args := m.Called(ctx, q, fn)
	var cancel remote.CancelFunc
	if val := args.Get(0); val != nil {
		cancel = val.(remote.CancelFunc)
	}
	return cancel, args.Error(1)
}

func (m *DocumentStoreMock) Get(ctx context.Context, collection, id string) (remote.Document, error) {
	args := m.Called(ctx, collection, id)
	var doc remote.Document
	if val := args.Get(0); val != nil {
		doc = val.(remote.Document)
	}
	return doc, args.Error(1)
}

func (m *DocumentStoreMock) RunQuery(ctx context.Context, q remote.Query) (remote.Snapshot, error) {
	args := m.Called(ctx, q)
	var snap remote.Snapshot
	if val := args.Get(0); val != nil {
		snap = val.(remote.Snapshot)
	}
	return snap, args.Error(1)
}

func (m *DocumentStoreMock) Set(ctx context.Context, collection, id string, doc any) error {
	args := m.Called(ctx, collection, id, doc)
	return args.Error(0)
}

func (m *DocumentStoreMock) Add(ctx context.Context, collection string, doc any) (string, error) {
	args := m.Called(ctx, collection, doc)
	return args.String(0), args.Error(1)
}

func (m *DocumentStoreMock) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	args := m.Called(ctx, collection, id, fields)
	return args.Error(0)
}

func (m *DocumentStoreMock) ArrayUnion(ctx context.Context, collection, id, field string, elem any, matchKey string) error {
	args := m.Called(ctx, collection, id, field, elem, matchKey)
	return args.Error(0)
}

func (m *DocumentStoreMock) ArrayRemove(ctx context.Context, collection, id, field string, elem any, matchKey string) error {
	args := m.Called(ctx, collection, id, field, elem, matchKey)
	return args.Error(0)
}

func (m *DocumentStoreMock) Delete(ctx context.Context, collection, id string) error {
	args := m.Called(ctx, collection, id)
	return args.Error(0)
}

type AuthServiceMock struct {
	mock.Mock
}

func (m *AuthServiceMock) Register(ctx context.Context, email, password string) (string, error) {
	args := m.Called(ctx, email, password)
	return args.String(0), args.Error(1)
}

func (m *AuthServiceMock) SignIn(ctx context.Context, email, password string) (string, error) {
	args := m.Called(ctx, email, password)
	return args.String(0), args.Error(1)
}

func (m *AuthServiceMock) SignOut(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *AuthServiceMock) Sessions(ctx context.Context) (<-chan remote.Session, remote.CancelFunc, error) {
	args := m.Called(ctx)
	var ch <-chan remote.Session
	if val := args.Get(0); val != nil {
		ch = val.(<-chan remote.Session)
	}
	var cancel remote.CancelFunc
	if val := args.Get(1); val != nil {
		cancel = val.(remote.CancelFunc)
	}
	return ch, cancel, args.Error(2)
}

func (m *AuthServiceMock) UpdateProfile(ctx context.Context, displayName, photoURL string) error {
	args := m.Called(ctx, displayName, photoURL)
	return args.Error(0)
}

type BlobStoreMock struct {
	mock.Mock
}

func (m *BlobStoreMock) Upload(ctx context.Context, path string, data []byte) (string, error) {
	args := m.Called(ctx, path, data)
	return args.String(0), args.Error(1)
}

func (m *BlobStoreMock) ResolveURL(ctx context.Context, handle string) (string, error) {
	args := m.Called(ctx, handle)
	return args.String(0), args.Error(1)
}

type DevicesMock struct {
	mock.Mock
}

func (m *DevicesMock) AcquireAudio(ctx context.Context, constraints remote.AudioConstraints) (remote.AudioStream, error) {
	args := m.Called(ctx, constraints)
	var stream remote.AudioStream
	if val := args.Get(0); val != nil {
		stream = val.(remote.AudioStream)
	}
	return stream, args.Error(1)
}

type AudioStreamMock struct {
	mock.Mock
}

func (m *AudioStreamMock) SetEnabled(enabled bool) {
	m.Called(enabled)
}

func (m *AudioStreamMock) Enabled() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *AudioStreamMock) Stop() {
	m.Called()
}

// PublisherMock stands in for the event bus publisher in audit tests,
// capturing the envelopes that would go out over AMQP.
type PublisherMock struct {
	mock.Mock
}

func (m *PublisherMock) Publish(ctx context.Context, routingKey string, event any) error {
	args := m.Called(ctx, routingKey, event)
	return args.Error(0)
}

func (m *PublisherMock) Close() error {
	args := m.Called()
	return args.Error(0)
}

var _ remote.DocumentStore = (*DocumentStoreMock)(nil)
var _ remote.AuthService = (*AuthServiceMock)(nil)
var _ remote.BlobStore = (*BlobStoreMock)(nil)
var _ remote.Devices = (*DevicesMock)(nil)
var _ remote.AudioStream = (*AudioStreamMock)(nil)
var _ rabbitmq.Publisher = (*PublisherMock)(nil)
