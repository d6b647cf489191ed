package mocks

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/avatarctic/service-kit/internal/core/domain/audit"
	"github.com/avatarctic/service-kit/internal/core/domain/auth"
	"github.com/avatarctic/service-kit/internal/core/ports"
)

// HSetCall records a single HSet invocation.
type HSetCall struct {
	Key, Field, Value string
}

// ExpireCall records a single Expire invocation.
type ExpireCall struct {
	Key string
	TTL time.Duration
}

// HashStoreMock is an in-memory ports.HashStore that records every call.
// Set the Fn fields to inject failures.
type HashStoreMock struct {
	HGetAllFn func(ctx context.Context, key string) (map[string]string, error)
	HSetFn    func(ctx context.Context, key, field, value string) error
	ExpireFn  func(ctx context.Context, key string, ttl time.Duration) error
	DelFn     func(ctx context.Context, key string) error
	ClearFn   func(ctx context.Context) (int64, error)

	Data        map[string]map[string]string
	HGetAllKeys []string
	HSetCalls   []HSetCall
	ExpireCalls []ExpireCall
	DelKeys     []string
	ClearCalls  int
}

var _ ports.HashStore = (*HashStoreMock)(nil)

func (m *HashStoreMock) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	m.HGetAllKeys = append(m.HGetAllKeys, key)
	if m.HGetAllFn != nil {
		return m.HGetAllFn(ctx, key)
	}
	out := map[string]string{}
	for f, v := range m.Data[key] {
		out[f] = v
	}
	return out, nil
}

func (m *HashStoreMock) HSet(ctx context.Context, key, field, value string) error {
	m.HSetCalls = append(m.HSetCalls, HSetCall{Key: key, Field: field, Value: value})
	if m.HSetFn != nil {
		return m.HSetFn(ctx, key, field, value)
	}
	if m.Data == nil {
		m.Data = map[string]map[string]string{}
	}
	if m.Data[key] == nil {
		m.Data[key] = map[string]string{}
	}
	m.Data[key][field] = value
	return nil
}

func (m *HashStoreMock) Expire(ctx context.Context, key string, ttl time.Duration) error {
	m.ExpireCalls = append(m.ExpireCalls, ExpireCall{Key: key, TTL: ttl})
	if m.ExpireFn != nil {
		return m.ExpireFn(ctx, key, ttl)
	}
	return nil
}

func (m *HashStoreMock) Del(ctx context.Context, key string) error {
	m.DelKeys = append(m.DelKeys, key)
	if m.DelFn != nil {
		return m.DelFn(ctx, key)
	}
	delete(m.Data, key)
	return nil
}

func (m *HashStoreMock) Clear(ctx context.Context) (int64, error) {
	m.ClearCalls++
	if m.ClearFn != nil {
		return m.ClearFn(ctx)
	}
	n := int64(len(m.Data))
	m.Data = nil
	return n, nil
}

// Calls returns the total number of store operations observed.
func (m *HashStoreMock) Calls() int {
	return len(m.HGetAllKeys) + len(m.HSetCalls) + len(m.ExpireCalls) + len(m.DelKeys) + m.ClearCalls
}

// CacheMock is a lightweight in-memory ports.Cache.
type CacheMock struct {
	GetFn    func(ctx context.Context, key string) ([]byte, bool, error)
	SetFn    func(ctx context.Context, key string, value []byte, ttl time.Duration) error
	DeleteFn func(ctx context.Context, key string) error

	Items map[string][]byte
	TTLs  map[string]time.Duration
}

var _ ports.Cache = (*CacheMock)(nil)

func (m *CacheMock) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if m.GetFn != nil {
		return m.GetFn(ctx, key)
	}
	v, ok := m.Items[key]
	return v, ok, nil
}

func (m *CacheMock) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if m.SetFn != nil {
		return m.SetFn(ctx, key, value, ttl)
	}
	if m.Items == nil {
		m.Items = map[string][]byte{}
		m.TTLs = map[string]time.Duration{}
	}
	m.Items[key] = value
	m.TTLs[key] = ttl
	return nil
}

func (m *CacheMock) Delete(ctx context.Context, key string) error {
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, key)
	}
	delete(m.Items, key)
	return nil
}

// TokenServiceMock mocks ports.TokenService
type TokenServiceMock struct {
	GenerateTokenFn func(ctx context.Context, payload map[string]any, opts *auth.TokenOptions) (string, error)
	VerifyTokenFn   func(ctx context.Context, token string) (*auth.Claims, error)
	RevokeTokenFn   func(ctx context.Context, token string) error
}

var _ ports.TokenService = (*TokenServiceMock)(nil)

func (m *TokenServiceMock) GenerateToken(ctx context.Context, payload map[string]any, opts *auth.TokenOptions) (string, error) {
	if m.GenerateTokenFn != nil {
		return m.GenerateTokenFn(ctx, payload, opts)
	}
	return "", fmt.Errorf("not implemented")
}
func (m *TokenServiceMock) VerifyToken(ctx context.Context, token string) (*auth.Claims, error) {
	if m.VerifyTokenFn != nil {
		return m.VerifyTokenFn(ctx, token)
	}
	return nil, auth.ErrInvalidToken
}
func (m *TokenServiceMock) RevokeToken(ctx context.Context, token string) error {
	if m.RevokeTokenFn != nil {
		return m.RevokeTokenFn(ctx, token)
	}
	return nil
}

// MailerMock mocks ports.Mailer and keeps the last message sent.
type MailerMock struct {
	SendFn func(ctx context.Context, opts *ports.MailOptions) (*ports.MailResponse, error)
	Sent   []*ports.MailOptions
}

var _ ports.Mailer = (*MailerMock)(nil)

func (m *MailerMock) Send(ctx context.Context, opts *ports.MailOptions) (*ports.MailResponse, error) {
	m.Sent = append(m.Sent, opts)
	if m.SendFn != nil {
		return m.SendFn(ctx, opts)
	}
	return &ports.MailResponse{Success: true, StatusCode: 202}, nil
}

// AuditRepositoryMock mocks ports.AuditRepository
type AuditRepositoryMock struct {
	InsertFn func(ctx context.Context, e *audit.Event) error
	SearchFn func(ctx context.Context, q audit.Query) (*audit.Page, error)

	Inserted []*audit.Event
}

var _ ports.AuditRepository = (*AuditRepositoryMock)(nil)

func (m *AuditRepositoryMock) Insert(ctx context.Context, e *audit.Event) error {
	m.Inserted = append(m.Inserted, e)
	if m.InsertFn != nil {
		return m.InsertFn(ctx, e)
	}
	return nil
}
func (m *AuditRepositoryMock) Search(ctx context.Context, q audit.Query) (*audit.Page, error) {
	if m.SearchFn != nil {
		return m.SearchFn(ctx, q)
	}
	return &audit.Page{}, nil
}

// ObjectStoreMock is an in-memory ports.ObjectStore.
type ObjectStoreMock struct {
	UploadFn func(ctx context.Context, in *ports.UploadInput) (*ports.ObjectInfo, error)

	Objects map[string][]byte
}

var _ ports.ObjectStore = (*ObjectStoreMock)(nil)

func (m *ObjectStoreMock) Upload(ctx context.Context, in *ports.UploadInput) (*ports.ObjectInfo, error) {
	if m.UploadFn != nil {
		return m.UploadFn(ctx, in)
	}
	b, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	if m.Objects == nil {
		m.Objects = map[string][]byte{}
	}
	m.Objects[in.Key] = b
	return &ports.ObjectInfo{Bucket: in.Bucket, Key: in.Key, Size: int64(len(b)), ContentType: in.ContentType}, nil
}

func (m *ObjectStoreMock) Download(ctx context.Context, bucket, key string) (io.ReadCloser, *ports.ObjectInfo, error) {
	b, ok := m.Objects[key]
	if !ok {
		return nil, nil, ports.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(b)), &ports.ObjectInfo{Bucket: bucket, Key: key, Size: int64(len(b))}, nil
}

func (m *ObjectStoreMock) List(ctx context.Context, bucket, prefix string) ([]ports.ObjectInfo, error) {
	var out []ports.ObjectInfo
	for k, b := range m.Objects {
		if strings.HasPrefix(k, prefix) {
			out = append(out, ports.ObjectInfo{Bucket: bucket, Key: k, Size: int64(len(b))})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (m *ObjectStoreMock) Stat(ctx context.Context, bucket, key string) (*ports.ObjectInfo, error) {
	b, ok := m.Objects[key]
	if !ok {
		return nil, ports.ErrObjectNotFound
	}
	return &ports.ObjectInfo{Bucket: bucket, Key: key, Size: int64(len(b))}, nil
}

func (m *ObjectStoreMock) Delete(ctx context.Context, bucket, key string) error {
	if _, ok := m.Objects[key]; !ok {
		return ports.ErrObjectNotFound
	}
	delete(m.Objects, key)
	return nil
}

func (m *ObjectStoreMock) DeleteMany(ctx context.Context, bucket string, keys []string) error {
	for _, k := range keys {
		delete(m.Objects, k)
	}
	return nil
}
