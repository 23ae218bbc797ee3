package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"testing"

	"github.com/dmitrijs2005/classgate/internal/common"
	"github.com/dmitrijs2005/classgate/internal/logging"
	"github.com/dmitrijs2005/classgate/internal/server/models"
	"github.com/dmitrijs2005/classgate/internal/server/upstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	// responses keyed by access token
	byToken map[string]error
	calls   []string
	paths   []string
}

func (f *fakeFetcher) Get(ctx context.Context, accessToken, path string, query url.Values) (json.RawMessage, error) {
	f.calls = append(f.calls, accessToken)
	f.paths = append(f.paths, path)
	if err := f.byToken[accessToken]; err != nil {
		return nil, err
	}
	return json.RawMessage(`{"ok":true}`), nil
}

type fakeRotator struct {
	next  string
	err   error
	calls int
}

func (r *fakeRotator) RotateUpstream(ctx context.Context, user *models.User) error {
	r.calls++
	if r.err != nil {
		return r.err
	}
	user.SetUpstreamTokens(r.next, "r-"+r.next)
	return nil
}

func upstream401() error {
	return fmt.Errorf("%w: %w", common.ErrUpstreamUnauthorized, &upstream.StatusError{Op: "get", StatusCode: http.StatusUnauthorized})
}

func enrolledUser() *models.User {
	return &models.User{
		ID:                  "U1",
		UpstreamAccessToken: "a-old",
		EnrolledBatches:     []models.EnrolledBatch{{BatchID: "b 1"}},
	}
}

func TestProxyFetch_Success(t *testing.T) {
	f := &fakeFetcher{}
	r := &fakeRotator{}
	s := NewProxyService(f, r, logging.Nop{})

	body, err := s.Fetch(context.Background(), enrolledUser(), "b 1", ResourceSchedule, nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(body))
	assert.Equal(t, []string{"/v2/batches/b%201/schedule"}, f.paths)
	assert.Zero(t, r.calls)
}

func TestProxyFetch_NotEnrolled(t *testing.T) {
	f := &fakeFetcher{}
	s := NewProxyService(f, &fakeRotator{}, logging.Nop{})

	_, err := s.Fetch(context.Background(), enrolledUser(), "b2", ResourceUsers, nil)
	assert.ErrorIs(t, err, common.ErrorForbidden)
	assert.Empty(t, f.calls)
}

func TestProxyFetch_UnknownResource(t *testing.T) {
	s := NewProxyService(&fakeFetcher{}, &fakeRotator{}, logging.Nop{})

	_, err := s.Fetch(context.Background(), enrolledUser(), "b 1", "grades", nil)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestProxyFetch_RotatesOnceAndRetries(t *testing.T) {
	f := &fakeFetcher{byToken: map[string]error{"a-old": upstream401()}}
	r := &fakeRotator{next: "a-new"}
	s := NewProxyService(f, r, logging.Nop{})

	body, err := s.Fetch(context.Background(), enrolledUser(), "b 1", ResourceAnnouncements, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, body)
	assert.Equal(t, []string{"a-old", "a-new"}, f.calls)
	assert.Equal(t, 1, r.calls)
}

func TestProxyFetch_RotationRejected(t *testing.T) {
	f := &fakeFetcher{byToken: map[string]error{"a-old": upstream401()}}
	r := &fakeRotator{err: fmt.Errorf("%w: %w", common.ErrorUnauthorized, common.ErrRefreshFailed)}
	s := NewProxyService(f, r, logging.Nop{})

	_, err := s.Fetch(context.Background(), enrolledUser(), "b 1", ResourceSchedule, nil)
	assert.ErrorIs(t, err, common.ErrorUnauthorized)
	assert.Len(t, f.calls, 1)
}

func TestProxyFetch_SecondRejectionIsNotRetried(t *testing.T) {
	f := &fakeFetcher{byToken: map[string]error{"a-old": upstream401(), "a-new": upstream401()}}
	r := &fakeRotator{next: "a-new"}
	s := NewProxyService(f, r, logging.Nop{})

	_, err := s.Fetch(context.Background(), enrolledUser(), "b 1", ResourceSchedule, nil)
	require.Error(t, err)
	assert.False(t, errors.Is(err, common.ErrorUnauthorized))
	assert.False(t, errors.Is(err, common.ErrUpstreamUnauthorized))

	var se *upstream.StatusError
	assert.ErrorAs(t, err, &se)
	assert.Len(t, f.calls, 2)
	assert.Equal(t, 1, r.calls)
}
