package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	"github.com/dmitrijs2005/classgate/internal/common"
	"github.com/dmitrijs2005/classgate/internal/logging"
	"github.com/dmitrijs2005/classgate/internal/server/models"
	"github.com/dmitrijs2005/classgate/internal/server/upstream"
)

// Batch resources readable through the proxy.
const (
	ResourceSchedule      = "schedule"
	ResourceAnnouncements = "announcements"
	ResourceUsers         = "users"
)

// Fetcher reads an upstream resource on behalf of a user.
type Fetcher interface {
	Get(ctx context.Context, accessToken, path string, query url.Values) (json.RawMessage, error)
}

// Rotator refreshes and persists a user's upstream pair.
type Rotator interface {
	RotateUpstream(ctx context.Context, user *models.User) error
}

// ProxyService passes read-only batch data through from upstream for
// batches the user is enrolled in.
type ProxyService struct {
	upstream Fetcher
	rotator  Rotator
	logger   logging.Logger
}

func NewProxyService(f Fetcher, r Rotator, logger logging.Logger) *ProxyService {
	return &ProxyService{upstream: f, rotator: r, logger: logger.With("module", "proxy")}
}

// Fetch returns upstream's JSON for resource of batchID. An upstream 401 is
// answered by one rotation of the stored pair and one retry.
func (s *ProxyService) Fetch(ctx context.Context, user *models.User, batchID, resource string, query url.Values) (json.RawMessage, error) {
	switch resource {
	case ResourceSchedule, ResourceAnnouncements, ResourceUsers:
	default:
		return nil, common.ErrorNotFound
	}
	if !user.IsEnrolled(batchID) {
		return nil, common.ErrorForbidden
	}

	path := "/v2/batches/" + url.PathEscape(batchID) + "/" + resource

	body, err := s.upstream.Get(ctx, user.UpstreamAccessToken, path, query)
	if !errors.Is(err, common.ErrUpstreamUnauthorized) {
		return body, err
	}

	s.logger.Debug(ctx, "upstream rejected access token, rotating", "user_id", user.ID)
	if err := s.rotator.RotateUpstream(ctx, user); err != nil {
		return nil, err
	}

	body, err = s.upstream.Get(ctx, user.UpstreamAccessToken, path, query)
	if errors.Is(err, common.ErrUpstreamUnauthorized) {
		// a freshly rotated token was refused; not the caller's fault
		var se *upstream.StatusError
		if errors.As(err, &se) {
			return nil, fmt.Errorf("upstream refused rotated token: %w", se)
		}
		return nil, errors.New("upstream refused rotated token")
	}
	return body, err
}
