package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/pharmalink/gateway/internal/upstream"
)

// profileEndpoint is the backend endpoint resolving a bearer token to its
// identity.
const profileEndpoint = "profile"

// ProfileFetcher resolves tokens through the backend profile endpoint using
// the shared upstream client.
type ProfileFetcher struct {
	api *upstream.Client
}

// NewProfileFetcher creates a Fetcher backed by the upstream client.
func NewProfileFetcher(api *upstream.Client) *ProfileFetcher {
	return &ProfileFetcher{api: api}
}

// FetchUser implements Fetcher. The backend returns either the bare user
// object or wraps it under "user" or "data"; all three shapes are accepted.
func (f *ProfileFetcher) FetchUser(ctx context.Context, token string) (*User, error) {
	res, err := f.api.Do(ctx, http.MethodGet, profileEndpoint, nil, token)
	if err != nil {
		return nil, err
	}
	if len(res.Raw) == 0 {
		return nil, errors.New("profile response empty")
	}

	user, err := decodeUser(res.Raw)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func decodeUser(raw json.RawMessage) (*User, error) {
	var direct User
	if err := json.Unmarshal(raw, &direct); err == nil && direct.ID != "" {
		return &direct, nil
	}

	var wrapped struct {
		User *User `json:"user"`
		Data *User `json:"data"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil {
		if wrapped.User != nil && wrapped.User.ID != "" {
			return wrapped.User, nil
		}
		if wrapped.Data != nil && wrapped.Data.ID != "" {
			return wrapped.Data, nil
		}
	}

	return nil, errors.New("profile response missing identity")
}
