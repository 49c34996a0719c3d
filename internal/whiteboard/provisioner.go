// Package whiteboard provisions shared whiteboard rooms and joins them
// through an opaque board SDK. The host creates the room and shares its
// credentials; everyone else waits for them to show up in the store.
package whiteboard

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Classroom/internal/domain"
)

var ErrMalformedReply = errors.New("malformed provisioning reply")

type createRequest struct {
	Name  string `json:"name"`
	Limit int    `json:"limit"`
}

type createReply struct {
	Code int `json:"code"`
	Msg  struct {
		Room struct {
			UUID string `json:"uuid"`
		} `json:"room"`
		RoomToken string `json:"roomToken"`
	} `json:"msg"`
}

// Provisioner creates rooms on the whiteboard HTTP API.
type Provisioner struct {
	base   string
	token  string
	client *http.Client
}

func NewProvisioner(base, token string, client *http.Client) *Provisioner {
	if client == nil {
		client = http.DefaultClient
	}
	return &Provisioner{base: strings.TrimRight(base, "/"), token: token, client: client}
}

// Create asks for a room named name admitting at most limit users.
func (p *Provisioner) Create(ctx context.Context, name string, limit int) (domain.WhiteboardCredentials, error) {
	body, err := json.Marshal(createRequest{Name: name, Limit: limit})
	if err != nil {
		return domain.WhiteboardCredentials{}, &domain.ProvisionError{Err: err}
	}
	endpoint := p.base + "/room?token=" + url.QueryEscape(p.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return domain.WhiteboardCredentials{}, &domain.ProvisionError{Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return domain.WhiteboardCredentials{}, &domain.ProvisionError{Err: fmt.Errorf("create room: %w", err)}
	}
	defer resp.Body.Close()

	var reply createReply
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return domain.WhiteboardCredentials{}, &domain.ProvisionError{Code: resp.StatusCode, Err: fmt.Errorf("decode reply: %w", err)}
	}
	if reply.Code != http.StatusOK {
		return domain.WhiteboardCredentials{}, &domain.ProvisionError{Code: reply.Code}
	}
	if reply.Msg.Room.UUID == "" || reply.Msg.RoomToken == "" {
		return domain.WhiteboardCredentials{}, &domain.ProvisionError{Code: reply.Code, Err: ErrMalformedReply}
	}

	log.Info().Str("module", "whiteboard").Str("room", name).Str("uuid", reply.Msg.Room.UUID).Msg("whiteboard provisioned")
	return domain.WhiteboardCredentials{UUID: reply.Msg.Room.UUID, RoomToken: reply.Msg.RoomToken}, nil
}
