package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"
)

// Gyms lists the gyms. Both a paginated {"results": [...]} body and a bare array are accepted.
func (c *Client) Gyms(ctx context.Context) ([]Gym, error) {
	var raw json.RawMessage
	if err := c.Do(ctx, &Request{Method: http.MethodGet, Path: "/gyms/"}, &raw); err != nil {
		return nil, err
	}
	gyms, err := parseList[Gym](raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse gyms: %w", err)
	}
	log.Info().Int("count", len(gyms)).Msg("Fetched gyms")
	return gyms, nil
}

// Gym fetches one gym with its walls and boulders.
func (c *Client) Gym(ctx context.Context, id int) (*Gym, error) {
	var gym Gym
	if err := c.Do(ctx, &Request{Method: http.MethodGet, Path: fmt.Sprintf("/gyms/%d/", id)}, &gym); err != nil {
		return nil, err
	}
	return &gym, nil
}

// Boulders lists all boulders.
func (c *Client) Boulders(ctx context.Context) ([]Boulder, error) {
	var raw json.RawMessage
	if err := c.Do(ctx, &Request{Method: http.MethodGet, Path: "/boulders/"}, &raw); err != nil {
		return nil, err
	}
	boulders, err := parseList[Boulder](raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse boulders: %w", err)
	}
	return boulders, nil
}

// Boulder fetches one boulder including its ascents.
func (c *Client) Boulder(ctx context.Context, id int) (*Boulder, error) {
	var boulder Boulder
	if err := c.Do(ctx, &Request{Method: http.MethodGet, Path: fmt.Sprintf("/boulders/%d/", id)}, &boulder); err != nil {
		return nil, err
	}
	return &boulder, nil
}

// LogAscent records a flash or send of a boulder for the signed-in user.
func (c *Client) LogAscent(ctx context.Context, boulderID int, ascentType AscentType) (*AscentResult, error) {
	if _, err := ParseAscentType(string(ascentType)); err != nil {
		return nil, err
	}
	var result AscentResult
	req := &Request{
		Method: http.MethodPost,
		Path:   fmt.Sprintf("/boulders/%d/ascent/", boulderID),
		Body:   map[string]AscentType{"ascent_type": ascentType},
	}
	if err := c.Do(ctx, req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// DeleteAscent removes the signed-in user's ascent of a boulder and returns the updated boulder.
func (c *Client) DeleteAscent(ctx context.Context, boulderID int) (*Boulder, error) {
	var result struct {
		Boulder Boulder `json:"boulder"`
	}
	req := &Request{Method: http.MethodDelete, Path: fmt.Sprintf("/boulders/%d/ascent/", boulderID)}
	if err := c.Do(ctx, req, &result); err != nil {
		return nil, err
	}
	return &result.Boulder, nil
}

// Leaderboard returns the gym leaderboard ordered by rank.
func (c *Client) Leaderboard(ctx context.Context) ([]LeaderboardEntry, error) {
	var raw json.RawMessage
	if err := c.Do(ctx, &Request{Method: http.MethodGet, Path: "/leaderboard/"}, &raw); err != nil {
		return nil, err
	}
	return parseList[LeaderboardEntry](raw)
}

// Profile returns the signed-in user's profile.
func (c *Client) Profile(ctx context.Context) (*UserProfile, error) {
	var profile UserProfile
	if err := c.Do(ctx, &Request{Method: http.MethodGet, Path: "/profile/"}, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// parseList decodes a JSON array, or the "results" array of a paginated object.
func parseList[T any](raw json.RawMessage) ([]T, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, nil
	}
	if trimmed[0] == '{' {
		var page struct {
			Results []T `json:"results"`
		}
		if err := json.Unmarshal(trimmed, &page); err != nil {
			return nil, err
		}
		return page.Results, nil
	}
	var items []T
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return nil, err
	}
	return items, nil
}
