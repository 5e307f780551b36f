package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
)

// BoulderInput is the writable part of a boulder. Empty fields are left out of the
// request, so an update only changes what is set.
type BoulderInput struct {
	Wall           int    `json:"wall,omitempty"`
	Setter         *int   `json:"setter,omitempty"`
	SetterGrade    string `json:"setter_grade,omitempty"`
	ConsensusGrade string `json:"concensus_grade,omitempty"`
	Color          string `json:"color,omitempty"`
	Difficulty     string `json:"difficulty,omitempty"`
	ClimbingStyle  string `json:"climbing_style,omitempty"`
	IsActive       *bool  `json:"is_active,omitempty"`
}

func (in BoulderInput) empty() bool { return in == BoulderInput{} }

type nameBody struct {
	Name string `json:"name"`
}

func requireName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.New("name cannot be empty")
	}
	return name, nil
}

// CreateGym adds a gym.
func (c *Client) CreateGym(ctx context.Context, name string) (*Gym, error) {
	name, err := requireName(name)
	if err != nil {
		return nil, err
	}
	var gym Gym
	if err := c.Do(ctx, &Request{Method: http.MethodPost, Path: "/gyms/", Body: nameBody{name}}, &gym); err != nil {
		return nil, err
	}
	log.Info().Int("gym", gym.ID).Msg("Created gym")
	return &gym, nil
}

// CreateWall adds a wall to a gym.
func (c *Client) CreateWall(ctx context.Context, gymID int, name string) (*Wall, error) {
	name, err := requireName(name)
	if err != nil {
		return nil, err
	}
	var wall Wall
	req := &Request{Method: http.MethodPost, Path: fmt.Sprintf("/gyms/%d/walls/", gymID), Body: nameBody{name}}
	if err := c.Do(ctx, req, &wall); err != nil {
		return nil, err
	}
	return &wall, nil
}

// UpdateWall renames a wall.
func (c *Client) UpdateWall(ctx context.Context, gymID, wallID int, name string) (*Wall, error) {
	name, err := requireName(name)
	if err != nil {
		return nil, err
	}
	var wall Wall
	req := &Request{Method: http.MethodPut, Path: fmt.Sprintf("/gyms/%d/walls/%d/", gymID, wallID), Body: nameBody{name}}
	if err := c.Do(ctx, req, &wall); err != nil {
		return nil, err
	}
	return &wall, nil
}

func (c *Client) DeleteWall(ctx context.Context, gymID, wallID int) error {
	return c.Do(ctx, &Request{Method: http.MethodDelete, Path: fmt.Sprintf("/gyms/%d/walls/%d/", gymID, wallID)}, nil)
}

// CreateBoulder sets a new boulder. Wall, setter grade and color are required.
func (c *Client) CreateBoulder(ctx context.Context, in BoulderInput) (*Boulder, error) {
	if in.Wall <= 0 || in.SetterGrade == "" || in.Color == "" {
		return nil, errors.New("a new boulder needs a wall, a setter grade and a color")
	}
	var boulder Boulder
	if err := c.Do(ctx, &Request{Method: http.MethodPost, Path: "/boulders/", Body: in}, &boulder); err != nil {
		return nil, err
	}
	log.Info().Int("boulder", boulder.ID).Msg("Created boulder")
	return &boulder, nil
}

// UpdateBoulder changes the fields set in in.
func (c *Client) UpdateBoulder(ctx context.Context, id int, in BoulderInput) (*Boulder, error) {
	if in.empty() {
		return nil, errors.New("nothing to update")
	}
	var boulder Boulder
	if err := c.Do(ctx, &Request{Method: http.MethodPut, Path: fmt.Sprintf("/boulders/%d/", id), Body: in}, &boulder); err != nil {
		return nil, err
	}
	return &boulder, nil
}

func (c *Client) DeleteBoulder(ctx context.Context, id int) error {
	return c.Do(ctx, &Request{Method: http.MethodDelete, Path: fmt.Sprintf("/boulders/%d/", id)}, nil)
}
