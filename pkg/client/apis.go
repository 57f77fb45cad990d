package client

import (
	"encoding/json"

	pkgerrors "github.com/pkg/errors"

	"github.com/osctools/dcocal/pkg/config"
	"github.com/osctools/dcocal/pkg/dco"
	"github.com/osctools/dcocal/pkg/types"
)

func (c *Client) GetState() (*types.StateInfo, error) {
	ret, err := c.Get("/state")
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to get controller state")
	}
	var info types.StateInfo
	if err := json.Unmarshal([]byte(ret), &info); err != nil {
		return nil, pkgerrors.Wrap(err, "failed to unmarshal controller state")
	}
	return &info, nil
}

func (c *Client) GetResults() ([]dco.Result, error) {
	ret, err := c.Get("/results")
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to get calibration results")
	}
	var results []dco.Result
	if err := json.Unmarshal([]byte(ret), &results); err != nil {
		return nil, pkgerrors.Wrap(err, "failed to unmarshal calibration results")
	}
	return results, nil
}

func (c *Client) GetTargets() ([]dco.Target, error) {
	ret, err := c.Get("/targets")
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to get targets")
	}
	var targets []dco.Target
	if err := json.Unmarshal([]byte(ret), &targets); err != nil {
		return nil, pkgerrors.Wrap(err, "failed to unmarshal targets")
	}
	return targets, nil
}

func (c *Client) GetHistory() ([]types.Attempt, error) {
	ret, err := c.Get("/history")
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to get attempt history")
	}
	var history []types.Attempt
	if err := json.Unmarshal([]byte(ret), &history); err != nil {
		return nil, pkgerrors.Wrap(err, "failed to unmarshal attempt history")
	}
	return history, nil
}

func (c *Client) GetConfig() (*config.RawFileConfig, error) {
	ret, err := c.Get("/config")
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to get config")
	}
	var fc config.RawFileConfig
	if err := json.Unmarshal([]byte(ret), &fc); err != nil {
		return nil, pkgerrors.Wrap(err, "failed to unmarshal config")
	}
	return &fc, nil
}

func (c *Client) GetVersion() (string, error) {
	ret, err := c.Get("/version")
	if err != nil {
		return "", pkgerrors.Wrap(err, "failed to get daemon version")
	}
	var v string
	if err := json.Unmarshal([]byte(ret), &v); err != nil {
		return "", pkgerrors.Wrap(err, "failed to unmarshal daemon version")
	}
	return v, nil
}
