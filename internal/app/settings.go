package app

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/ayusman/wavecoach/internal/pose"
)

// Setting keys that override the configured session defaults.
const (
	SettingSide            = "default_side"
	SettingSmoothing       = "default_smoothing"
	SettingWaveAngleThresh = "default_wave_angle_thresh"
	SettingMinAngle        = "default_min_angle"
	SettingMaxAngle        = "default_max_angle"
)

// SettingKeys lists the recognized setting keys.
var SettingKeys = []string{
	SettingSide,
	SettingSmoothing,
	SettingWaveAngleThresh,
	SettingMinAngle,
	SettingMaxAngle,
}

// ErrUnknownSetting is returned for setting keys the App does not use.
var ErrUnknownSetting = errors.New("unknown setting")

// Defaults returns the options used for sessions started without explicit
// options: the configured defaults overridden by stored settings.
func (a *App) Defaults() (SessionOptions, error) {
	stored, err := a.config.Store.Settings().All()
	if err != nil {
		return SessionOptions{}, fmt.Errorf("load settings: %w", err)
	}

	opts := a.config.Defaults
	for key, value := range stored {
		err := applySetting(&opts, key, value)
		if errors.Is(err, ErrUnknownSetting) {
			continue
		}
		if err != nil {
			return SessionOptions{}, err
		}
	}
	return opts, nil
}

// SetSetting validates and stores a session default override.
func (a *App) SetSetting(key, value string) error {
	opts, err := a.Defaults()
	if err != nil {
		return err
	}
	if err := applySetting(&opts, key, value); err != nil {
		return err
	}
	if err := opts.Wave.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidOptions, err)
	}
	return a.config.Store.Settings().Set(key, value)
}

// Settings returns the stored overrides.
func (a *App) Settings() (map[string]string, error) {
	return a.config.Store.Settings().All()
}

func applySetting(opts *SessionOptions, key, value string) error {
	var err error
	switch key {
	case SettingSide:
		var side pose.Side
		side, err = pose.ParseSide(value)
		if err == nil {
			opts.Side = side
		}
	case SettingSmoothing:
		opts.Smoothing, err = strconv.ParseBool(value)
	case SettingWaveAngleThresh:
		opts.Wave.WaveAngleThresh, err = strconv.ParseFloat(value, 64)
	case SettingMinAngle:
		opts.Wave.MinAngle, err = strconv.ParseFloat(value, 64)
	case SettingMaxAngle:
		opts.Wave.MaxAngle, err = strconv.ParseFloat(value, 64)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownSetting, key)
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidOptions, key, err)
	}
	return nil
}
