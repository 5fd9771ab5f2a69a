// Package config carries the container's timing policy: advertising
// settle and retry delays, command timeout classes, teardown behavior,
// and telemetry buffer sizing. Values merge from compiled baselines,
// BLC_* environment overrides, and an optional config.json.
package config
