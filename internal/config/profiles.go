package config

import (
	"sort"

	"github.com/cockroachdb/errors"
)

type profile struct {
	passes   int
	maxSpeed float64
}

var profiles = map[string]profile{
	"quick":    {passes: 1},
	"standard": {passes: 3},
	"paranoid": {passes: 7},
	// gentle keeps the machine responsive on shared disks.
	"gentle": {passes: 3, maxSpeed: 25},
}

// Profiles returns the profile names in sorted order.
func Profiles() []string {
	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ApplyProfile overwrites the wipe settings with a named profile.
func ApplyProfile(cfg *Config, name string) error {
	p, ok := profiles[name]
	if !ok {
		return errors.WithHintf(errors.Newf("unknown profile %q", name), "available profiles: %v", Profiles())
	}
	cfg.Wipe.Passes = p.passes
	cfg.Wipe.MaxSpeedMBps = p.maxSpeed
	return nil
}
