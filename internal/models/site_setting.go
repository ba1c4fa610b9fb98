// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import "time"

// SiteSetting is one persisted runtime override, keyed like
// "content.max_depth". An empty value means the environment default applies.
type SiteSetting struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SiteSettings holds override values by key, as loaded in one read.
type SiteSettings map[string]string

// Only returns the values for keys, with absent keys mapped to "".
// Rows for keys outside the list are dropped.
func (s SiteSettings) Only(keys ...string) SiteSettings {
	out := make(SiteSettings, len(keys))
	for _, k := range keys {
		out[k] = s[k]
	}
	return out
}
